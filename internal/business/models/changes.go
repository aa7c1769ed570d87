package models

import (
	"fmt"
	"strings"
	"time"

	id "filer/pkg/domain"
)

// Change is one mutation of a Business returned by a filing handler. The
// dispatcher applies changes in order to a working copy, so a handler never
// observes partially persisted state.
type Change interface {
	Apply(b *Business) error
	Describe() string
}

// SetLegalName renames the business.
type SetLegalName struct {
	Name string
}

func (c SetLegalName) Apply(b *Business) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("legal name is required")
	}
	b.LegalName = c.Name
	return nil
}

func (c SetLegalName) Describe() string { return "set legal name" }

// SetLegalType changes the entity type.
type SetLegalType struct {
	Type LegalType
}

func (c SetLegalType) Apply(b *Business) error {
	if c.Type == "" {
		return fmt.Errorf("legal type is required")
	}
	b.LegalType = c.Type
	return nil
}

func (c SetLegalType) Describe() string { return "set legal type" }

// SetState moves the business to a new standing and records the filing that
// caused it.
type SetState struct {
	State    State
	FilingID id.FilingID
}

func (c SetState) Apply(b *Business) error {
	switch c.State {
	case StateActive, StateHistorical, StateLiquidation:
	default:
		return fmt.Errorf("unknown business state %q", c.State)
	}
	b.State = c.State
	fid := c.FilingID
	b.StateFilingID = &fid
	return nil
}

func (c SetState) Describe() string { return "set state " + string(c.State) }

// SetTaxID records the business number assigned by the tax registry.
type SetTaxID struct {
	TaxID string
}

func (c SetTaxID) Apply(b *Business) error {
	b.TaxID = c.TaxID
	return nil
}

func (c SetTaxID) Describe() string { return "set tax id" }

// SetFoundingDate sets the date the business came into existence.
type SetFoundingDate struct {
	Date time.Time
}

func (c SetFoundingDate) Apply(b *Business) error {
	if c.Date.IsZero() {
		return fmt.Errorf("founding date is required")
	}
	b.FoundingDate = c.Date
	return nil
}

func (c SetFoundingDate) Describe() string { return "set founding date" }

// SetDissolutionDate sets or clears the dissolution date.
type SetDissolutionDate struct {
	Date *time.Time
}

func (c SetDissolutionDate) Apply(b *Business) error {
	b.DissolutionDate = clonePtr(c.Date)
	return nil
}

func (c SetDissolutionDate) Describe() string { return "set dissolution date" }

// SetRestorationExpiry sets or clears the limited restoration expiry.
type SetRestorationExpiry struct {
	Date *time.Time
}

func (c SetRestorationExpiry) Apply(b *Business) error {
	b.RestorationExpiryDate = clonePtr(c.Date)
	return nil
}

func (c SetRestorationExpiry) Describe() string { return "set restoration expiry" }

// SetAdminFreeze freezes or unfreezes the business.
type SetAdminFreeze struct {
	Frozen bool
}

func (c SetAdminFreeze) Apply(b *Business) error {
	b.AdminFreeze = c.Frozen
	return nil
}

func (c SetAdminFreeze) Describe() string { return "set admin freeze" }

// SetJurisdiction sets or clears the foreign jurisdiction.
type SetJurisdiction struct {
	Jurisdiction *Jurisdiction
}

func (c SetJurisdiction) Apply(b *Business) error {
	if c.Jurisdiction == nil {
		b.Jurisdiction = nil
		return nil
	}
	j := *c.Jurisdiction
	j.IncorporationDate = clonePtr(c.Jurisdiction.IncorporationDate)
	b.Jurisdiction = &j
	return nil
}

func (c SetJurisdiction) Describe() string { return "set jurisdiction" }

// SetNAICS records the industry classification.
type SetNAICS struct {
	Code        string
	Description string
}

func (c SetNAICS) Apply(b *Business) error {
	b.NAICSCode = c.Code
	b.NAICSDescription = c.Description
	return nil
}

func (c SetNAICS) Describe() string { return "set naics" }

// RecordAnnualReport advances the annual report bookkeeping dates.
type RecordAnnualReport struct {
	Date    time.Time
	Year    int
	AGMDate *time.Time
}

func (c RecordAnnualReport) Apply(b *Business) error {
	if c.Year != 0 && c.Year < b.LastARYear {
		return fmt.Errorf("annual report for %d is older than the last filed year %d", c.Year, b.LastARYear)
	}
	d := c.Date
	b.LastARDate = &d
	if c.Year != 0 {
		b.LastARYear = c.Year
	}
	if c.AGMDate != nil {
		b.LastAGMDate = clonePtr(c.AGMDate)
	}
	return nil
}

func (c RecordAnnualReport) Describe() string { return "record annual report" }

// TouchAddressChange records the date of the last change of address.
type TouchAddressChange struct {
	Date time.Time
}

func (c TouchAddressChange) Apply(b *Business) error {
	d := c.Date
	b.LastCOADate = &d
	return nil
}

func (c TouchAddressChange) Describe() string { return "record change of address" }

// TouchDirectorChange records the date of the last change of directors.
type TouchDirectorChange struct {
	Date time.Time
}

func (c TouchDirectorChange) Apply(b *Business) error {
	d := c.Date
	b.LastCODDate = &d
	return nil
}

func (c TouchDirectorChange) Describe() string { return "record change of directors" }

// UpsertOffice replaces the office of the same type, or adds it. Nil
// addresses keep the existing value.
type UpsertOffice struct {
	Office Office
}

func (c UpsertOffice) Apply(b *Business) error {
	if c.Office.Type == "" {
		return fmt.Errorf("office type is required")
	}
	if existing := b.Office(c.Office.Type); existing != nil {
		if c.Office.DeliveryAddress != nil {
			existing.DeliveryAddress = clonePtr(c.Office.DeliveryAddress)
		}
		if c.Office.MailingAddress != nil {
			existing.MailingAddress = clonePtr(c.Office.MailingAddress)
		}
		return nil
	}
	b.Offices = append(b.Offices, Office{
		Type:            c.Office.Type,
		DeliveryAddress: clonePtr(c.Office.DeliveryAddress),
		MailingAddress:  clonePtr(c.Office.MailingAddress),
	})
	return nil
}

func (c UpsertOffice) Describe() string { return "upsert " + string(c.Office.Type) }

// AppointParty attaches a new party role.
type AppointParty struct {
	Role PartyRole
}

func (c AppointParty) Apply(b *Business) error {
	if c.Role.Role == "" {
		return fmt.Errorf("party role is required")
	}
	if strings.TrimSpace(c.Role.Party.Name()) == "" {
		return fmt.Errorf("party name is required for %s", c.Role.Role)
	}
	r := c.Role
	r.ID = b.nextID()
	r.CessationDate = nil
	r.Party.DeliveryAddress = clonePtr(c.Role.Party.DeliveryAddress)
	r.Party.MailingAddress = clonePtr(c.Role.Party.MailingAddress)
	b.PartyRoles = append(b.PartyRoles, r)
	return nil
}

func (c AppointParty) Describe() string { return "appoint " + string(c.Role.Role) }

// CeaseParty ends an active role, matched by role ID when set, otherwise by
// role type and party name.
type CeaseParty struct {
	RoleID int64
	Role   RoleType
	Name   string
	Date   time.Time
}

func (c CeaseParty) Apply(b *Business) error {
	for i := range b.PartyRoles {
		r := &b.PartyRoles[i]
		if !r.IsActive() {
			continue
		}
		if c.RoleID != 0 && r.ID != c.RoleID {
			continue
		}
		if c.RoleID == 0 && (r.Role != c.Role || !equalFold(r.Party.Name(), c.Name)) {
			continue
		}
		d := c.Date
		r.CessationDate = &d
		return nil
	}
	return fmt.Errorf("no active %s %q to cease", c.Role, c.Name)
}

func (c CeaseParty) Describe() string { return "cease " + string(c.Role) }

// UpdateParty replaces the party details of an active role.
type UpdateParty struct {
	RoleID int64
	Party  Party
}

func (c UpdateParty) Apply(b *Business) error {
	for i := range b.PartyRoles {
		r := &b.PartyRoles[i]
		if r.ID != c.RoleID {
			continue
		}
		if !r.IsActive() {
			return fmt.Errorf("party role %d has ceased", c.RoleID)
		}
		p := c.Party
		p.DeliveryAddress = clonePtr(c.Party.DeliveryAddress)
		p.MailingAddress = clonePtr(c.Party.MailingAddress)
		r.Party = p
		return nil
	}
	return fmt.Errorf("party role %d not found", c.RoleID)
}

func (c UpdateParty) Describe() string { return "update party" }

// CeaseAllRoles ends every active role of the listed types.
type CeaseAllRoles struct {
	Roles []RoleType
	Date  time.Time
}

func (c CeaseAllRoles) Apply(b *Business) error {
	for i := range b.PartyRoles {
		r := &b.PartyRoles[i]
		if !r.IsActive() {
			continue
		}
		for _, role := range c.Roles {
			if r.Role == role {
				d := c.Date
				r.CessationDate = &d
				break
			}
		}
	}
	return nil
}

func (c CeaseAllRoles) Describe() string { return "cease all roles" }

// ReplaceShareStructure swaps the authorized share structure.
type ReplaceShareStructure struct {
	Classes []ShareClass
}

func (c ReplaceShareStructure) Apply(b *Business) error {
	seen := map[string]bool{}
	next := b.nextID()
	classes := make([]ShareClass, 0, len(c.Classes))
	for _, sc := range c.Classes {
		key := strings.ToLower(strings.TrimSpace(sc.Name))
		if key == "" {
			return fmt.Errorf("share class name is required")
		}
		if seen[key] {
			return fmt.Errorf("duplicate share class %q", sc.Name)
		}
		seen[key] = true
		sc.ID = next
		next++
		sc.MaxNumberOfShares = clonePtr(sc.MaxNumberOfShares)
		sc.ParValue = clonePtr(sc.ParValue)
		series := make([]ShareSeries, len(sc.Series))
		for i, s := range sc.Series {
			s.ID = next
			next++
			s.MaxNumberOfShares = clonePtr(s.MaxNumberOfShares)
			series[i] = s
		}
		sc.Series = series
		classes = append(classes, sc)
	}
	b.ShareClasses = classes
	return nil
}

func (c ReplaceShareStructure) Describe() string { return "replace share structure" }

// ReplaceAliases swaps all aliases of a type.
type ReplaceAliases struct {
	Type    AliasType
	Aliases []string
}

func (c ReplaceAliases) Apply(b *Business) error {
	kept := b.Aliases[:0:0]
	for _, a := range b.Aliases {
		if a.Type != c.Type {
			kept = append(kept, a)
		}
	}
	next := b.nextID()
	for _, name := range c.Aliases {
		kept = append(kept, Alias{ID: next, Alias: name, Type: c.Type})
		next++
	}
	b.Aliases = kept
	return nil
}

func (c ReplaceAliases) Describe() string { return "replace aliases" }

// AddResolution records a resolution.
type AddResolution struct {
	Resolution Resolution
}

func (c AddResolution) Apply(b *Business) error {
	if c.Resolution.Date.IsZero() {
		return fmt.Errorf("resolution date is required")
	}
	r := c.Resolution
	r.ID = b.nextID()
	r.SigningDate = clonePtr(c.Resolution.SigningDate)
	b.Resolutions = append(b.Resolutions, r)
	return nil
}

func (c AddResolution) Describe() string { return "add resolution" }

// AddConsentOut records a consent to leave the jurisdiction.
type AddConsentOut struct {
	Consent ConsentOut
}

func (c AddConsentOut) Apply(b *Business) error {
	if c.Consent.Jurisdiction.Country == "" {
		return fmt.Errorf("consent jurisdiction is required")
	}
	co := c.Consent
	co.ID = b.nextID()
	b.ConsentOuts = append(b.ConsentOuts, co)
	return nil
}

func (c AddConsentOut) Describe() string { return "add consent " + string(c.Consent.Type) }

// ApplyAll applies changes in order, stopping at the first failure.
func ApplyAll(b *Business, changes []Change) error {
	for i, c := range changes {
		if err := c.Apply(b); err != nil {
			return fmt.Errorf("change %d (%s): %w", i, c.Describe(), err)
		}
	}
	return nil
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
