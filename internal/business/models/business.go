package models

import (
	"time"

	id "filer/pkg/domain"
)

// State is the registry standing of a business.
type State string

const (
	StateActive      State = "ACTIVE"
	StateHistorical  State = "HISTORICAL"
	StateLiquidation State = "LIQUIDATION"
)

// LegalType is the entity type code.
type LegalType string

const (
	LegalTypeBC   LegalType = "BC"
	LegalTypeBEN  LegalType = "BEN"
	LegalTypeULC  LegalType = "ULC"
	LegalTypeCC   LegalType = "CC"
	LegalTypeCP   LegalType = "CP"
	LegalTypeSP   LegalType = "SP"
	LegalTypeGP   LegalType = "GP"
	LegalTypeC    LegalType = "C"
	LegalTypeCBEN LegalType = "CBEN"
	LegalTypeCUL  LegalType = "CUL"
	LegalTypeCCC  LegalType = "CCC"
)

// IsFirm reports whether the type is a sole proprietorship or partnership.
// Firms are the only types whose name and address changes are pushed to the
// BN Hub.
func (t LegalType) IsFirm() bool {
	return t == LegalTypeSP || t == LegalTypeGP
}

// IdentifierPrefix is the registry prefix for newly numbered businesses.
func (t LegalType) IdentifierPrefix() string {
	switch t {
	case LegalTypeCP:
		return "CP"
	case LegalTypeSP, LegalTypeGP:
		return "FM"
	case LegalTypeC, LegalTypeCBEN, LegalTypeCUL, LegalTypeCCC:
		return "C"
	default:
		return "BC"
	}
}

// Address is a postal address as carried in filing payloads.
type Address struct {
	StreetAddress           string `json:"streetAddress"`
	StreetAddressAdditional string `json:"streetAddressAdditional,omitempty"`
	AddressCity             string `json:"addressCity"`
	AddressRegion           string `json:"addressRegion,omitempty"`
	AddressCountry          string `json:"addressCountry"`
	PostalCode              string `json:"postalCode"`
	DeliveryInstructions    string `json:"deliveryInstructions,omitempty"`
}

// OfficeType names an office slot; a business has at most one of each.
type OfficeType string

const (
	OfficeRegistered        OfficeType = "registeredOffice"
	OfficeRecords           OfficeType = "recordsOffice"
	OfficeBusiness          OfficeType = "businessOffice"
	OfficeCustodial         OfficeType = "custodialOffice"
	OfficeLiquidationRecord OfficeType = "liquidationRecordsOffice"
)

// Office holds the delivery and mailing address of one office slot.
type Office struct {
	Type            OfficeType `json:"type"`
	DeliveryAddress *Address   `json:"deliveryAddress,omitempty"`
	MailingAddress  *Address   `json:"mailingAddress,omitempty"`
}

// RoleType is the capacity in which a party is attached to a business.
type RoleType string

const (
	RoleDirector        RoleType = "director"
	RoleIncorporator    RoleType = "incorporator"
	RoleCompletingParty RoleType = "completing_party"
	RoleProprietor      RoleType = "proprietor"
	RolePartner         RoleType = "partner"
	RoleLiquidator      RoleType = "liquidator"
	RoleReceiver        RoleType = "receiver"
	RoleApplicant       RoleType = "applicant"
	RoleCustodian       RoleType = "custodian"
)

// PartyType distinguishes people from organizations.
type PartyType string

const (
	PartyPerson       PartyType = "person"
	PartyOrganization PartyType = "organization"
)

// Party is a person or organization.
type Party struct {
	Type              PartyType `json:"partyType"`
	FirstName         string    `json:"firstName,omitempty"`
	MiddleInitial     string    `json:"middleInitial,omitempty"`
	LastName          string    `json:"lastName,omitempty"`
	OrganizationName  string    `json:"organizationName,omitempty"`
	IdentifyingNumber string    `json:"identifyingNumber,omitempty"`
	Email             string    `json:"email,omitempty"`
	DeliveryAddress   *Address  `json:"deliveryAddress,omitempty"`
	MailingAddress    *Address  `json:"mailingAddress,omitempty"`
}

// Name returns the display name used to match parties across filings.
func (p Party) Name() string {
	if p.Type == PartyOrganization {
		return p.OrganizationName
	}
	name := p.FirstName
	if p.MiddleInitial != "" {
		name += " " + p.MiddleInitial
	}
	if p.LastName != "" {
		name += " " + p.LastName
	}
	return name
}

// PartyRole attaches a party to the business for a period of time.
type PartyRole struct {
	ID              int64       `json:"id"`
	Role            RoleType    `json:"role"`
	Party           Party       `json:"party"`
	AppointmentDate time.Time   `json:"appointmentDate"`
	CessationDate   *time.Time  `json:"cessationDate,omitempty"`
	FilingID        id.FilingID `json:"filingId,omitempty"`
}

// IsActive reports whether the role has not been ceased.
func (r PartyRole) IsActive() bool {
	return r.CessationDate == nil
}

// ShareSeries is a series within a share class.
type ShareSeries struct {
	ID                      int64  `json:"id"`
	Name                    string `json:"name"`
	Priority                int    `json:"priority"`
	HasMaximumShares        bool   `json:"hasMaximumShares"`
	MaxNumberOfShares       *int64 `json:"maxNumberOfShares,omitempty"`
	HasRightsOrRestrictions bool   `json:"hasRightsOrRestrictions"`
}

// ShareClass is one class in the authorized share structure.
type ShareClass struct {
	ID                      int64         `json:"id"`
	Name                    string        `json:"name"`
	Priority                int           `json:"priority"`
	HasMaximumShares        bool          `json:"hasMaximumShares"`
	MaxNumberOfShares       *int64        `json:"maxNumberOfShares,omitempty"`
	HasParValue             bool          `json:"hasParValue"`
	ParValue                *float64      `json:"parValue,omitempty"`
	Currency                string        `json:"currency,omitempty"`
	HasRightsOrRestrictions bool          `json:"hasRightsOrRestrictions"`
	Series                  []ShareSeries `json:"series,omitempty"`
}

// AliasType classifies alternate names.
type AliasType string

const (
	AliasTranslation AliasType = "TRANSLATION"
)

// Alias is an alternate name of the business.
type Alias struct {
	ID    int64     `json:"id"`
	Alias string    `json:"alias"`
	Type  AliasType `json:"type"`
}

// ResolutionType distinguishes special and ordinary resolutions.
type ResolutionType string

const (
	ResolutionSpecial  ResolutionType = "SPECIAL"
	ResolutionOrdinary ResolutionType = "ORDINARY"
)

// Resolution is a shareholder or member resolution on file.
type Resolution struct {
	ID            int64          `json:"id"`
	Type          ResolutionType `json:"type"`
	SubType       string         `json:"subType,omitempty"`
	Date          time.Time      `json:"resolutionDate"`
	Text          string         `json:"resolution,omitempty"`
	SignatoryName string         `json:"signatoryName,omitempty"`
	SigningDate   *time.Time     `json:"signingDate,omitempty"`
	FilingID      id.FilingID    `json:"filingId,omitempty"`
}

// ConsentOutType distinguishes consents to leave the jurisdiction.
type ConsentOutType string

const (
	ConsentContinuationOut ConsentOutType = "continuation_out"
	ConsentAmalgamationOut ConsentOutType = "amalgamation_out"
)

// Jurisdiction is a foreign jurisdiction a business moved in from or out to.
type Jurisdiction struct {
	Country           string     `json:"country"`
	Region            string     `json:"region,omitempty"`
	Identifier        string     `json:"identifier,omitempty"`
	LegalName         string     `json:"legalName,omitempty"`
	IncorporationDate *time.Time `json:"incorporationDate,omitempty"`
}

// Matches compares country and region, ignoring case.
func (j Jurisdiction) Matches(other Jurisdiction) bool {
	return equalFold(j.Country, other.Country) && equalFold(j.Region, other.Region)
}

// ConsentOut is a consent to continue or amalgamate out of the jurisdiction.
type ConsentOut struct {
	ID           int64          `json:"id"`
	Type         ConsentOutType `json:"type"`
	Jurisdiction Jurisdiction   `json:"jurisdiction"`
	ExpiryDate   time.Time      `json:"expiryDate"`
	FilingID     id.FilingID    `json:"filingId"`
}

// Business is the aggregate root mutated by filings. It exclusively owns its
// collections; handlers never mutate it directly but return Changes.
type Business struct {
	ID                    id.BusinessID
	Identifier            string
	LegalName             string
	LegalType             LegalType
	State                 State
	StateFilingID         *id.FilingID
	TaxID                 string
	FoundingDate          time.Time
	DissolutionDate       *time.Time
	RestorationExpiryDate *time.Time
	LastARDate            *time.Time
	LastARYear            int
	LastAGMDate           *time.Time
	LastCOADate           *time.Time
	LastCODDate           *time.Time
	AdminFreeze           bool
	NAICSCode             string
	NAICSDescription      string
	Jurisdiction          *Jurisdiction

	Offices      []Office
	PartyRoles   []PartyRole
	ShareClasses []ShareClass
	Aliases      []Alias
	Resolutions  []Resolution
	ConsentOuts  []ConsentOut
}

// Office returns the office of the given type, or nil.
func (b *Business) Office(t OfficeType) *Office {
	for i := range b.Offices {
		if b.Offices[i].Type == t {
			return &b.Offices[i]
		}
	}
	return nil
}

// ActiveRoles returns the active party roles of the given type.
func (b *Business) ActiveRoles(role RoleType) []PartyRole {
	var out []PartyRole
	for _, r := range b.PartyRoles {
		if r.Role == role && r.IsActive() {
			out = append(out, r)
		}
	}
	return out
}

// ActiveConsentOut returns an unexpired consent of the given type for the
// jurisdiction, or nil.
func (b *Business) ActiveConsentOut(t ConsentOutType, j Jurisdiction, at time.Time) *ConsentOut {
	for i := range b.ConsentOuts {
		c := &b.ConsentOuts[i]
		if c.Type == t && c.Jurisdiction.Matches(j) && c.ExpiryDate.After(at) {
			return c
		}
	}
	return nil
}

// Clone returns a deep copy. Handlers receive clones so nothing they do to
// their input survives outside the returned Changes.
func (b *Business) Clone() *Business {
	if b == nil {
		return nil
	}
	c := *b
	c.StateFilingID = clonePtr(b.StateFilingID)
	c.DissolutionDate = clonePtr(b.DissolutionDate)
	c.RestorationExpiryDate = clonePtr(b.RestorationExpiryDate)
	c.LastARDate = clonePtr(b.LastARDate)
	c.LastAGMDate = clonePtr(b.LastAGMDate)
	c.LastCOADate = clonePtr(b.LastCOADate)
	c.LastCODDate = clonePtr(b.LastCODDate)
	if b.Jurisdiction != nil {
		j := *b.Jurisdiction
		j.IncorporationDate = clonePtr(b.Jurisdiction.IncorporationDate)
		c.Jurisdiction = &j
	}

	c.Offices = make([]Office, len(b.Offices))
	for i, o := range b.Offices {
		o.DeliveryAddress = clonePtr(o.DeliveryAddress)
		o.MailingAddress = clonePtr(o.MailingAddress)
		c.Offices[i] = o
	}
	c.PartyRoles = make([]PartyRole, len(b.PartyRoles))
	for i, r := range b.PartyRoles {
		r.CessationDate = clonePtr(r.CessationDate)
		r.Party.DeliveryAddress = clonePtr(r.Party.DeliveryAddress)
		r.Party.MailingAddress = clonePtr(r.Party.MailingAddress)
		c.PartyRoles[i] = r
	}
	c.ShareClasses = make([]ShareClass, len(b.ShareClasses))
	for i, sc := range b.ShareClasses {
		sc.MaxNumberOfShares = clonePtr(sc.MaxNumberOfShares)
		sc.ParValue = clonePtr(sc.ParValue)
		series := make([]ShareSeries, len(sc.Series))
		for j, s := range sc.Series {
			s.MaxNumberOfShares = clonePtr(s.MaxNumberOfShares)
			series[j] = s
		}
		sc.Series = series
		c.ShareClasses[i] = sc
	}
	c.Aliases = append([]Alias(nil), b.Aliases...)
	c.Resolutions = make([]Resolution, len(b.Resolutions))
	for i, r := range b.Resolutions {
		r.SigningDate = clonePtr(r.SigningDate)
		c.Resolutions[i] = r
	}
	c.ConsentOuts = make([]ConsentOut, len(b.ConsentOuts))
	for i, co := range b.ConsentOuts {
		co.Jurisdiction.IncorporationDate = clonePtr(co.Jurisdiction.IncorporationDate)
		c.ConsentOuts[i] = co
	}
	return &c
}

// nextID returns an identifier for a new collection member.
func (b *Business) nextID() int64 {
	var max int64
	for _, r := range b.PartyRoles {
		max = max64(max, r.ID)
	}
	for _, s := range b.ShareClasses {
		max = max64(max, s.ID)
		for _, ss := range s.Series {
			max = max64(max, ss.ID)
		}
	}
	for _, a := range b.Aliases {
		max = max64(max, a.ID)
	}
	for _, r := range b.Resolutions {
		max = max64(max, r.ID)
	}
	for _, c := range b.ConsentOuts {
		max = max64(max, c.ID)
	}
	return max + 1
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
