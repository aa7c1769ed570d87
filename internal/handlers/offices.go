package handlers

import (
	"context"
	"strings"

	bizmodels "filer/internal/business/models"
	"filer/pkg/document"
)

func changeOfAddress(_ context.Context, in Input) (Result, error) {
	offices := parseOffices(in.Section.Object("offices"))
	if len(offices) == 0 {
		return Result{}, fatal("change of address requires at least one office")
	}
	var (
		changes []bizmodels.Change
		changed []any
	)
	for _, o := range offices {
		changes = append(changes, bizmodels.UpsertOffice{Office: o})
		changed = append(changed, string(o.Type))
	}
	changes = append(changes, bizmodels.TouchAddressChange{Date: effectiveDate(in)})
	in.Meta.Section(in.Type).Set("offices", changed)
	return Result{Changes: changes}, nil
}

// Actions a change of directors may take on one director.
const (
	actionAppointed      = "appointed"
	actionCeased         = "ceased"
	actionNameChanged    = "nameChanged"
	actionAddressChanged = "addressChanged"
	actionModified       = "modified"
)

// changeOfDirectors applies per-director actions. Existing directors are
// found by their previous name when the filing changes it.
func changeOfDirectors(_ context.Context, in Input) (Result, error) {
	directors := in.Section.Objects("directors")
	if len(directors) == 0 {
		return Result{}, fatal("change of directors requires at least one director")
	}
	eff := effectiveDate(in)
	var (
		changes   []bizmodels.Change
		appointed int
		ceased    int
		updated   int
	)
	for _, d := range directors {
		party := parseParty(d)
		actions := stringList(d, "actions")
		if has(actions, actionAppointed) {
			appointedOn, ok := d.Date("appointmentDate")
			if !ok {
				appointedOn = eff
			}
			changes = append(changes, bizmodels.AppointParty{Role: bizmodels.PartyRole{
				Role:            bizmodels.RoleDirector,
				Party:           party,
				AppointmentDate: appointedOn,
				FilingID:        in.Filing.ID,
			}})
			appointed++
			continue
		}
		if len(actions) == 0 {
			continue
		}

		existing := findActive(in.Business, bizmodels.RoleDirector, previousName(d, party))
		if existing == nil {
			return Result{}, fatalf("director %q is not an active director", previousName(d, party))
		}
		if has(actions, actionCeased) {
			ceasedOn, ok := d.Date("cessationDate")
			if !ok {
				ceasedOn = eff
			}
			changes = append(changes, bizmodels.CeaseParty{RoleID: existing.ID, Role: bizmodels.RoleDirector, Date: ceasedOn})
			ceased++
			continue
		}
		if has(actions, actionNameChanged) || has(actions, actionAddressChanged) || has(actions, actionModified) {
			if party.DeliveryAddress == nil {
				party.DeliveryAddress = existing.Party.DeliveryAddress
			}
			if party.MailingAddress == nil {
				party.MailingAddress = existing.Party.MailingAddress
			}
			changes = append(changes, bizmodels.UpdateParty{RoleID: existing.ID, Party: party})
			updated++
		}
	}
	changes = append(changes, bizmodels.TouchDirectorChange{Date: eff})

	summary := in.Meta.Section(in.Type)
	summary.Set("appointed", appointed)
	summary.Set("ceased", ceased)
	summary.Set("updated", updated)
	return Result{Changes: changes}, nil
}

// previousName is the name a director was on file under before this filing.
func previousName(d *document.Object, p bizmodels.Party) string {
	officer := d.Object("officer")
	if officer == nil || (officer.String("prevFirstName") == "" && officer.String("prevLastName") == "") {
		return p.Name()
	}
	prev := bizmodels.Party{
		Type:          p.Type,
		FirstName:     officer.String("prevFirstName"),
		MiddleInitial: officer.String("prevMiddleInitial"),
		LastName:      officer.String("prevLastName"),
	}
	return prev.Name()
}

// findActive returns the active role of the given type held by the named
// party, or nil.
func findActive(b *bizmodels.Business, role bizmodels.RoleType, name string) *bizmodels.PartyRole {
	for _, r := range b.ActiveRoles(role) {
		if strings.EqualFold(strings.TrimSpace(r.Party.Name()), strings.TrimSpace(name)) {
			return &r
		}
	}
	return nil
}

func has(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
