package handlers

import (
	"context"

	bizmodels "filer/internal/business/models"
)

func appointReceiver(_ context.Context, in Input) (Result, error) {
	var changes []bizmodels.Change
	for _, p := range parseParties(in.Section, effectiveDate(in)) {
		if p.Role != bizmodels.RoleReceiver {
			continue
		}
		p.FilingID = in.Filing.ID
		changes = append(changes, bizmodels.AppointParty{Role: p})
	}
	if len(changes) == 0 {
		return Result{}, fatal("appoint receiver requires at least one receiver")
	}
	in.Meta.Section(in.Type).Set("appointed", len(changes))
	return Result{Changes: changes}, nil
}

func ceaseReceiver(_ context.Context, in Input) (Result, error) {
	eff := effectiveDate(in)
	var changes []bizmodels.Change
	for _, obj := range in.Section.Objects("parties") {
		name := parseParty(obj).Name()
		existing := findActive(in.Business, bizmodels.RoleReceiver, name)
		if existing == nil {
			return Result{}, fatalf("%q is not an active receiver", name)
		}
		changes = append(changes, bizmodels.CeaseParty{RoleID: existing.ID, Role: bizmodels.RoleReceiver, Date: eff})
	}
	if len(changes) == 0 {
		return Result{}, fatal("cease receiver requires at least one receiver")
	}
	in.Meta.Section(in.Type).Set("ceased", len(changes))
	return Result{Changes: changes}, nil
}
