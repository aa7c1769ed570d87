package handlers

import (
	"context"

	"filer/internal/bnhub"
	bizmodels "filer/internal/business/models"
	trackermodels "filer/internal/tracker/models"
)

// firmChanges collects the name, business office, owner and classification
// changes that firm filings share.
func firmChanges(in Input) ([]bizmodels.Change, error) {
	if !in.Business.LegalType.IsFirm() {
		return nil, fatalf("%s is only valid for firms, not %s", in.Type, in.Business.LegalType)
	}
	eff := effectiveDate(in)
	var changes []bizmodels.Change
	if name := newLegalName(in.Section); name != "" && name != in.Business.LegalName {
		changes = append(changes, bizmodels.SetLegalName{Name: name})
	}
	for _, o := range parseOffices(in.Section.Object("offices")) {
		changes = append(changes, bizmodels.UpsertOffice{Office: o})
	}
	if parties := parseParties(in.Section, eff); len(parties) > 0 {
		changes = append(changes, bizmodels.CeaseAllRoles{
			Roles: []bizmodels.RoleType{bizmodels.RoleProprietor, bizmodels.RolePartner},
			Date:  eff,
		})
		for _, p := range parties {
			p.FilingID = in.Filing.ID
			changes = append(changes, bizmodels.AppointParty{Role: p})
		}
	}
	if naics := in.Section.Lookup("business", "naics"); naics != nil {
		changes = append(changes, bizmodels.SetNAICS{Code: naics.String("naicsCode"), Description: naics.String("naicsDescription")})
	}
	if start, ok := in.Section.Date("startDate"); ok {
		changes = append(changes, bizmodels.SetFoundingDate{Date: start})
	}
	return changes, nil
}

// changeOfRegistration updates a firm and reports name and business office
// changes to the business number registry.
func changeOfRegistration(_ context.Context, in Input) (Result, error) {
	changes, err := firmChanges(in)
	if err != nil {
		return Result{}, err
	}
	if len(changes) == 0 {
		return Result{}, fatal("change of registration does not change anything")
	}

	after := in.Business.Clone()
	if err := bizmodels.ApplyAll(after, changes); err != nil {
		return Result{}, fatalf("change of registration: %v", err)
	}
	var sync []SyncRequest
	if after.LegalName != in.Business.LegalName {
		sync = append(sync, bnhubSync(trackermodels.RequestChangeName, bnhub.BuildChangeName()))
	}
	before, now := in.Business.Office(bizmodels.OfficeBusiness), after.Office(bizmodels.OfficeBusiness)
	if now != nil {
		if before == nil || !sameAddress(before.DeliveryAddress, now.DeliveryAddress) {
			sync = append(sync, bnhubSync(trackermodels.RequestChangeDeliveryAddress, bnhub.BuildChangeAddress(bnhub.AddressTypeDelivery)))
		}
		if before == nil || !sameAddress(before.MailingAddress, now.MailingAddress) {
			sync = append(sync, bnhubSync(trackermodels.RequestChangeMailingAddress, bnhub.BuildChangeAddress(bnhub.AddressTypeMailing)))
		}
	}

	summary := in.Meta.Section(in.Type)
	if after.LegalName != in.Business.LegalName {
		summary.Set("fromLegalName", in.Business.LegalName)
		summary.Set("toLegalName", after.LegalName)
	}
	return Result{Changes: changes, Sync: sync}, nil
}

// conversion brings a firm's records up to date without notifying the
// business number registry.
func conversion(_ context.Context, in Input) (Result, error) {
	changes, err := firmChanges(in)
	if err != nil {
		return Result{}, err
	}
	if len(changes) == 0 {
		return Result{}, fatal("conversion does not change anything")
	}
	return Result{Changes: changes}, nil
}

func sameAddress(a, b *bizmodels.Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
