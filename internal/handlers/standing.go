package handlers

import (
	"context"
	"strings"

	"filer/internal/bnhub"
	bizmodels "filer/internal/business/models"
	trackermodels "filer/internal/tracker/models"
)

var (
	syncInactive = bnhubSync(trackermodels.RequestChangeStatus, bnhub.BuildChangeStatus(bnhub.StatusInactive, bnhub.ReasonDissolved))
	syncActive   = bnhubSync(trackermodels.RequestChangeStatus, bnhub.BuildChangeStatus(bnhub.StatusActive, bnhub.ReasonRestored))
)

// dissolution ends an active business. A custodian of records and their
// office may be named.
func dissolution(_ context.Context, in Input) (Result, error) {
	if in.Business.State != bizmodels.StateActive {
		return Result{}, fatalf("business %s is %s and cannot be dissolved", in.Business.Identifier, in.Business.State)
	}
	dissolvedOn, ok := in.Section.Date("dissolutionDate")
	if !ok {
		dissolvedOn = effectiveDate(in)
	}
	changes := []bizmodels.Change{
		bizmodels.SetState{State: bizmodels.StateHistorical, FilingID: in.Filing.ID},
		bizmodels.SetDissolutionDate{Date: &dissolvedOn},
	}
	if custodial := in.Section.Object("custodialOffice"); custodial != nil {
		changes = append(changes, bizmodels.UpsertOffice{Office: bizmodels.Office{
			Type:            bizmodels.OfficeCustodial,
			DeliveryAddress: parseAddress(custodial.Object("deliveryAddress")),
			MailingAddress:  parseAddress(custodial.Object("mailingAddress")),
		}})
	}
	for _, p := range parseParties(in.Section, dissolvedOn) {
		if p.Role != bizmodels.RoleCustodian {
			continue
		}
		p.FilingID = in.Filing.ID
		changes = append(changes, bizmodels.AppointParty{Role: p})
	}

	summary := in.Meta.Section(in.Type)
	summary.Set("dissolutionType", strings.ToLower(in.Section.String("dissolutionType")))
	summary.Set("dissolutionDate", dissolvedOn.Format(dateLayout))
	return Result{Changes: changes, Sync: []SyncRequest{syncInactive}}, nil
}

// putBackOn reverses a dissolution made in error.
func putBackOn(_ context.Context, in Input) (Result, error) {
	if in.Business.State != bizmodels.StateHistorical {
		return Result{}, fatalf("business %s is %s and cannot be put back on", in.Business.Identifier, in.Business.State)
	}
	copyMembers(in.Meta.Section(in.Type), in.Section, "details")
	return Result{
		Changes: []bizmodels.Change{
			bizmodels.SetState{State: bizmodels.StateActive, FilingID: in.Filing.ID},
			bizmodels.SetDissolutionDate{Date: nil},
		},
		Sync: []SyncRequest{syncActive},
	}, nil
}

// putBackOff returns a business whose limited restoration lapsed to the
// historical register.
func putBackOff(_ context.Context, in Input) (Result, error) {
	if in.Business.State != bizmodels.StateActive {
		return Result{}, fatalf("business %s is %s and cannot be put back off", in.Business.Identifier, in.Business.State)
	}
	eff := effectiveDate(in)
	copyMembers(in.Meta.Section(in.Type), in.Section, "reason", "details")
	return Result{
		Changes: []bizmodels.Change{
			bizmodels.SetState{State: bizmodels.StateHistorical, FilingID: in.Filing.ID},
			bizmodels.SetDissolutionDate{Date: &eff},
			bizmodels.SetRestorationExpiry{Date: nil},
		},
		Sync: []SyncRequest{syncInactive},
	}, nil
}

// Restoration kinds.
const (
	restorationFull             = "fullRestoration"
	restorationLimited          = "limitedRestoration"
	restorationLimitedExtension = "limitedRestorationExtension"
	restorationLimitedToFull    = "limitedRestorationToFull"
)

// restoration brings a dissolved company back, fully or for a limited
// period. Extensions and conversions to full apply to a company that is
// already restored.
func restoration(_ context.Context, in Input) (Result, error) {
	kind := in.Section.String("type")
	var (
		changes []bizmodels.Change
		sync    []SyncRequest
	)
	switch kind {
	case restorationFull, restorationLimited:
		if in.Business.State != bizmodels.StateHistorical {
			return Result{}, fatalf("business %s is %s and cannot be restored", in.Business.Identifier, in.Business.State)
		}
		changes = append(changes,
			bizmodels.SetState{State: bizmodels.StateActive, FilingID: in.Filing.ID},
			bizmodels.SetDissolutionDate{Date: nil},
		)
		sync = append(sync, syncActive)
	case restorationLimitedExtension, restorationLimitedToFull:
		if in.Business.State != bizmodels.StateActive || in.Business.RestorationExpiryDate == nil {
			return Result{}, fatalf("business %s is not in a limited restoration", in.Business.Identifier)
		}
	default:
		return Result{}, fatalf("unknown restoration type %q", kind)
	}

	switch kind {
	case restorationLimited, restorationLimitedExtension:
		expiry, ok := in.Section.Date("expiry")
		if !ok {
			return Result{}, fatalf("%s requires an expiry date", kind)
		}
		changes = append(changes, bizmodels.SetRestorationExpiry{Date: &expiry})
	default:
		changes = append(changes, bizmodels.SetRestorationExpiry{Date: nil})
	}

	if name := newLegalName(in.Section); name != "" && name != in.Business.LegalName {
		changes = append(changes, bizmodels.SetLegalName{Name: name})
	}
	for _, o := range parseOffices(in.Section.Object("offices")) {
		changes = append(changes, bizmodels.UpsertOffice{Office: o})
	}
	for _, p := range parseParties(in.Section, effectiveDate(in)) {
		p.FilingID = in.Filing.ID
		changes = append(changes, bizmodels.AppointParty{Role: p})
	}
	copyMembers(in.Meta.Section(in.Type), in.Section, "type", "expiry", "approvalType", "courtOrder")
	return Result{Changes: changes, Sync: sync}, nil
}
