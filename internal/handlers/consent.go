package handlers

import (
	"context"

	bizmodels "filer/internal/business/models"
)

// consentValidityMonths is how long a consent to leave the jurisdiction lasts.
const consentValidityMonths = 6

func consentContinuationOut(_ context.Context, in Input) (Result, error) {
	return grantConsent(in, bizmodels.ConsentContinuationOut)
}

func consentAmalgamationOut(_ context.Context, in Input) (Result, error) {
	return grantConsent(in, bizmodels.ConsentAmalgamationOut)
}

func grantConsent(in Input, kind bizmodels.ConsentOutType) (Result, error) {
	if in.Business.State != bizmodels.StateActive {
		return Result{}, fatalf("business %s is %s and cannot consent to leave", in.Business.Identifier, in.Business.State)
	}
	foreign := parseJurisdiction(in.Section.Object("foreignJurisdiction"))
	if foreign == nil {
		return Result{}, fatalf("%s requires the foreign jurisdiction", in.Type)
	}
	expiry := effectiveDate(in).AddDate(0, consentValidityMonths, 0)
	summary := in.Meta.Section(in.Type)
	summary.Set("country", foreign.Country)
	summary.Set("region", foreign.Region)
	summary.Set("expiry", expiry.Format(dateLayout))
	return Result{Changes: []bizmodels.Change{bizmodels.AddConsentOut{Consent: bizmodels.ConsentOut{
		Type:         kind,
		Jurisdiction: *foreign,
		ExpiryDate:   expiry,
		FilingID:     in.Filing.ID,
	}}}}, nil
}

func continuationOut(_ context.Context, in Input) (Result, error) {
	return leaveJurisdiction(in, bizmodels.ConsentContinuationOut, "continuationOutDate")
}

func amalgamationOut(_ context.Context, in Input) (Result, error) {
	return leaveJurisdiction(in, bizmodels.ConsentAmalgamationOut, "amalgamationOutDate")
}

// leaveJurisdiction moves a business out under an unexpired consent for the
// same jurisdiction.
func leaveJurisdiction(in Input, kind bizmodels.ConsentOutType, dateKey string) (Result, error) {
	if in.Business.State != bizmodels.StateActive {
		return Result{}, fatalf("business %s is %s and cannot leave the jurisdiction", in.Business.Identifier, in.Business.State)
	}
	foreign := parseJurisdiction(in.Section.Object("foreignJurisdiction"))
	if foreign == nil {
		return Result{}, fatalf("%s requires the foreign jurisdiction", in.Type)
	}
	left, ok := in.Section.Date(dateKey)
	if !ok {
		left = effectiveDate(in)
	}
	if in.Business.ActiveConsentOut(kind, *foreign, left) == nil {
		return Result{}, fatalf("business %s has no active consent for %s %s", in.Business.Identifier, foreign.Country, foreign.Region)
	}

	summary := in.Meta.Section(in.Type)
	summary.Set("country", foreign.Country)
	summary.Set("region", foreign.Region)
	summary.Set(dateKey, left.Format(dateLayout))
	if foreign.LegalName != "" {
		summary.Set("legalName", foreign.LegalName)
	}
	return Result{
		Changes: []bizmodels.Change{
			bizmodels.SetState{State: bizmodels.StateHistorical, FilingID: in.Filing.ID},
			bizmodels.SetDissolutionDate{Date: &left},
		},
		Sync: []SyncRequest{syncInactive},
	}, nil
}
