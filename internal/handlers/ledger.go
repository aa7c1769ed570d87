package handlers

import (
	"context"
	"strings"

	bizmodels "filer/internal/business/models"
	"filer/pkg/document"
)

// copyMembers copies the listed members that src carries into dst.
func copyMembers(dst, src *document.Object, keys ...string) {
	for _, k := range keys {
		if v, ok := src.Get(k); ok {
			dst.Set(k, document.CloneValue(v))
		}
	}
}

func adminFreeze(_ context.Context, in Input) (Result, error) {
	if _, ok := in.Section.Get("freeze"); !ok {
		return Result{}, fatal("admin freeze requires the freeze flag")
	}
	frozen := in.Section.Bool("freeze")
	in.Meta.Section(in.Type).Set("freeze", frozen)
	return Result{Changes: []bizmodels.Change{bizmodels.SetAdminFreeze{Frozen: frozen}}}, nil
}

func agmExtension(_ context.Context, in Input) (Result, error) {
	if in.Section.String("year") == "" {
		return Result{}, fatal("agm extension requires the agm year")
	}
	copyMembers(in.Meta.Section(in.Type), in.Section,
		"year", "isFirstAgm", "prevAgmRefDate", "extReqForAgmYear", "expireDateCurrExt", "totalApprovedExt", "extensionDuration")
	return Result{}, nil
}

func agmLocationChange(_ context.Context, in Input) (Result, error) {
	if in.Section.String("agmLocation") == "" {
		return Result{}, fatal("agm location change requires the new location")
	}
	copyMembers(in.Meta.Section(in.Type), in.Section, "year", "reason", "agmLocation")
	return Result{}, nil
}

// orderFiling records registrar and court orders, which only annotate the
// ledger.
func orderFiling(_ context.Context, in Input) (Result, error) {
	if in.Section.String("fileNumber") == "" && in.Section.String("orderDetails") == "" {
		return Result{}, fatalf("%s requires a file number or order details", in.Type)
	}
	copyMembers(in.Meta.Section(in.Type), in.Section, "fileNumber", "orderDate", "effectOfOrder", "orderDetails")
	return Result{}, nil
}

func courtOrder(ctx context.Context, in Input) (Result, error) {
	return orderFiling(ctx, in)
}

func registrarsNotation(ctx context.Context, in Input) (Result, error) {
	return orderFiling(ctx, in)
}

func registrarsOrder(ctx context.Context, in Input) (Result, error) {
	return orderFiling(ctx, in)
}

func transparencyRegister(_ context.Context, in Input) (Result, error) {
	kind := strings.ToLower(in.Section.String("type"))
	switch kind {
	case "initial", "change", "annual":
	default:
		return Result{}, fatalf("unknown transparency register filing %q", kind)
	}
	copyMembers(in.Meta.Section(in.Type), in.Section, "type", "ledgerReferenceNumber")
	return Result{}, nil
}

func annualReport(_ context.Context, in Input) (Result, error) {
	arDate, ok := in.Section.Date("annualReportDate")
	if !ok {
		return Result{}, fatal("annual report requires the annual report date")
	}
	change := bizmodels.RecordAnnualReport{
		Date:    arDate,
		Year:    arDate.Year(),
		AGMDate: datePtr(in.Section, "annualGeneralMeetingDate"),
	}
	summary := in.Meta.Section(in.Type)
	summary.Set("annualReportDate", arDate.Format(dateLayout))
	summary.Set("annualReportYear", change.Year)
	if change.AGMDate != nil {
		summary.Set("annualGeneralMeetingDate", change.AGMDate.Format(dateLayout))
	}
	return Result{Changes: []bizmodels.Change{change}}, nil
}

func parseResolution(obj *document.Object, kind bizmodels.ResolutionType) (bizmodels.Resolution, bool) {
	date, ok := obj.Date("resolutionDate")
	if !ok {
		return bizmodels.Resolution{}, false
	}
	r := bizmodels.Resolution{
		Type:        kind,
		Date:        date,
		Text:        obj.String("resolution"),
		SigningDate: datePtr(obj, "signingDate"),
	}
	if signatory := obj.Object("signatory"); signatory != nil {
		r.SignatoryName = parseParty(signatory).Name()
	}
	return r, true
}

func specialResolution(_ context.Context, in Input) (Result, error) {
	r, ok := parseResolution(in.Section, bizmodels.ResolutionSpecial)
	if !ok {
		return Result{}, fatal("special resolution requires the resolution date")
	}
	r.FilingID = in.Filing.ID
	in.Meta.Section(in.Type).Set("resolutionDate", r.Date.Format(dateLayout))
	return Result{Changes: []bizmodels.Change{bizmodels.AddResolution{Resolution: r}}}, nil
}
