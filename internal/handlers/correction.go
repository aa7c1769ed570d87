package handlers

import (
	"context"

	bizmodels "filer/internal/business/models"
	"filer/internal/diff"
	"filer/internal/filing/models"
	"filer/internal/filing/state"
	"filer/pkg/document"
	id "filer/pkg/domain"
	dErrors "filer/pkg/domain-errors"
)

// correctionIgnoredKeys are envelope members that differ between a
// correction and its parent without being corrections.
var correctionIgnoredKeys = []string{
	models.SectionHeader,
	models.SectionBusiness,
	"correctedFilingId",
	"correctedFilingType",
	"comment",
	"type",
}

// correction records how a filing differs from the completed filing it
// corrects, applies the corrected business data and marks the parent
// corrected. Corrections of filing types that cannot be reapplied stop for
// staff review; the parent stays as it is until staff complete the review.
func correction(ctx context.Context, in Input) (Result, error) {
	parentID, err := correctedFilingID(in)
	if err != nil {
		return Result{}, err
	}
	parent, err := in.Reader.LoadFiling(ctx, parentID)
	if err != nil {
		return Result{}, readErr(err, "load corrected filing")
	}
	if parent.Status != models.StatusCompleted && parent.Status != models.StatusCorrected {
		return Result{}, fatal("correction is not a valid filing for this business")
	}
	if parent.BusinessID == nil || in.Filing.BusinessID == nil || *parent.BusinessID != *in.Filing.BusinessID {
		return Result{}, fatal("corrected filing belongs to another business")
	}

	nodes := diff.Diff(in.Section, parent.Section(parent.Type), correctionIgnoredKeys, nil)
	diffDoc, err := document.FromValue(nodes)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.KindFatal, "encode correction diff")
	}
	summary := in.Meta.Section(in.Type)
	summary.Set("correctedFilingId", parentID.String())
	summary.Set("correctedFilingType", string(parent.Type))
	summary.Set("diff", diffDoc)

	if parent.Type.RequiresManualCorrection() {
		return Result{ManualReview: true}, nil
	}
	return Result{
		Changes:       correctionChanges(in),
		FilingUpdates: []FilingUpdate{{FilingID: parentID, Trigger: state.TriggerCorrected}},
	}, nil
}

// correctionChanges applies the business data a correction restates. Parties
// of a restated role replace the active parties of that role.
func correctionChanges(in Input) []bizmodels.Change {
	eff := effectiveDate(in)
	var changes []bizmodels.Change
	if name := newLegalName(in.Section); name != "" && name != in.Business.LegalName {
		changes = append(changes, bizmodels.SetLegalName{Name: name})
	}
	for _, o := range parseOffices(in.Section.Object("offices")) {
		changes = append(changes, bizmodels.UpsertOffice{Office: o})
	}
	if parties := parseParties(in.Section, eff); len(parties) > 0 {
		var roles []bizmodels.RoleType
		for _, p := range parties {
			if !hasRole(roles, p.Role) {
				roles = append(roles, p.Role)
			}
		}
		changes = append(changes, bizmodels.CeaseAllRoles{Roles: roles, Date: eff})
		for _, p := range parties {
			p.FilingID = in.Filing.ID
			changes = append(changes, bizmodels.AppointParty{Role: p})
		}
	}
	if ss := in.Section.Object("shareStructure"); ss != nil {
		changes = append(changes, bizmodels.ReplaceShareStructure{Classes: parseShareClasses(ss)})
	}
	if _, ok := in.Section.Get("nameTranslations"); ok {
		changes = append(changes, bizmodels.ReplaceAliases{
			Type:    bizmodels.AliasTranslation,
			Aliases: stringList(in.Section, "nameTranslations"),
		})
	}
	if r, ok := parseResolution(in.Section, bizmodels.ResolutionSpecial); ok {
		r.FilingID = in.Filing.ID
		changes = append(changes, bizmodels.AddResolution{Resolution: r})
	}
	return changes
}

func hasRole(roles []bizmodels.RoleType, role bizmodels.RoleType) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func correctedFilingID(in Input) (id.FilingID, error) {
	if in.Filing.ParentFilingID != nil {
		return *in.Filing.ParentFilingID, nil
	}
	raw := in.Section.String("correctedFilingId")
	if raw == "" {
		return 0, fatal("correction does not name the corrected filing")
	}
	return id.ParseFilingID(raw)
}
