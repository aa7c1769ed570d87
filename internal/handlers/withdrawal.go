package handlers

import (
	"context"

	"filer/internal/filing/models"
	"filer/internal/filing/state"
	id "filer/pkg/domain"
)

// noticeOfWithdrawal withdraws a paid filing that has not yet taken effect.
// The status guard on the target runs when the dispatcher applies the update.
func noticeOfWithdrawal(ctx context.Context, in Input) (Result, error) {
	var targetID id.FilingID
	if in.Filing.WithdrawnFilingID != nil {
		targetID = *in.Filing.WithdrawnFilingID
	} else {
		parsed, err := id.ParseFilingID(in.Section.String("filingId"))
		if err != nil {
			return Result{}, err
		}
		targetID = parsed
	}
	if targetID == in.Filing.ID {
		return Result{}, fatal("a notice of withdrawal cannot withdraw itself")
	}
	target, err := in.Reader.LoadFiling(ctx, targetID)
	if err != nil {
		return Result{}, readErr(err, "load withdrawn filing")
	}
	if target.Status != models.StatusPaid || !target.IsFutureEffective(in.Now) {
		return Result{}, fatalf("filing %s is %s and cannot be withdrawn", targetID, target.Status)
	}
	summary := in.Meta.Section(in.Type)
	summary.Set("withdrawnFilingId", targetID.String())
	summary.Set("withdrawnFilingType", string(target.Type))
	return Result{FilingUpdates: []FilingUpdate{{FilingID: targetID, Trigger: state.TriggerWithdraw}}}, nil
}
