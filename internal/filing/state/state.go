// Package state holds the filing status transitions. It is the only place a
// filing's status is decided; the dispatcher and the payment consumer go
// through Transition rather than assigning statuses directly.
package state

import (
	"errors"
	"fmt"
	"time"

	"filer/internal/filing/models"
)

// ErrInvalidTransition is returned when a trigger does not apply to the
// current status.
var ErrInvalidTransition = errors.New("invalid filing status transition")

// Trigger is an event that may move a filing between statuses.
type Trigger string

const (
	TriggerAccept              Trigger = "accept"
	TriggerPaymentCompleted    Trigger = "payment_completed"
	TriggerDispatchSucceeded   Trigger = "dispatch_succeeded"
	TriggerDispatchNeedsReview Trigger = "dispatch_needs_review"
	TriggerReviewCompleted     Trigger = "review_completed"
	TriggerDispatchFailed      Trigger = "dispatch_failed"
	TriggerWithdraw            Trigger = "withdraw"
	TriggerCorrected           Trigger = "corrected"
)

// Context carries the facts guards depend on.
type Context struct {
	Now           time.Time
	EffectiveDate time.Time
}

type edge struct {
	from    models.Status
	trigger Trigger
}

var table = map[edge]models.Status{
	{models.StatusDraft, TriggerAccept}:                      models.StatusPending,
	{models.StatusPending, TriggerPaymentCompleted}:          models.StatusPaid,
	{models.StatusPaid, TriggerDispatchSucceeded}:            models.StatusCompleted,
	{models.StatusPaid, TriggerDispatchNeedsReview}:          models.StatusPendingCorrection,
	{models.StatusPendingCorrection, TriggerReviewCompleted}: models.StatusCompleted,
	{models.StatusPaid, TriggerDispatchFailed}:               models.StatusError,
	{models.StatusPaid, TriggerWithdraw}:                     models.StatusWithdrawn,
	{models.StatusCompleted, TriggerCorrected}:               models.StatusCorrected,
	{models.StatusCorrected, TriggerCorrected}:               models.StatusCorrected,
}

// Transition returns the status reached by applying trigger to current.
func Transition(current models.Status, trigger Trigger, c Context) (models.Status, error) {
	next, ok := table[edge{current, trigger}]
	if !ok {
		return current, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, trigger, current)
	}
	if trigger == TriggerWithdraw && !c.EffectiveDate.After(c.Now) {
		return current, fmt.Errorf("%w: filing is already effective", ErrInvalidTransition)
	}
	return next, nil
}

// Apply transitions the filing in place, stamping the completion date when
// the filing reaches COMPLETED.
func Apply(f *models.Filing, trigger Trigger, c Context) error {
	next, err := Transition(f.Status, trigger, c)
	if err != nil {
		return fmt.Errorf("filing %s: %w", f.ID, err)
	}
	f.Status = next
	if next == models.StatusCompleted && f.CompletionDate == nil {
		now := c.Now
		f.CompletionDate = &now
	}
	return nil
}

// CanDispatch reports whether a filing in status s should be handed to the
// handlers. Anything else is a redelivery or an operator-owned state.
func CanDispatch(s models.Status) bool {
	return s == models.StatusPaid
}
