package state

import (
	"testing"
	"time"

	"filer/internal/filing/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := Context{Now: now, EffectiveDate: now}

	cases := []struct {
		name    string
		from    models.Status
		trigger Trigger
		want    models.Status
	}{
		{"accept draft", models.StatusDraft, TriggerAccept, models.StatusPending},
		{"payment completes", models.StatusPending, TriggerPaymentCompleted, models.StatusPaid},
		{"dispatch succeeds", models.StatusPaid, TriggerDispatchSucceeded, models.StatusCompleted},
		{"dispatch needs review", models.StatusPaid, TriggerDispatchNeedsReview, models.StatusPendingCorrection},
		{"review completes", models.StatusPendingCorrection, TriggerReviewCompleted, models.StatusCompleted},
		{"dispatch fails", models.StatusPaid, TriggerDispatchFailed, models.StatusError},
		{"completed filing corrected", models.StatusCompleted, TriggerCorrected, models.StatusCorrected},
		{"corrected filing corrected again", models.StatusCorrected, TriggerCorrected, models.StatusCorrected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Transition(tc.from, tc.trigger, ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTransition_Invalid(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := Context{Now: now, EffectiveDate: now}

	t.Run("terminal statuses reject dispatch", func(t *testing.T) {
		for _, s := range []models.Status{models.StatusCompleted, models.StatusWithdrawn, models.StatusError, models.StatusCorrected} {
			got, err := Transition(s, TriggerDispatchSucceeded, ctx)
			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, s, got)
		}
	})

	t.Run("pending filing cannot be corrected", func(t *testing.T) {
		_, err := Transition(models.StatusPending, TriggerCorrected, ctx)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("draft cannot be paid", func(t *testing.T) {
		_, err := Transition(models.StatusDraft, TriggerPaymentCompleted, ctx)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestTransition_Withdraw(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("future effective paid filing is withdrawn", func(t *testing.T) {
		got, err := Transition(models.StatusPaid, TriggerWithdraw, Context{Now: now, EffectiveDate: now.Add(48 * time.Hour)})
		require.NoError(t, err)
		assert.Equal(t, models.StatusWithdrawn, got)
	})

	t.Run("already effective filing cannot be withdrawn", func(t *testing.T) {
		_, err := Transition(models.StatusPaid, TriggerWithdraw, Context{Now: now, EffectiveDate: now})
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("completed filing cannot be withdrawn", func(t *testing.T) {
		_, err := Transition(models.StatusCompleted, TriggerWithdraw, Context{Now: now, EffectiveDate: now.Add(time.Hour)})
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestApply_StampsCompletion(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := &models.Filing{ID: 3, Status: models.StatusPaid}

	require.NoError(t, Apply(f, TriggerDispatchSucceeded, Context{Now: now}))
	assert.Equal(t, models.StatusCompleted, f.Status)
	require.NotNil(t, f.CompletionDate)
	assert.Equal(t, now, *f.CompletionDate)

	err := Apply(f, TriggerDispatchSucceeded, Context{Now: now})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCanDispatch(t *testing.T) {
	for _, s := range models.AllStatuses {
		assert.Equal(t, s == models.StatusPaid, CanDispatch(s), s)
	}
}
