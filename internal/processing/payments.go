package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"filer/internal/filing/models"
	"filer/internal/filing/state"
	"filer/internal/filing/store"
	"filer/internal/processing/metrics"
	id "filer/pkg/domain"
	dErrors "filer/pkg/domain-errors"
	"filer/pkg/platform/sentinel"
)

// Payments applies payment confirmations to filings.
type Payments struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewPayments creates a Payments service.
func NewPayments(st store.Store, logger *slog.Logger, m *metrics.Metrics) *Payments {
	if logger == nil {
		logger = slog.Default()
	}
	return &Payments{store: st, logger: logger, metrics: m, now: time.Now}
}

// Complete moves a PENDING filing to PAID. It reports whether the filing is
// PAID afterwards and should be dispatched; a redelivered confirmation for
// an already paid filing reports true again.
func (p *Payments) Complete(ctx context.Context, filingID id.FilingID) (bool, error) {
	var (
		ready   bool
		applied bool
	)
	err := p.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		f, err := tx.LockFiling(ctx, filingID)
		if err != nil {
			return err
		}
		switch f.Status {
		case models.StatusPaid:
			ready = true
			return nil
		case models.StatusPending:
		default:
			p.logger.Info("payment ignored for filing not awaiting payment",
				"filing_id", filingID.String(), "status", f.Status)
			return nil
		}
		if err := state.Apply(f, state.TriggerPaymentCompleted, state.Context{Now: p.now()}); err != nil {
			return err
		}
		if err := tx.SaveFiling(ctx, f); err != nil {
			return fmt.Errorf("save filing: %w", err)
		}
		ready, applied = true, true
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.KindFatal, "load paid filing")
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.KindRetryable, "apply payment")
	}
	if applied {
		p.metrics.IncrementPaymentApplied()
		p.logger.Info("payment applied", "filing_id", filingID.String())
	}
	return ready, nil
}
