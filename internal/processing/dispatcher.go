// Package processing dispatches paid filings: it runs each legal filing
// section through its handler, applies the resulting changes to the business
// in one transaction, reconciles the external registry and moves the filing
// through its lifecycle.
package processing

//go:generate mockgen -source=dispatcher.go -destination=mocks/mocks.go -package=mocks Synchronizer,Claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"filer/internal/bnhub"
	bizmodels "filer/internal/business/models"
	"filer/internal/events"
	"filer/internal/filing/models"
	"filer/internal/filing/state"
	"filer/internal/filing/store"
	"filer/internal/handlers"
	"filer/internal/processing/metrics"
	trackermodels "filer/internal/tracker/models"
	id "filer/pkg/domain"
	dErrors "filer/pkg/domain-errors"
	"filer/pkg/platform/sentinel"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Outcome is what happened to a filing message. A deferred filing is PAID
// but not yet effective; it stays PAID and DueFilings returns it once its
// effective date has passed.
type Outcome string

const (
	OutcomeCompleted         Outcome = "completed"
	OutcomePendingCorrection Outcome = "pending_correction"
	OutcomeSkipped           Outcome = "skipped"
	OutcomeDeferred          Outcome = "deferred"
	OutcomeFailed            Outcome = "failed"
	OutcomeRetry             Outcome = "retry"
)

// maxCommentLength bounds the diagnostic stored on a failed filing.
const maxCommentLength = 2000

// Synchronizer reconciles one change with an external registry.
type Synchronizer interface {
	Synchronize(
		ctx context.Context,
		b *bizmodels.Business,
		f *models.Filing,
		service trackermodels.ServiceName,
		requestType trackermodels.RequestType,
		build bnhub.BuildFunc,
	) error
}

// Claims leases filing ids so only one worker dispatches a filing at a time.
// The returned release func is only set when ok is true.
type Claims interface {
	Acquire(ctx context.Context, filingID id.FilingID) (release func(), ok bool, err error)
}

// Dispatcher processes filing messages.
type Dispatcher struct {
	store     store.Store
	sync      Synchronizer
	publisher events.Publisher
	claims    Claims
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClaims enables distributed filing claims.
func WithClaims(c Claims) Option {
	return func(d *Dispatcher) { d.claims = c }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a Dispatcher.
func New(st store.Store, sync Synchronizer, publisher events.Publisher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:     st,
		sync:      sync,
		publisher: publisher,
		logger:    slog.Default(),
		tracer:    otel.Tracer("filer/processing"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DueFilings lists PAID filings whose effective date has passed, oldest
// first. They are the filings deferred at delivery time, plus any left PAID
// after their messages were dead-lettered.
func (d *Dispatcher) DueFilings(ctx context.Context, limit int) ([]id.FilingID, error) {
	var ids []id.FilingID
	err := d.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		ids, err = tx.DueFilings(ctx, d.now(), limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list due filings: %w", err)
	}
	return ids, nil
}

// dispatchResult carries what a committed dispatch needs to announce.
type dispatchResult struct {
	outcome    Outcome
	filing     *models.Filing
	identifier string
}

// ProcessFiling dispatches one filing. A nil error means the message can be
// acknowledged, whatever the outcome; a returned error is retryable and the
// message should be delivered again.
func (d *Dispatcher) ProcessFiling(ctx context.Context, filingID id.FilingID) (outcome Outcome, err error) {
	ctx, span := d.tracer.Start(ctx, "processing.ProcessFiling",
		trace.WithAttributes(attribute.Int64("filing.id", int64(filingID))))
	start := time.Now()
	log := d.logger.With("filing_id", filingID.String())
	defer func() {
		d.metrics.ObserveDispatch(string(outcome), time.Since(start))
		span.SetAttributes(attribute.String("outcome", string(outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if d.claims != nil {
		release, ok, claimErr := d.claims.Acquire(ctx, filingID)
		switch {
		case claimErr != nil:
			log.Warn("filing claim unavailable, relying on the row lock", "error", claimErr)
		case !ok:
			log.Info("filing is being dispatched by another worker", "outcome", OutcomeSkipped)
			return OutcomeSkipped, nil
		default:
			defer release()
		}
	}

	var res dispatchResult
	err = d.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var txErr error
		res, txErr = d.dispatch(ctx, tx, filingID, log)
		return txErr
	})
	if err == nil {
		log.Info("filing dispatched", "outcome", res.outcome, "business", res.identifier)
		if res.outcome == OutcomeCompleted {
			d.publish(ctx, log, events.TypeFilingCompleted, res.filing, res.identifier)
		}
		return res.outcome, nil
	}

	switch dErrors.KindOf(err, "") {
	case dErrors.KindFatal, dErrors.KindRetriesExceeded, dErrors.KindDataError:
		return d.fail(ctx, log, filingID, err)
	case dErrors.KindRetryable:
	default:
		err = dErrors.Wrap(err, dErrors.KindRetryable, "dispatch filing")
	}
	log.Warn("filing dispatch will be retried", "error", err, "outcome", OutcomeRetry)
	return OutcomeRetry, err
}

func (d *Dispatcher) dispatch(ctx context.Context, tx store.Tx, filingID id.FilingID, log *slog.Logger) (dispatchResult, error) {
	f, err := tx.LockFiling(ctx, filingID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dispatchResult{}, dErrors.Wrap(err, dErrors.KindFatal, "load filing")
	}
	if err != nil {
		return dispatchResult{}, fmt.Errorf("lock filing: %w", err)
	}
	if !state.CanDispatch(f.Status) {
		log.Info("filing is not awaiting dispatch", "status", f.Status)
		return dispatchResult{outcome: OutcomeSkipped}, nil
	}
	withdrawal, err := tx.FindPendingWithdrawal(ctx, f.ID)
	if err != nil {
		return dispatchResult{}, fmt.Errorf("find pending withdrawal: %w", err)
	}
	if withdrawal != nil {
		log.Info("filing has a pending withdrawal", "withdrawal_id", withdrawal.ID.String())
		return dispatchResult{outcome: OutcomeSkipped}, nil
	}
	now := d.now()
	if f.IsFutureEffective(now) {
		log.Info("filing is not yet effective", "effective_date", f.EffectiveDate)
		return dispatchResult{outcome: OutcomeDeferred}, nil
	}

	types, err := legalFilingTypes(f)
	if err != nil {
		return dispatchResult{}, err
	}
	business, err := d.loadBusiness(ctx, tx, f, types)
	if err != nil {
		return dispatchResult{}, err
	}

	meta := f.Meta.Clone()
	var (
		related []handlers.RelatedChanges
		updates []handlers.FilingUpdate
		syncs   []handlers.SyncRequest
		review  bool
	)
	for _, ft := range types {
		h, _ := handlers.Lookup(ft)
		meta.AddLegalFiling(ft)
		out, err := h(ctx, handlers.Input{
			Type:     ft,
			Filing:   f,
			Business: business.Clone(),
			Section:  f.Section(ft),
			Meta:     meta,
			Reader:   tx,
			Now:      now,
		})
		if err != nil {
			d.metrics.IncrementHandlerFailure(string(ft))
			return dispatchResult{}, classifyHandlerErr(err, ft)
		}
		if err := bizmodels.ApplyAll(business, out.Changes); err != nil {
			d.metrics.IncrementHandlerFailure(string(ft))
			return dispatchResult{}, dErrors.Wrap(err, dErrors.KindFatal, string(ft))
		}
		related = append(related, out.Related...)
		updates = append(updates, out.FilingUpdates...)
		syncs = append(syncs, out.Sync...)
		review = review || out.ManualReview
	}

	businessID, err := tx.SaveBusiness(ctx, business)
	if err != nil {
		return dispatchResult{}, fmt.Errorf("save business %s: %w", business.Identifier, err)
	}
	business.ID = businessID
	f.BusinessID = &businessID

	if err := d.applyRelated(ctx, tx, related); err != nil {
		return dispatchResult{}, err
	}
	if err := d.applyFilingUpdates(ctx, tx, updates, now); err != nil {
		return dispatchResult{}, err
	}
	for _, s := range syncs {
		if err := d.sync.Synchronize(ctx, business, f, s.Service, s.RequestType, s.Build); err != nil {
			return dispatchResult{}, fmt.Errorf("synchronize %s: %w", s.RequestType, err)
		}
	}

	trigger, outcome := state.TriggerDispatchSucceeded, OutcomeCompleted
	if review {
		trigger, outcome = state.TriggerDispatchNeedsReview, OutcomePendingCorrection
	}
	if err := state.Apply(f, trigger, state.Context{Now: now, EffectiveDate: f.EffectiveDate}); err != nil {
		return dispatchResult{}, dErrors.Wrap(err, dErrors.KindFatal, "complete filing")
	}
	f.Meta = meta
	if err := tx.SaveFiling(ctx, f); err != nil {
		return dispatchResult{}, fmt.Errorf("save filing: %w", err)
	}
	return dispatchResult{outcome: outcome, filing: f, identifier: business.Identifier}, nil
}

// legalFilingTypes validates every section name before any handler runs.
func legalFilingTypes(f *models.Filing) ([]models.FilingType, error) {
	names := f.LegalSectionNames()
	if len(names) == 0 {
		return nil, dErrors.New(dErrors.KindFatal, "filing has no legal filing sections")
	}
	types := make([]models.FilingType, 0, len(names))
	for _, name := range names {
		ft, err := models.ParseFilingType(name)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.KindFatal, "resolve handler")
		}
		if _, ok := handlers.Lookup(ft); !ok {
			return nil, dErrors.Newf(dErrors.KindFatal, "no handler for filing type %s", ft)
		}
		types = append(types, ft)
	}
	return types, nil
}

// loadBusiness locks the filing's business, or numbers a new one when a
// section creates it.
func (d *Dispatcher) loadBusiness(ctx context.Context, tx store.Tx, f *models.Filing, types []models.FilingType) (*bizmodels.Business, error) {
	creates := models.FilingType("")
	for _, ft := range types {
		if ft.CreatesBusiness() {
			creates = ft
			break
		}
	}

	if f.HasBusiness() {
		if creates != "" {
			return nil, dErrors.Newf(dErrors.KindFatal, "%s filing already belongs to a business", creates)
		}
		b, err := tx.LockBusiness(ctx, *f.BusinessID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.KindFatal, "load business")
		}
		if err != nil {
			return nil, fmt.Errorf("lock business: %w", err)
		}
		return b, nil
	}
	if creates == "" {
		return nil, dErrors.New(dErrors.KindFatal, "filing has no business")
	}

	legalType, err := handlers.CreationLegalType(f, creates)
	if err != nil {
		return nil, err
	}
	identifier, err := tx.NextIdentifier(ctx, legalType)
	if err != nil {
		return nil, fmt.Errorf("next identifier: %w", err)
	}
	founded := f.EffectiveDate
	if founded.IsZero() {
		founded = d.now()
	}
	return &bizmodels.Business{
		Identifier:   identifier,
		LegalType:    legalType,
		State:        bizmodels.StateActive,
		FoundingDate: founded,
	}, nil
}

func (d *Dispatcher) applyRelated(ctx context.Context, tx store.Tx, related []handlers.RelatedChanges) error {
	for _, r := range related {
		b, err := tx.LockBusinessByIdentifier(ctx, r.Identifier)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.KindFatal, "load related business "+r.Identifier)
		}
		if err != nil {
			return fmt.Errorf("lock related business %s: %w", r.Identifier, err)
		}
		if err := bizmodels.ApplyAll(b, r.Changes); err != nil {
			return dErrors.Wrap(err, dErrors.KindFatal, "related business "+r.Identifier)
		}
		if _, err := tx.SaveBusiness(ctx, b); err != nil {
			return fmt.Errorf("save related business %s: %w", r.Identifier, err)
		}
	}
	return nil
}

func (d *Dispatcher) applyFilingUpdates(ctx context.Context, tx store.Tx, updates []handlers.FilingUpdate, now time.Time) error {
	for _, u := range updates {
		target, err := tx.LockFiling(ctx, u.FilingID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.KindFatal, "load filing "+u.FilingID.String())
		}
		if err != nil {
			return fmt.Errorf("lock filing %s: %w", u.FilingID, err)
		}
		if err := state.Apply(target, u.Trigger, state.Context{Now: now, EffectiveDate: target.EffectiveDate}); err != nil {
			return dErrors.Wrap(err, dErrors.KindFatal, "update filing "+u.FilingID.String())
		}
		if err := tx.SaveFiling(ctx, target); err != nil {
			return fmt.Errorf("save filing %s: %w", u.FilingID, err)
		}
	}
	return nil
}

// classifyHandlerErr keeps a handler's own classification and treats
// anything unclassified as the filing's fault.
func classifyHandlerErr(err error, ft models.FilingType) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return fmt.Errorf("%s: %w", ft, err)
	}
	return dErrors.Wrap(err, dErrors.KindFatal, string(ft))
}

// fail records a failed dispatch in a fresh transaction and announces it.
func (d *Dispatcher) fail(ctx context.Context, log *slog.Logger, filingID id.FilingID, cause error) (Outcome, error) {
	var (
		failed     *models.Filing
		identifier string
	)
	err := d.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		f, err := tx.LockFiling(ctx, filingID)
		if err != nil {
			return err
		}
		if f.Status != models.StatusPaid {
			return nil
		}
		if err := state.Apply(f, state.TriggerDispatchFailed, state.Context{Now: d.now()}); err != nil {
			return err
		}
		f.Comment = truncate(cause.Error(), maxCommentLength)
		if err := tx.SaveFiling(ctx, f); err != nil {
			return err
		}
		if f.HasBusiness() {
			if b, err := tx.LockBusiness(ctx, *f.BusinessID); err == nil {
				identifier = b.Identifier
			}
		}
		failed = f
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		log.Error("filing not found", "error", cause, "outcome", OutcomeFailed)
		return OutcomeFailed, nil
	}
	if err != nil {
		log.Warn("could not record filing failure", "error", err, "cause", cause)
		return OutcomeRetry, dErrors.Wrap(err, dErrors.KindRetryable, "record filing failure")
	}

	log.Error("filing dispatch failed", "error", cause, "kind", string(dErrors.KindOf(cause, dErrors.KindFatal)), "outcome", OutcomeFailed)
	if failed != nil {
		d.publish(ctx, log, events.TypeFilingFailed, failed, identifier)
	}
	return OutcomeFailed, nil
}

// publish announces a committed outcome. Failures are logged, never
// returned: the filing is already committed.
func (d *Dispatcher) publish(ctx context.Context, log *slog.Logger, t events.Type, f *models.Filing, identifier string) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, events.NewFilingEvent(t, f, identifier, d.now())); err != nil {
		d.metrics.IncrementPublishError()
		log.Warn("failed to publish filing event", "event", t, "error", err)
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
