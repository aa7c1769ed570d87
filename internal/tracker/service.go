// Package tracker reconciles business state with the BN Hub through a
// durable ledger of requests. Each (business, service, request type, filing)
// is claimed atomically, attempted at most once per delivery, and retried
// until acknowledged or the retry budget runs out.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"filer/internal/bnhub"
	bizmodels "filer/internal/business/models"
	"filer/internal/filing/models"
	"filer/internal/tracker/metrics"
	trackermodels "filer/internal/tracker/models"
	id "filer/pkg/domain"
	dErrors "filer/pkg/domain-errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxRetry is the retry number after which a request is abandoned.
const DefaultMaxRetry = 9

const skippedNote = "external request skipped by configuration"

// Store persists tracked requests outside the filing transaction.
type Store interface {
	Claim(ctx context.Context, key trackermodels.Key, maxRetry int) (*trackermodels.Request, trackermodels.ClaimResult, error)
	Record(ctx context.Context, req *trackermodels.Request) error
}

// Client sends rendered documents to the external registry.
type Client interface {
	NewHeader(filingID id.FilingID, retry int, partnerNote string) bnhub.Header
	Send(ctx context.Context, req *bnhub.Request) (*bnhub.Response, error)
}

// Config controls the retry budget.
type Config struct {
	MaxRetry            int
	SkipExternalRequest bool
}

// Service runs synchronizations.
type Service struct {
	store   Store
	client  Client
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a Service. A zero MaxRetry means DefaultMaxRetry.
func New(store Store, client Client, cfg Config, opts ...Option) *Service {
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = DefaultMaxRetry
	}
	s := &Service{
		store:  store,
		client: client,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer("filer/tracker"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synchronize makes one attempt at delivering a request. It returns nil when
// the request is done (acknowledged, previously acknowledged, skipped, or
// unaddressable), KindRetryable when another delivery should try again, and
// KindRetriesExceeded when the budget is spent.
func (s *Service) Synchronize(
	ctx context.Context,
	b *bizmodels.Business,
	f *models.Filing,
	service trackermodels.ServiceName,
	requestType trackermodels.RequestType,
	build bnhub.BuildFunc,
) error {
	if b == nil || b.ID.IsNil() {
		return dErrors.New(dErrors.KindFatal, "synchronization requires a persisted business")
	}
	rt := string(requestType)
	ctx, span := s.tracer.Start(ctx, "tracker.Synchronize", trace.WithAttributes(
		attribute.Int64("filing.id", int64(f.ID)),
		attribute.String("business.identifier", b.Identifier),
		attribute.String("tracker.request_type", rt),
	))
	defer span.End()

	key := trackermodels.Key{BusinessID: b.ID, Service: service, RequestType: requestType, FilingID: f.ID}
	req, claim, err := s.store.Claim(ctx, key, s.cfg.MaxRetry)
	if err != nil {
		span.RecordError(err)
		return dErrors.Wrap(err, dErrors.KindRetryable, "claim tracked request")
	}
	span.SetAttributes(attribute.Int("tracker.retry_number", req.RetryNumber), attribute.String("tracker.claim", string(claim)))

	logger := s.logger.With(
		"filing_id", f.ID,
		"business", b.Identifier,
		"request_type", rt,
		"retry_number", req.RetryNumber,
	)

	switch claim {
	case trackermodels.ClaimAlreadyProcessed:
		s.metrics.IncrementAttempt(rt, metrics.OutcomeAlreadyProcessed)
		logger.DebugContext(ctx, "request already acknowledged")
		return nil
	case trackermodels.ClaimExhausted:
		s.metrics.IncrementAttempt(rt, metrics.OutcomeExhausted)
		span.SetStatus(codes.Error, "retries exceeded")
		return dErrors.Newf(dErrors.KindRetriesExceeded, "%s for filing %s exhausted %d retries", rt, f.ID, s.cfg.MaxRetry)
	}

	doc, err := build(b, f, s.client.NewHeader(f.ID, req.RetryNumber, b.Identifier))
	if err != nil {
		if !dErrors.HasKind(err, dErrors.KindDataError) {
			span.RecordError(err)
			return dErrors.Wrap(err, dErrors.KindFatal, "build "+rt)
		}
		req.ResponseObject = err.Error()
		req.IsProcessed = true
		if err := s.record(ctx, req); err != nil {
			return err
		}
		s.metrics.IncrementAttempt(rt, metrics.OutcomeDataError)
		logger.WarnContext(ctx, "request not sent: business data incomplete", "reason", err.Error())
		return nil
	}
	req.RequestObject = string(doc.Body)

	if s.cfg.SkipExternalRequest {
		req.ResponseObject = skippedNote
		req.IsProcessed = true
		if err := s.record(ctx, req); err != nil {
			return err
		}
		s.metrics.IncrementAttempt(rt, metrics.OutcomeSkipped)
		logger.InfoContext(ctx, skippedNote)
		return nil
	}

	start := time.Now()
	resp, sendErr := s.client.Send(ctx, doc)
	s.metrics.ObserveCall(rt, time.Since(start))

	outcome := metrics.OutcomeRejected
	switch {
	case sendErr != nil:
		outcome = metrics.OutcomeTransportError
		req.ResponseObject = sendErr.Error()
	case resp.Acknowledged():
		outcome = metrics.OutcomeAcknowledged
		req.ResponseObject = resp.String()
		req.IsProcessed = true
	default:
		req.ResponseObject = resp.String()
	}
	if err := s.record(ctx, req); err != nil {
		return err
	}
	s.metrics.IncrementAttempt(rt, outcome)

	if req.IsProcessed {
		s.metrics.ObserveAcknowledged(rt, req.RetryNumber)
		logger.InfoContext(ctx, "request acknowledged")
		return nil
	}

	cause := fmt.Errorf("%s not acknowledged for filing %s at retry %d", rt, f.ID, req.RetryNumber)
	if sendErr != nil {
		cause = fmt.Errorf("%s for filing %s at retry %d: %w", rt, f.ID, req.RetryNumber, sendErr)
	}
	span.RecordError(cause)
	if req.RetryNumber < s.cfg.MaxRetry {
		logger.WarnContext(ctx, "request not acknowledged, will retry", "outcome", outcome)
		return dErrors.Wrap(cause, dErrors.KindRetryable, "synchronize")
	}
	span.SetStatus(codes.Error, "retries exceeded")
	logger.ErrorContext(ctx, "request not acknowledged, retries exceeded", "outcome", outcome)
	return dErrors.Wrap(cause, dErrors.KindRetriesExceeded, "synchronize")
}

func (s *Service) record(ctx context.Context, req *trackermodels.Request) error {
	if err := s.store.Record(ctx, req); err != nil {
		return dErrors.Wrap(err, dErrors.KindRetryable, "record tracked request")
	}
	return nil
}
