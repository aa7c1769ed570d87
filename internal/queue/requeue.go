package queue

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"filer/internal/platform/kafka/consumer"
	"filer/internal/platform/metrics"
	dErrors "filer/pkg/domain-errors"
)

const (
	// HeaderAttempt counts deliveries of a requeued message, starting at 1.
	HeaderAttempt = "filer-attempt"
	// HeaderNotBefore holds the earliest redelivery time in RFC3339Nano.
	HeaderNotBefore = "filer-not-before"
)

// Requeue wraps a handler so that retryable failures are republished to the
// same topic after a delay instead of blocking the partition. A message that
// reaches the delivery limit is dead-lettered: logged and acknowledged.
type Requeue struct {
	next          consumer.Handler
	publisher     Publisher
	delay         time.Duration
	maxDeliveries int
	logger        *slog.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
}

// RequeueOption configures a Requeue.
type RequeueOption func(*Requeue)

func WithRequeueLogger(l *slog.Logger) RequeueOption {
	return func(r *Requeue) { r.logger = l }
}

func WithRequeueMetrics(m *metrics.Metrics) RequeueOption {
	return func(r *Requeue) { r.metrics = m }
}

// WithRequeueClock replaces the wall clock and the delay wait, for tests.
func WithRequeueClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) RequeueOption {
	return func(r *Requeue) {
		r.now = now
		r.sleep = sleep
	}
}

// NewRequeue wraps next.
func NewRequeue(next consumer.Handler, publisher Publisher, delay time.Duration, maxDeliveries int, opts ...RequeueOption) *Requeue {
	r := &Requeue{
		next:          next,
		publisher:     publisher,
		delay:         delay,
		maxDeliveries: maxDeliveries,
		logger:        slog.Default(),
		now:           time.Now,
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle waits out a not-before header, runs the wrapped handler, and
// republishes the message when it fails with a retryable error. Only a
// failed republish is returned.
func (r *Requeue) Handle(ctx context.Context, msg *consumer.Message) error {
	if notBefore, ok := parseNotBefore(msg.Headers); ok {
		if wait := notBefore.Sub(r.now()); wait > 0 {
			if err := r.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	err := r.next.Handle(ctx, msg)
	if err == nil {
		return nil
	}
	attempt := Attempt(msg.Headers)
	log := r.logger.With("topic", msg.Topic, "key", string(msg.Key), "attempt", attempt)
	if kind := dErrors.KindOf(err, dErrors.KindRetryable); kind != dErrors.KindRetryable {
		log.Error("message failed permanently", "error", err, "kind", string(kind))
		return nil
	}
	if r.maxDeliveries > 0 && attempt >= r.maxDeliveries {
		r.metrics.IncrementDeadLettered(msg.Topic)
		log.Error("message dead-lettered after max deliveries", "error", err, "max_deliveries", r.maxDeliveries)
		return nil
	}

	headers := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderAttempt] = strconv.Itoa(attempt + 1)
	headers[HeaderNotBefore] = r.now().Add(r.delay).UTC().Format(time.RFC3339Nano)
	if perr := r.publisher.Publish(ctx, msg.Topic, msg.Key, msg.Value, headers); perr != nil {
		log.Error("requeue failed", "error", perr, "cause", err)
		return perr
	}
	r.metrics.IncrementRequeued(msg.Topic)
	log.Warn("message requeued", "error", err, "delay", r.delay)
	return nil
}

// Attempt returns the delivery attempt recorded on a message; a message
// without the header is on its first attempt.
func Attempt(headers map[string]string) int {
	n, err := strconv.Atoi(headers[HeaderAttempt])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func parseNotBefore(headers map[string]string) (time.Time, bool) {
	v, ok := headers[HeaderNotBefore]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
