package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dispatcher metrics.
type Metrics struct {
	Dispatches       *prometheus.CounterVec
	DispatchLatency  prometheus.Histogram
	HandlerFailures  *prometheus.CounterVec
	EventPublishErrs prometheus.Counter
	PaymentsApplied  prometheus.Counter
}

// New creates and registers the dispatcher metrics.
func New() *Metrics {
	return &Metrics{
		Dispatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filer_dispatches_total",
			Help: "Filing dispatches by outcome",
		}, []string{"outcome"}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "filer_dispatch_duration_seconds",
			Help:    "Time to dispatch one filing, including external synchronization",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		HandlerFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filer_handler_failures_total",
			Help: "Handler failures by filing type",
		}, []string{"filing_type"}),
		EventPublishErrs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "filer_event_publish_errors_total",
			Help: "Filing events that could not be published",
		}),
		PaymentsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "filer_payments_applied_total",
			Help: "Payment confirmations that moved a filing to PAID",
		}),
	}
}

// ObserveDispatch records a finished dispatch.
func (m *Metrics) ObserveDispatch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(outcome).Inc()
	m.DispatchLatency.Observe(d.Seconds())
}

// IncrementHandlerFailure counts a failed handler.
func (m *Metrics) IncrementHandlerFailure(filingType string) {
	if m == nil {
		return
	}
	m.HandlerFailures.WithLabelValues(filingType).Inc()
}

// IncrementPublishError counts an event that was not published.
func (m *Metrics) IncrementPublishError() {
	if m == nil {
		return
	}
	m.EventPublishErrs.Inc()
}

// IncrementPaymentApplied counts a payment that moved a filing to PAID.
func (m *Metrics) IncrementPaymentApplied() {
	if m == nil {
		return
	}
	m.PaymentsApplied.Inc()
}
