package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for synchronization attempts.
const (
	OutcomeAcknowledged     = "acknowledged"
	OutcomeRejected         = "rejected"
	OutcomeTransportError   = "transport_error"
	OutcomeDataError        = "data_error"
	OutcomeSkipped          = "skipped"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeExhausted        = "exhausted"
)

// Metrics provides observability for external registry synchronization.
type Metrics struct {
	Attempts    *prometheus.CounterVec
	CallLatency *prometheus.HistogramVec
	RetryNumber *prometheus.HistogramVec
}

// New creates a new Metrics instance registered with the default registry.
func New() *Metrics {
	return &Metrics{
		Attempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filer_tracker_attempts_total",
			Help: "Synchronization attempts by request type and outcome",
		}, []string{"request_type", "outcome"}),

		CallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filer_tracker_call_duration_seconds",
			Help:    "Duration of external registry calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"request_type"}),

		RetryNumber: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filer_tracker_retry_number",
			Help:    "Retry number at which a request was acknowledged",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		}, []string{"request_type"}),
	}
}

// IncrementAttempt records one synchronization outcome.
func (m *Metrics) IncrementAttempt(requestType, outcome string) {
	if m != nil {
		m.Attempts.WithLabelValues(requestType, outcome).Inc()
	}
}

// ObserveCall records the latency of an external call.
func (m *Metrics) ObserveCall(requestType string, d time.Duration) {
	if m != nil {
		m.CallLatency.WithLabelValues(requestType).Observe(d.Seconds())
	}
}

// ObserveAcknowledged records how many retries an acknowledged request took.
func (m *Metrics) ObserveAcknowledged(requestType string, retry int) {
	if m != nil {
		m.RetryNumber.WithLabelValues(requestType).Observe(float64(retry))
	}
}
