package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the message consumer.
type Metrics struct {
	MessagesHandled *prometheus.CounterVec
	HandleDuration  *prometheus.HistogramVec
	Requeued        *prometheus.CounterVec
	DeadLettered    *prometheus.CounterVec
}

// New creates and registers the consumer metrics.
func New() *Metrics {
	return &Metrics{
		MessagesHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filer_messages_handled_total",
			Help: "Messages handled by the consumer, by topic and result",
		}, []string{"topic", "result"}),
		HandleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filer_message_handle_duration_seconds",
			Help:    "Time spent handling one message",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		Requeued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filer_messages_requeued_total",
			Help: "Messages published again for a later attempt",
		}, []string{"topic"}),
		DeadLettered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filer_messages_dead_lettered_total",
			Help: "Messages dropped after exhausting their deliveries",
		}, []string{"topic"}),
	}
}

// ObserveMessage records one handled message.
func (m *Metrics) ObserveMessage(topic string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.MessagesHandled.WithLabelValues(topic, result).Inc()
	m.HandleDuration.WithLabelValues(topic).Observe(d.Seconds())
}

// IncrementRequeued counts a requeued message.
func (m *Metrics) IncrementRequeued(topic string) {
	if m == nil {
		return
	}
	m.Requeued.WithLabelValues(topic).Inc()
}

// IncrementDeadLettered counts a dropped message.
func (m *Metrics) IncrementDeadLettered(topic string) {
	if m == nil {
		return
	}
	m.DeadLettered.WithLabelValues(topic).Inc()
}
