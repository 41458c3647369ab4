package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatcherMetrics tracks outbox dispatch results.
type DispatcherMetrics struct {
	events   *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewDispatcherMetrics registers the dispatcher metrics on reg.
func NewDispatcherMetrics(reg prometheus.Registerer) *DispatcherMetrics {
	if reg == nil {
		return &DispatcherMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comercio_outbox_events_total",
		Help: "Outbox events handled by event type and result.",
	}, []string{"event_type", "result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "comercio_outbox_batch_duration_seconds",
		Help:    "Duration of outbox dispatch batches.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(events, duration)
	return &DispatcherMetrics{events: events, duration: duration}
}

// IncEvent counts one event under result (dispatched, retried, dead_lettered).
func (d *DispatcherMetrics) IncEvent(eventType, result string) {
	if d == nil || d.events == nil {
		return
	}
	d.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// ObserveBatch records how long a batch took.
func (d *DispatcherMetrics) ObserveBatch(duration time.Duration) {
	if d == nil || d.duration == nil {
		return
	}
	d.duration.Observe(duration.Seconds())
}
