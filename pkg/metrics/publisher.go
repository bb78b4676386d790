package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublisherMetrics records metadata for the outbox publisher loop.
type PublisherMetrics struct {
	batchDuration *prometheus.HistogramVec
	published     *prometheus.CounterVec
	failed        *prometheus.CounterVec
}

// NewPublisherMetrics registers the publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_batch_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published",
		Help: "Outbox events published successfully.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_failed",
		Help: "Outbox events that failed to publish.",
	}, []string{"event_type"})
	reg.MustRegister(batchDuration, published, failed)
	return &PublisherMetrics{
		batchDuration: batchDuration,
		published:     published,
		failed:        failed,
	}
}

// ObserveBatchDuration records the duration of a publish batch for the topic.
func (p *PublisherMetrics) ObserveBatchDuration(topic string, duration time.Duration) {
	if p == nil || p.batchDuration == nil {
		return
	}
	p.batchDuration.WithLabelValues(normalizeLabel(topic)).Observe(duration.Seconds())
}

// IncPublished increments the published counter for the event type.
func (p *PublisherMetrics) IncPublished(eventType string) {
	if p == nil || p.published == nil {
		return
	}
	p.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failure counter for the event type.
func (p *PublisherMetrics) IncFailed(eventType string) {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
