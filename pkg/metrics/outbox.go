package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics records the publisher loop.
type OutboxMetrics struct {
	published  *prometheus.CounterVec
	failures   *prometheus.CounterVec
	deadLetter *prometheus.CounterVec
	pending    prometheus.Gauge
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "outbox_published_total",
			Help:      "Outbox events delivered by topic.",
		}, []string{"topic"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "outbox_publish_failures_total",
			Help:      "Retryable publish failures by topic.",
		}, []string{"topic"}),
		deadLetter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "outbox_dead_lettered_total",
			Help:      "Events moved to the DLQ by reason.",
		}, []string{"reason"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pos",
			Name:      "outbox_pending",
			Help:      "Rows still waiting for delivery, sampled when the publisher goes idle.",
		}),
	}
	reg.MustRegister(m.published, m.failures, m.deadLetter, m.pending)
	return m
}

func (m *OutboxMetrics) IncPublished(topic string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(topic)).Inc()
}

func (m *OutboxMetrics) IncFailure(topic string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(topic)).Inc()
}

func (m *OutboxMetrics) IncDeadLetter(reason string) {
	if m == nil || m.deadLetter == nil {
		return
	}
	m.deadLetter.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *OutboxMetrics) SetPending(n int64) {
	if m == nil || m.pending == nil {
		return
	}
	m.pending.Set(float64(n))
}
