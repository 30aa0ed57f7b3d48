package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sale commit outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeReplayed  = "replayed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// SalesMetrics records the sale commit workflow.
type SalesMetrics struct {
	commitDuration *prometheus.HistogramVec
	commits        *prometheus.CounterVec
	retries        prometheus.Counter
	revenueCents   *prometheus.CounterVec
	voids          prometheus.Counter
	lowStock       prometheus.Counter
}

// NewSalesMetrics registers the sales metrics on reg. A nil registerer yields
// a no-op recorder.
func NewSalesMetrics(reg prometheus.Registerer) *SalesMetrics {
	if reg == nil {
		return &SalesMetrics{}
	}
	m := &SalesMetrics{
		commitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pos",
			Name:      "sale_commit_duration_seconds",
			Help:      "Duration of sale commits including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "sale_commits_total",
			Help:      "Sale commit attempts by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "sale_commit_retries_total",
			Help:      "Transaction re-runs caused by database contention.",
		}),
		revenueCents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "sale_revenue_cents_total",
			Help:      "Committed revenue in cents by payment method.",
		}, []string{"payment_method"}),
		voids: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "sale_voids_total",
			Help:      "Voided sales.",
		}),
		lowStock: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "inventory_low_stock_alerts_total",
			Help:      "Low stock alerts queued by sale commits.",
		}),
	}
	reg.MustRegister(m.commitDuration, m.commits, m.retries, m.revenueCents, m.voids, m.lowStock)
	return m
}

// ObserveCommit records one finished commit call.
func (m *SalesMetrics) ObserveCommit(outcome string, duration time.Duration) {
	if m == nil || m.commits == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.commits.WithLabelValues(outcome).Inc()
	m.commitDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncRetry counts a transaction re-run.
func (m *SalesMetrics) IncRetry() {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Inc()
}

// AddRevenue adds committed revenue for a payment method.
func (m *SalesMetrics) AddRevenue(paymentMethod string, cents int64) {
	if m == nil || m.revenueCents == nil || cents <= 0 {
		return
	}
	m.revenueCents.WithLabelValues(normalizeLabel(paymentMethod)).Add(float64(cents))
}

func (m *SalesMetrics) IncVoid() {
	if m == nil || m.voids == nil {
		return
	}
	m.voids.Inc()
}

func (m *SalesMetrics) AddLowStockAlerts(n int) {
	if m == nil || m.lowStock == nil || n <= 0 {
		return
	}
	m.lowStock.Add(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
