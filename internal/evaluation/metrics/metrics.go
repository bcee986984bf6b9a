package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the evaluation module.
type Metrics struct {
	// Dispositions by status and the gate that produced them
	Outcomes *prometheus.CounterVec

	// Full evaluation latency including hashing and duplicate lookup
	EvaluateLatency prometheus.Histogram

	// Fingerprint cache lookups by result ("hit", "miss", "error")
	CacheLookups *prometheus.CounterVec

	// Store lookups and inserts by operation
	StoreLatency *prometheus.HistogramVec

	// Records whose insert failed after a disposition was computed
	PersistFailures prometheus.Counter

	// Insert-time fingerprint conflicts converted into duplicate rejections
	ClaimConflicts prometheus.Counter
}

// New creates a Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_evaluation_outcomes_total",
			Help: "Total submission dispositions by status and deciding stage",
		}, []string{"status", "stage"}),

		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_evaluation_duration_seconds",
			Help:    "Duration of a full submission evaluation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_fingerprint_cache_lookups_total",
			Help: "Fingerprint cache lookups by result",
		}, []string{"result"}),

		StoreLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "screener_record_store_duration_seconds",
			Help:    "Duration of record store operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}, []string{"operation"}),

		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "screener_record_persist_failures_total",
			Help: "Evaluated submissions whose record could not be persisted",
		}),

		ClaimConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "screener_fingerprint_claim_conflicts_total",
			Help: "Concurrent submissions that lost the fingerprint claim at insert time",
		}),
	}
}

// IncrementOutcome records a disposition.
func (m *Metrics) IncrementOutcome(status, stage string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status, stage).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// RecordCacheLookup counts a fingerprint cache lookup.
func (m *Metrics) RecordCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

// ObserveStoreLatency records how long a store operation took.
func (m *Metrics) ObserveStoreLatency(operation string, d time.Duration) {
	if m != nil {
		m.StoreLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// IncrementPersistFailures counts a record that was evaluated but not stored.
func (m *Metrics) IncrementPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

// IncrementClaimConflicts counts a lost fingerprint claim.
func (m *Metrics) IncrementClaimConflicts() {
	if m != nil {
		m.ClaimConflicts.Inc()
	}
}
