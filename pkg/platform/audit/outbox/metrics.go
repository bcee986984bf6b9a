package outbox

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the outbox relay.
type Metrics struct {
	Published     prometheus.Counter
	Failures      prometheus.Counter
	BatchDuration prometheus.Histogram
}

// NewMetrics creates relay metrics registered with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer registers the metrics with reg.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounter(prometheus.CounterOpts{
			Name: "screener_outbox_published_total",
			Help: "Total number of outbox entries published to the broker",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Name: "screener_outbox_relay_failures_total",
			Help: "Total number of outbox batches that failed to relay",
		}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_outbox_batch_duration_seconds",
			Help:    "Time spent relaying one outbox batch",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) AddPublished(n int) {
	if m != nil {
		m.Published.Add(float64(n))
	}
}

func (m *Metrics) IncFailures() {
	if m != nil {
		m.Failures.Inc()
	}
}

func (m *Metrics) ObserveBatchDuration(d time.Duration) {
	if m != nil {
		m.BatchDuration.Observe(d.Seconds())
	}
}
