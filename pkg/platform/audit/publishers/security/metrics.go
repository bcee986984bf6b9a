package security

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for security audit emission.
type Metrics struct {
	EventsEmitted   prometheus.Counter
	EventsDropped   prometheus.Counter
	PersistFailures prometheus.Counter
}

// NewMetrics creates security metrics registered with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer registers the metrics with reg.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsEmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "screener_audit_security_emitted_total",
			Help: "Total number of security audit events persisted",
		}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "screener_audit_security_dropped_total",
			Help: "Total number of security audit events overwritten before they were flushed",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "screener_audit_security_persist_failures_total",
			Help: "Total number of security audit events that failed to persist",
		}),
	}
}

func (m *Metrics) incEmitted() {
	if m != nil {
		m.EventsEmitted.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.EventsDropped.Inc()
	}
}

func (m *Metrics) incPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}
