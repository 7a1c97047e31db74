package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the record service.
type Metrics struct {
	// Lifecycle metrics
	LifecycleOperationsTotal *prometheus.CounterVec
	PersistenceDuration      *prometheus.HistogramVec

	// Mirror metrics
	MirrorWritesTotal  *prometheus.CounterVec
	ResyncPendingTotal prometheus.Gauge
	ResyncSweepsTotal  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		LifecycleOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordkit_lifecycle_operations_total",
				Help: "Total number of lifecycle operations",
			},
			[]string{"scenario", "outcome"},
		),
		PersistenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recordkit_persistence_duration_seconds",
				Help:    "Primary store write duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scenario"},
		),
		MirrorWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordkit_mirror_writes_total",
				Help: "Total number of mirror store writes",
			},
			[]string{"status"},
		),
		ResyncPendingTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "recordkit_resync_pending_total",
				Help: "Records currently flagged for mirror re-sync",
			},
		),
		ResyncSweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordkit_resync_sweeps_total",
				Help: "Total number of re-sync sweep runs",
			},
			[]string{"status"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.LifecycleOperationsTotal,
		m.PersistenceDuration,
		m.MirrorWritesTotal,
		m.ResyncPendingTotal,
		m.ResyncSweepsTotal,
	)

	return m
}

// ObserveOperation records one lifecycle operation outcome.
func (m *Metrics) ObserveOperation(scenario, outcome string) {
	if m == nil {
		return
	}
	m.LifecycleOperationsTotal.WithLabelValues(scenario, outcome).Inc()
}

// ObservePersistence records the duration of a primary store write.
func (m *Metrics) ObservePersistence(scenario string, d time.Duration) {
	if m == nil {
		return
	}
	m.PersistenceDuration.WithLabelValues(scenario).Observe(d.Seconds())
}

// ObserveMirrorWrite records a mirror write attempt.
func (m *Metrics) ObserveMirrorWrite(ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failure"
	}
	m.MirrorWritesTotal.WithLabelValues(status).Inc()
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
