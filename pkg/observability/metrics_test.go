package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsObserveOperation(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveOperation("create", "success")
	m.ObserveOperation("create", "success")
	m.ObserveOperation("update", "lock_conflict")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.LifecycleOperationsTotal.WithLabelValues("create", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LifecycleOperationsTotal.WithLabelValues("update", "lock_conflict")))
}

func TestMetricsMirrorWrites(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveMirrorWrite(true)
	m.ObserveMirrorWrite(false)
	m.ObserveMirrorWrite(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.MirrorWritesTotal.WithLabelValues("success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.MirrorWritesTotal.WithLabelValues("failure")))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	// a nil Metrics disables instrumentation without nil checks at call sites
	m.ObserveOperation("create", "success")
	m.ObservePersistence("create", time.Millisecond)
	m.ObserveMirrorWrite(true)
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	assert.NotNil(t, m.Handler())
}
