package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("dashboard:warmup").End(nil))
	boom := errors.New("boom")
	assert.Same(t, boom, m.Track("dashboard:warmup").End(boom))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("dashboard:warmup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("dashboard:warmup", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("dashboard:warmup")))
}

func TestAddWarmed(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddWarmed("accumulated", true, 4)
	m.AddWarmed("current", false, 1)
	m.AddWarmed("current", true, 0)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.warmed.WithLabelValues("accumulated", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.warmed.WithLabelValues("current", "partial")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.warmed.WithLabelValues("current", "ok")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddWarmed("accumulated", true, 1)
	assert.NoError(t, m.Track("x").End(nil))
}
