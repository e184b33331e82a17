package monitoring

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(t *testing.T) *Monitor {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewMonitor(logger, filepath.Join(t.TempDir(), "metrics.json"))
}

func TestRecordRun(t *testing.T) {
	m := newTestMonitor(t)

	m.RecordRun("run_1", 5, 2*time.Second, false)
	m.RecordRun("run_2", 0, time.Second, true)

	metrics := m.GetMetrics()
	assert.Equal(t, 2, metrics.HarvestRuns)
	assert.Equal(t, 1, metrics.FailedRuns)
	assert.Equal(t, 5, metrics.TotalEmails)
	assert.InDelta(t, 50.0, metrics.ErrorRate, 0.01)
	assert.Len(t, metrics.RunMetrics, 2)
	assert.True(t, metrics.RunMetrics["run_2"].Failed)
}

func TestMetricsSurviveRestart(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	file := filepath.Join(t.TempDir(), "metrics.json")

	m := NewMonitor(logger, file)
	m.RecordRun("run_1", 3, time.Second, false)

	reloaded := NewMonitor(logger, file)
	metrics := reloaded.GetMetrics()
	assert.Equal(t, 1, metrics.HarvestRuns)
	assert.Equal(t, 3, metrics.TotalEmails)
	require.Contains(t, metrics.RunMetrics, "run_1")
	assert.Equal(t, 3, metrics.RunMetrics["run_1"].EmailsFound)
}

func TestGetMetricsReturnsSnapshot(t *testing.T) {
	m := newTestMonitor(t)
	m.RecordRun("run_1", 1, time.Second, false)

	snapshot := m.GetMetrics()
	snapshot.RunMetrics["injected"] = RunMetric{}

	assert.Len(t, m.GetMetrics().RunMetrics, 1)
}

func TestHealthStatusWarnsOnFailures(t *testing.T) {
	m := newTestMonitor(t)
	assert.Equal(t, "healthy", m.GetHealthStatus()["status"])

	for i := 0; i < 3; i++ {
		m.RecordRun("run", 0, time.Second, true)
	}
	status := m.GetHealthStatus()
	assert.Equal(t, "warning", status["status"])
}
