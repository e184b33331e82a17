package monitoring

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Metrics struct {
	HarvestRuns    int                  `json:"harvest_runs"`
	FailedRuns     int                  `json:"failed_runs"`
	TotalEmails    int                  `json:"total_emails"`
	LastRun        time.Time            `json:"last_run"`
	AverageRunTime time.Duration        `json:"average_run_time"`
	ErrorRate      float64              `json:"error_rate"`
	RunMetrics     map[string]RunMetric `json:"run_metrics"`
}

type RunMetric struct {
	EmailsFound int           `json:"emails_found"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completed_at"`
	Failed      bool          `json:"failed"`
}

// Monitor keeps run counters in memory and mirrors them to a JSON file so
// they survive restarts. Safe for concurrent runs.
type Monitor struct {
	mu          sync.Mutex
	metrics     *Metrics
	logger      *logrus.Logger
	metricsFile string
}

func NewMonitor(logger *logrus.Logger, metricsFile string) *Monitor {
	monitor := &Monitor{
		metrics: &Metrics{
			RunMetrics: make(map[string]RunMetric),
		},
		logger:      logger,
		metricsFile: metricsFile,
	}

	monitor.loadMetrics()
	return monitor
}

func (m *Monitor) RecordRun(runID string, emailsFound int, duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.HarvestRuns++
	m.metrics.TotalEmails += emailsFound
	if failed {
		m.metrics.FailedRuns++
	}
	m.metrics.LastRun = time.Now()

	if m.metrics.HarvestRuns > 1 {
		m.metrics.AverageRunTime = (m.metrics.AverageRunTime + duration) / 2
	} else {
		m.metrics.AverageRunTime = duration
	}

	if m.metrics.HarvestRuns > 0 {
		m.metrics.ErrorRate = float64(m.metrics.FailedRuns) / float64(m.metrics.HarvestRuns) * 100
	}

	m.metrics.RunMetrics[runID] = RunMetric{
		EmailsFound: emailsFound,
		Duration:    duration,
		CompletedAt: time.Now(),
		Failed:      failed,
	}

	m.saveMetrics()

	m.logger.Infof("Recorded run %s: %d emails, %v duration, failed=%v",
		runID, emailsFound, duration, failed)
}

func (m *Monitor) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := *m.metrics
	snapshot.RunMetrics = make(map[string]RunMetric, len(m.metrics.RunMetrics))
	for id, rm := range m.metrics.RunMetrics {
		snapshot.RunMetrics[id] = rm
	}
	return snapshot
}

func (m *Monitor) GetHealthStatus() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := map[string]interface{}{
		"status":          "healthy",
		"total_runs":      m.metrics.HarvestRuns,
		"error_rate":      fmt.Sprintf("%.2f%%", m.metrics.ErrorRate),
		"average_runtime": m.metrics.AverageRunTime.String(),
	}
	if !m.metrics.LastRun.IsZero() {
		status["last_run"] = m.metrics.LastRun.Format(time.RFC3339)
	}

	if m.metrics.ErrorRate > 50 && m.metrics.HarvestRuns > 2 {
		status["status"] = "warning"
		status["warning"] = "High run failure rate detected"
	}

	return status
}

// loadMetrics must only be called before the monitor is shared.
func (m *Monitor) loadMetrics() {
	if _, err := os.Stat(m.metricsFile); os.IsNotExist(err) {
		m.logger.Info("No existing metrics file found, starting fresh")
		return
	}

	data, err := os.ReadFile(m.metricsFile)
	if err != nil {
		m.logger.Warnf("Failed to read metrics file: %v", err)
		return
	}

	if err := json.Unmarshal(data, m.metrics); err != nil {
		m.logger.Warnf("Failed to parse metrics file: %v", err)
		return
	}
	if m.metrics.RunMetrics == nil {
		m.metrics.RunMetrics = make(map[string]RunMetric)
	}

	m.logger.Info("Loaded existing metrics from file")
}

// saveMetrics is called with the lock held.
func (m *Monitor) saveMetrics() {
	data, err := json.MarshalIndent(m.metrics, "", "  ")
	if err != nil {
		m.logger.Errorf("Failed to marshal metrics: %v", err)
		return
	}

	if err := os.WriteFile(m.metricsFile, data, 0644); err != nil {
		m.logger.Errorf("Failed to save metrics: %v", err)
		return
	}
}
