// Package metrics defines replay-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ReplayRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replay_runs_total",
		Help:      "Total number of replay runs by status",
	}, []string{"status"})
	ReplayROI = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "replay_roi",
		Help:      "Return on investment of the last replay run",
	})
	ReplayDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "replay_duration_seconds",
		Help:      "Duration of replay runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
)

// RecordReplayRun records a replay run.
// status should be one of: "success", "failure"
func RecordReplayRun(status string, roi, durationSeconds float64) {
	ReplayRunsTotal.WithLabelValues(status).Inc()
	ReplayDuration.Observe(durationSeconds)
	if status == "success" {
		ReplayROI.Set(roi)
	}
}
