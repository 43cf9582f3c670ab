// Package metrics defines prediction-model metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ColdStartFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lane_cold_start_fallbacks_total",
		Help:      "Total number of lane predictions served from the global prior",
	})
	DistributionDriftTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outcome_distribution_drift_total",
		Help:      "Total number of outcome distributions whose mass drifted beyond tolerance",
	})
)

var (
	IntegrationWeight = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "integration_weight",
		Help:      "Race-day weight chosen by the dynamic integrator",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})
	LaneInstability = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "lane_instability_count",
		Help:      "Entries per race predicted to start away from their drawn lane",
		Buckets:   []float64{0, 1, 2, 3, 4, 5, 6},
	})
)

// RecordColdStart records a cold-start lane prediction.
func RecordColdStart() {
	ColdStartFallbacksTotal.Inc()
}

// RecordDistributionDrift records a drift correction.
func RecordDistributionDrift() {
	DistributionDriftTotal.Inc()
}

// RecordIntegration records the weight and instability for one race.
func RecordIntegration(weight float64, instability int) {
	IntegrationWeight.Observe(weight)
	LaneInstability.Observe(float64(instability))
}
