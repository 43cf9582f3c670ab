// Package metrics provides centralized Prometheus metrics registry for the prediction engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "boatrace_edge"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	RacesEvaluatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "races_evaluated_total",
		Help:      "Total number of races evaluated",
	})
	RacesExcludedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "races_excluded_total",
		Help:      "Total number of races excluded from a batch by reason",
	}, []string{"reason"})
	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Total number of betting decisions by status",
	}, []string{"status"})
	BettingCancelledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "betting_cancelled_total",
		Help:      "Total number of races whose betting step was cancelled",
	})
	OddsFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "odds_fetch_total",
		Help:      "Total number of odds fetches by source and outcome",
	}, []string{"source", "outcome"})
	DecisionsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_published_total",
		Help:      "Total number of decisions published by outcome",
	}, []string{"outcome"})
)

// Gauge metrics
var (
	CurrentBankroll = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_bankroll",
		Help:      "Current bankroll in currency units",
	})
	RaceExposure = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "race_exposure",
		Help:      "Total recommended stake per race",
	}, []string{"race_id"})
)

// Histogram metrics
var (
	RaceEvaluationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "race_evaluation_duration_seconds",
		Help:      "Duration of a single race evaluation in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
	OddsFetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "odds_fetch_latency_seconds",
		Help:      "Latency of market odds retrieval in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(RacesEvaluatedTotal)
		registry.MustRegister(RacesExcludedTotal)
		registry.MustRegister(DecisionsTotal)
		registry.MustRegister(BettingCancelledTotal)
		registry.MustRegister(OddsFetchTotal)
		registry.MustRegister(DecisionsPublishedTotal)

		registry.MustRegister(CurrentBankroll)
		registry.MustRegister(RaceExposure)

		registry.MustRegister(RaceEvaluationDuration)
		registry.MustRegister(OddsFetchLatency)

		// Model metrics
		registry.MustRegister(ColdStartFallbacksTotal)
		registry.MustRegister(DistributionDriftTotal)
		registry.MustRegister(IntegrationWeight)
		registry.MustRegister(LaneInstability)

		// Replay metrics
		registry.MustRegister(ReplayRunsTotal)
		registry.MustRegister(ReplayROI)
		registry.MustRegister(ReplayDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordRaceEvaluated records a completed race evaluation.
func RecordRaceEvaluated(durationSeconds float64) {
	RacesEvaluatedTotal.Inc()
	RaceEvaluationDuration.Observe(durationSeconds)
}

// RecordRaceExcluded records a race excluded from a batch.
func RecordRaceExcluded(reason string) {
	RacesExcludedTotal.WithLabelValues(reason).Inc()
}

// RecordDecision records a betting decision by status.
func RecordDecision(status string) {
	DecisionsTotal.WithLabelValues(status).Inc()
}

// RecordBettingCancelled records a cancelled betting step.
func RecordBettingCancelled() {
	BettingCancelledTotal.Inc()
}

// RecordOddsFetch records an odds fetch.
// source should be one of: "cache", "stream", "http"
func RecordOddsFetch(source, outcome string, durationSeconds float64) {
	OddsFetchTotal.WithLabelValues(source, outcome).Inc()
	OddsFetchLatency.Observe(durationSeconds)
}

// RecordDecisionPublished records a publish attempt.
func RecordDecisionPublished(outcome string) {
	DecisionsPublishedTotal.WithLabelValues(outcome).Inc()
}

// UpdateBankroll updates the current bankroll gauge.
func UpdateBankroll(amount float64) {
	CurrentBankroll.Set(amount)
}

// UpdateRaceExposure sets the total recommended stake for a race.
func UpdateRaceExposure(raceID string, amount float64) {
	RaceExposure.WithLabelValues(raceID).Set(amount)
}
