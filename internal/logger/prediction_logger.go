// Package logger provides model-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// PredictionLogger provides dedicated logging for the prediction models.
type PredictionLogger struct {
	*logrus.Entry
}

// NewPredictionLogger creates a new prediction logger.
func NewPredictionLogger(baseLogger *logrus.Logger) *PredictionLogger {
	return &PredictionLogger{
		Entry: baseLogger.WithField("component", "prediction"),
	}
}

// LogColdStart logs that a competitor fell back to the global lane prior.
func (pl *PredictionLogger) LogColdStart(competitorID string, settledRaces, threshold int) {
	pl.WithFields(logrus.Fields{
		"competitor_id": competitorID,
		"settled_races": settledRaces,
		"threshold":     threshold,
	}).Debug("Using global lane prior")
}

// LogLaneReconciliation logs the reconciled lane permutation for a race.
func (pl *PredictionLogger) LogLaneReconciliation(raceID string, actualLanes []int, instability int) {
	pl.WithFields(logrus.Fields{
		"race_id":      raceID,
		"actual_lanes": actualLanes,
		"instability":  instability,
	}).Debug("Lane predictions reconciled")
}

// LogIntegrationWeight logs the race-day weight chosen for a race.
func (pl *PredictionLogger) LogIntegrationWeight(raceID string, weight, exhibitionVariance, startTimingVariance float64, instability int) {
	pl.WithFields(logrus.Fields{
		"race_id":               raceID,
		"weight":                weight,
		"exhibition_variance":   exhibitionVariance,
		"start_timing_variance": startTimingVariance,
		"instability":           instability,
	}).Debug("Integration weight computed")
}

// LogDistributionDrift logs probability mass drift corrected by renormalization.
func (pl *PredictionLogger) LogDistributionDrift(raceID string, sum, drift, tolerance float64) {
	pl.WithFields(logrus.Fields{
		"race_id":   raceID,
		"sum":       sum,
		"drift":     drift,
		"tolerance": tolerance,
	}).Warn("Outcome distribution drift exceeded tolerance, renormalized")
}
