// Package logger provides pipeline-specific logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineLogger provides dedicated logging for race evaluation runs.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// LogRaceEvaluated logs a completed race evaluation.
func (pl *PipelineLogger) LogRaceEvaluated(raceID string, goDecisions, skipped int, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"race_id":                raceID,
		"go_decisions":           goDecisions,
		"skipped":                skipped,
		"evaluation_duration_ms": float64(duration.Microseconds()) / 1000,
	}).Info("Race evaluation completed")
}

// LogRaceExcluded logs a race dropped from a batch.
func (pl *PipelineLogger) LogRaceExcluded(raceID string, err error) {
	pl.WithFields(logrus.Fields{
		"race_id": raceID,
		"error":   err.Error(),
	}).Error("Race excluded from batch")
}

// LogBettingCancelled logs that the betting step was skipped for a race.
func (pl *PipelineLogger) LogBettingCancelled(raceID string, err error) {
	pl.WithFields(logrus.Fields{
		"race_id": raceID,
		"error":   err.Error(),
	}).Warn("Betting cancelled for race")
}

// LogBatchCompleted logs a finished batch run.
func (pl *PipelineLogger) LogBatchCompleted(runID string, evaluated, excluded int, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"run_id":      runID,
		"evaluated":   evaluated,
		"excluded":    excluded,
		"duration_ms": duration.Milliseconds(),
	}).Info("Batch evaluation completed")
}
