package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/boatrace-edge/internal/models"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newLogger(buf, "verbose", true)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "Invalid log level")
}

func TestNewLoggerForEnvironment(t *testing.T) {
	log := NewLoggerForEnvironment("debug", "production")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = NewLoggerForEnvironment("warn", "development")
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestAuditLoggerDecision(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	id := uuid.New()
	auditLogger.LogDecision(&models.BettingDecision{
		ID:               id,
		RaceID:           "20240203-01-01",
		Combination:      models.Trifecta{First: 1, Second: 2, Third: 3},
		Probability:      0.3,
		Odds:             5.0,
		ExpectedValue:    0.5,
		KellyFraction:    0.125,
		AdjustedFraction: 0.03125,
		Stake:            3125,
		Go:               true,
		Status:           models.DecisionRecommended,
		DecidedAt:        time.Date(2024, 2, 3, 12, 0, 0, 0, time.UTC),
	})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, id.String(), logEntry["decision_id"])
	assert.Equal(t, "1-2-3", logEntry["combination"])
	assert.Equal(t, true, logEntry["go"])
	assert.Equal(t, "info", logEntry["level"])
}

func TestAuditLoggerSkippedDecision(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogDecision(&models.BettingDecision{
		RaceID:      "r1",
		Combination: models.Trifecta{First: 2, Second: 1, Third: 3},
		Status:      models.DecisionSkipped,
		Reason:      models.ReasonOddsUnavailable,
	})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, models.ReasonOddsUnavailable, logEntry["reason"])
	assert.Equal(t, "debug", logEntry["level"])
}

func TestAuditLoggerSettlement(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	combo := models.Trifecta{First: 1, Second: 2, Third: 3}
	d := &models.BettingDecision{Combination: combo, Odds: 5, Stake: 100, Go: true, Status: models.DecisionRecommended}
	require.NoError(t, d.Settle(combo, time.Now()))

	auditLogger.LogSettlement(d, combo)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "won", logEntry["status"])
	assert.Equal(t, 400.0, logEntry["profit_loss"])
}

func TestPredictionLoggerDrift(t *testing.T) {
	log, buf := setupTestLogger()
	predictionLogger := NewPredictionLogger(log)

	predictionLogger.LogDistributionDrift("r1", 1.00001, 0.00001, 1e-6)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "prediction", logEntry["component"])
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "r1", logEntry["race_id"])
}

func TestPredictionLoggerColdStart(t *testing.T) {
	log, buf := setupTestLogger()
	predictionLogger := NewPredictionLogger(log)

	predictionLogger.LogColdStart("4001", 3, 10)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(3), logEntry["settled_races"])
}

func TestPipelineLoggerRaceExcluded(t *testing.T) {
	log, buf := setupTestLogger()
	pipelineLogger := NewPipelineLogger(log)

	pipelineLogger.LogRaceExcluded("r9", errors.New("race must have exactly 6 entries"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "pipeline", logEntry["component"])
	assert.Equal(t, "race must have exactly 6 entries", logEntry["error"])
}

func BenchmarkAuditLoggerDecision(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	auditLogger := NewAuditLogger(log)
	d := &models.BettingDecision{
		ID:          uuid.New(),
		RaceID:      "r1",
		Combination: models.Trifecta{First: 1, Second: 2, Third: 3},
		Go:          true,
		Status:      models.DecisionRecommended,
		DecidedAt:   time.Now(),
	}

	for i := 0; i < b.N; i++ {
		auditLogger.LogDecision(d)
	}
}
