// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/boatrace-edge/internal/models"
)

// AuditLogger provides dedicated audit trail logging for wagering decisions.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogDecision records a betting decision at the time it is made.
func (al *AuditLogger) LogDecision(d *models.BettingDecision) {
	entry := al.WithFields(logrus.Fields{
		"decision_id":       d.ID.String(),
		"race_id":           d.RaceID,
		"combination":       d.Combination.String(),
		"probability":       d.Probability,
		"odds":              d.Odds,
		"expected_value":    d.ExpectedValue,
		"kelly_fraction":    d.KellyFraction,
		"adjusted_fraction": d.AdjustedFraction,
		"stake":             d.Stake,
		"go":                d.Go,
		"status":            string(d.Status),
		"timestamp":         d.DecidedAt.Unix(),
	})
	if d.Reason != "" {
		entry = entry.WithField("reason", d.Reason)
	}
	if d.Go {
		entry.Info("Bet recommended")
		return
	}
	entry.Debug("Bet not recommended")
}

// LogSettlement records the outcome of a settled or discarded decision.
func (al *AuditLogger) LogSettlement(d *models.BettingDecision, result models.Trifecta) {
	fields := logrus.Fields{
		"decision_id": d.ID.String(),
		"race_id":     d.RaceID,
		"combination": d.Combination.String(),
		"result":      result.String(),
		"status":      string(d.Status),
	}
	if d.ProfitLoss != nil {
		fields["profit_loss"] = *d.ProfitLoss
	}
	al.WithFields(fields).Info("Decision settled")
}

// LogExposureCap records that go stakes for a race were scaled down to the race cap.
func (al *AuditLogger) LogExposureCap(raceID string, requested, limit, scale float64) {
	al.WithFields(logrus.Fields{
		"race_id":         raceID,
		"requested_stake": requested,
		"exposure_limit":  limit,
		"scale":           scale,
	}).Warn("Race exposure cap applied")
}
