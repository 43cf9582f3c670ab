package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DecisionStatus represents the lifecycle state of a betting decision
type DecisionStatus string

const (
	DecisionRecommended DecisionStatus = "recommended"
	DecisionRejected    DecisionStatus = "rejected"
	DecisionSkipped     DecisionStatus = "skipped"
	DecisionWon         DecisionStatus = "won"
	DecisionLost        DecisionStatus = "lost"
	DecisionDiscarded   DecisionStatus = "discarded"
)

// Skip and reject reasons
const (
	ReasonOddsUnavailable  = "odds unavailable"
	ReasonBelowEVThreshold = "expected value below threshold"
	ReasonNonPositiveKelly = "kelly fraction not positive"
	ReasonRaceCap          = "outside per-race bet limit"
	ReasonBelowStakeUnit   = "stake below minimum unit"
	ReasonBettingCancelled = "betting cancelled: odds not obtained before deadline"
)

// BettingDecision is the terminal artifact of a race evaluation for one trifecta
type BettingDecision struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	RaceID           string         `db:"race_id" json:"race_id" validate:"required"`
	Combination      Trifecta       `db:"-" json:"combination"`
	Probability      float64        `db:"probability" json:"probability" validate:"gte=0,lte=1"`
	Odds             float64        `db:"odds" json:"odds"`
	ExpectedValue    float64        `db:"expected_value" json:"expected_value"`
	KellyFraction    float64        `db:"kelly_fraction" json:"kelly_fraction"`
	AdjustedFraction float64        `db:"adjusted_fraction" json:"adjusted_fraction" validate:"gte=0"`
	Stake            float64        `db:"stake" json:"stake" validate:"gte=0"`
	Go               bool           `db:"go" json:"go"`
	Status           DecisionStatus `db:"status" json:"status" validate:"required"`
	Reason           string         `db:"reason" json:"reason,omitempty"`
	DecidedAt        time.Time      `db:"decided_at" json:"decided_at"`
	SettledAt        *time.Time     `db:"settled_at" json:"settled_at,omitempty"`
	ProfitLoss       *float64       `db:"profit_loss" json:"profit_loss,omitempty"`
}

// IsSettled checks if the decision has been settled
func (d *BettingDecision) IsSettled() bool {
	return (d.Status == DecisionWon || d.Status == DecisionLost) && d.SettledAt != nil
}

// IsOpen reports whether the decision is still awaiting settlement or discard
func (d *BettingDecision) IsOpen() bool {
	switch d.Status {
	case DecisionRecommended, DecisionRejected, DecisionSkipped:
		return true
	default:
		return false
	}
}

// Settle resolves a go decision against the official finishing order
func (d *BettingDecision) Settle(result Trifecta, at time.Time) error {
	if d.Status != DecisionRecommended || !d.Go {
		return fmt.Errorf("%w: cannot settle %s decision", ErrDecisionState, d.Status)
	}
	pnl := -d.Stake
	d.Status = DecisionLost
	if d.Combination == result {
		pnl = (d.Odds - 1.0) * d.Stake
		d.Status = DecisionWon
	}
	d.ProfitLoss = &pnl
	d.SettledAt = &at
	return nil
}

// Discard closes a no-go decision once the betting window has passed
func (d *BettingDecision) Discard(at time.Time) error {
	if d.Go || !d.IsOpen() {
		return fmt.Errorf("%w: cannot discard %s decision", ErrDecisionState, d.Status)
	}
	d.Status = DecisionDiscarded
	d.SettledAt = &at
	return nil
}

// GetROI returns the return on investment percentage
func (d *BettingDecision) GetROI() float64 {
	if d.Stake == 0 || d.ProfitLoss == nil {
		return 0
	}
	return (*d.ProfitLoss / d.Stake) * 100
}
