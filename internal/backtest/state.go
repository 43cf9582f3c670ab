package backtest

import (
	"time"

	"github.com/yourusername/boatrace-edge/internal/models"
)

// ReplayState tracks the running bankroll during a replay
type ReplayState struct {
	CurrentBankroll float64
	PeakBankroll    float64
	Bets            []*models.BettingDecision
	EquityCurve     EquityCurve
	DailyPnL        map[time.Time]float64
	RacesReplayed   int
	RacesBet        int
	RacesNoOdds     int
	RacesExcluded   int
}

// NewReplayState initializes replay state
func NewReplayState(initialBankroll float64, start time.Time) *ReplayState {
	state := &ReplayState{
		CurrentBankroll: initialBankroll,
		PeakBankroll:    initialBankroll,
		EquityCurve:     EquityCurve{},
		DailyPnL:        make(map[time.Time]float64),
	}
	state.RecordEquityPoint(start, initialBankroll)
	return state
}

// UpdateState applies a settled decision to the bankroll
func (s *ReplayState) UpdateState(d *models.BettingDecision) {
	if d.ProfitLoss == nil {
		return
	}
	pnl := *d.ProfitLoss
	s.CurrentBankroll += pnl
	if s.CurrentBankroll > s.PeakBankroll {
		s.PeakBankroll = s.CurrentBankroll
	}
	s.Bets = append(s.Bets, d)

	if d.SettledAt != nil {
		at := d.SettledAt.UTC()
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
		s.DailyPnL[day] += pnl
	}
}

// GetCurrentDrawdown calculates peak-to-trough drawdown
func (s *ReplayState) GetCurrentDrawdown() float64 {
	if s.PeakBankroll == 0 {
		return 0
	}
	return max(0, (s.PeakBankroll-s.CurrentBankroll)/s.PeakBankroll)
}

// RecordEquityPoint adds an equity point to the curve
func (s *ReplayState) RecordEquityPoint(t time.Time, value float64) {
	drawdown := 0.0
	if value < s.PeakBankroll && s.PeakBankroll > 0 {
		drawdown = (s.PeakBankroll - value) / s.PeakBankroll
	}
	pnl := 0.0
	if n := len(s.EquityCurve); n > 0 {
		pnl = value - s.EquityCurve[n-1].Value
	}
	s.EquityCurve = append(s.EquityCurve, EquityPoint{Time: t, Value: value, Drawdown: drawdown, PnL: pnl})
}
