package backtest

import (
	"encoding/json"
	"math"
	"time"
)

// Metrics summarises a replay
type Metrics struct {
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	RacesReplayed int       `json:"races_replayed"`
	RacesBet      int       `json:"races_bet"`
	RacesNoOdds   int       `json:"races_no_odds"`
	RacesExcluded int       `json:"races_excluded"`
	TotalBets     int       `json:"total_bets"`
	WinningBets   int       `json:"winning_bets"`
	HitRate       float64   `json:"hit_rate"`
	TotalStaked   float64   `json:"total_staked"`
	NetProfit     float64   `json:"net_profit"`
	ROI           float64   `json:"roi"`
	TotalReturn   float64   `json:"total_return"`
	FinalBankroll float64   `json:"final_bankroll"`
	MaxDrawdown   float64   `json:"max_drawdown"`
	ProfitFactor  float64   `json:"profit_factor"`
	LargestWin    float64   `json:"largest_win"`
	SharpeRatio   float64   `json:"sharpe_ratio"`
}

// CalculateMetrics derives replay metrics from the final state
func CalculateMetrics(state *ReplayState, cfg ReplayConfig) Metrics {
	m := Metrics{StartDate: cfg.StartDate, EndDate: cfg.EndDate}
	if state == nil || len(state.EquityCurve) == 0 {
		return m
	}

	m.RacesReplayed = state.RacesReplayed
	m.RacesBet = state.RacesBet
	m.RacesNoOdds = state.RacesNoOdds
	m.RacesExcluded = state.RacesExcluded
	m.FinalBankroll = state.CurrentBankroll

	initial := state.EquityCurve[0].Value
	if initial > 0 {
		m.TotalReturn = (state.CurrentBankroll - initial) / initial
	}
	m.MaxDrawdown = state.EquityCurve.MaxDrawdown()
	m.SharpeRatio = calculateSharpeRatio(state.EquityCurve.GetReturns())

	grossProfit, grossLoss := 0.0, 0.0
	for _, d := range state.Bets {
		m.TotalBets++
		m.TotalStaked += d.Stake
		if d.ProfitLoss == nil {
			continue
		}
		pl := *d.ProfitLoss
		m.NetProfit += pl
		if pl > 0 {
			m.WinningBets++
			grossProfit += pl
			m.LargestWin = max(m.LargestWin, pl)
		} else {
			grossLoss -= pl
		}
	}
	if m.TotalBets > 0 {
		m.HitRate = float64(m.WinningBets) / float64(m.TotalBets)
	}
	if m.TotalStaked > 0 {
		m.ROI = m.NetProfit / m.TotalStaked
	}
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		m.ProfitFactor = math.Inf(1)
	}
	return m
}

// ToJSON exports metrics to JSON
func (m Metrics) ToJSON() string {
	if math.IsInf(m.ProfitFactor, 0) {
		m.ProfitFactor = 0
	}
	data, _ := json.Marshal(m)
	return string(data)
}

// calculateSharpeRatio is the per-race mean return over its standard deviation
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(float64(len(returns)))
}
