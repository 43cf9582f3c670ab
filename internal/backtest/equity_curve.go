package backtest

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// EquityPoint is the bankroll after one settled race
type EquityPoint struct {
	Time     time.Time `json:"time"`
	Value    float64   `json:"value"`
	Drawdown float64   `json:"drawdown"`
	PnL      float64   `json:"pnl"`
}

// EquityCurve is the bankroll over the replay, one point per race
type EquityCurve []EquityPoint

// GetReturns calculates per-race returns
func (e EquityCurve) GetReturns() []float64 {
	if len(e) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(e)-1)
	for i := 1; i < len(e); i++ {
		prev := e[i-1].Value
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (e[i].Value-prev)/prev)
	}
	return returns
}

// MaxDrawdown returns the largest peak-to-trough fall as a fraction of the peak
func (e EquityCurve) MaxDrawdown() float64 {
	maxDD, peak := 0.0, 0.0
	for _, p := range e {
		peak = max(peak, p.Value)
		if peak == 0 {
			continue
		}
		maxDD = max(maxDD, (peak-p.Value)/peak)
	}
	return maxDD
}

// WriteCSV writes the curve with a header row
func (e EquityCurve) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "value", "drawdown", "pnl"}); err != nil {
		return err
	}
	for _, p := range e {
		record := []string{
			p.Time.Format(time.RFC3339),
			strconv.FormatFloat(p.Value, 'f', 2, 64),
			strconv.FormatFloat(p.Drawdown, 'f', 6, 64),
			strconv.FormatFloat(p.PnL, 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
