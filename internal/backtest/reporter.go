package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GenerateConsoleReport formats metrics for terminal output
func GenerateConsoleReport(m Metrics, mc *MonteCarloResult) string {
	var b strings.Builder
	b.WriteString("Replay Report\n")
	b.WriteString("=============\n")
	fmt.Fprintf(&b, "Window: %s to %s\n", m.StartDate.Format("2006-01-02"), m.EndDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Races: %d replayed, %d bet, %d without odds, %d excluded\n", m.RacesReplayed, m.RacesBet, m.RacesNoOdds, m.RacesExcluded)
	fmt.Fprintf(&b, "Bets: %d (hit rate %.2f%%)\n", m.TotalBets, m.HitRate*100)
	fmt.Fprintf(&b, "Staked: %.0f  Net: %.0f  ROI: %.2f%%\n", m.TotalStaked, m.NetProfit, m.ROI*100)
	fmt.Fprintf(&b, "Bankroll: %.0f (%.2f%%)\n", m.FinalBankroll, m.TotalReturn*100)
	fmt.Fprintf(&b, "Max Drawdown: %.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(&b, "Sharpe Ratio: %.2f\n", m.SharpeRatio)
	if mc != nil {
		fmt.Fprintf(&b, "Simulated: mean %.2f%%, 5th pct %.2f%%, P(profit) %.2f%% over %d runs\n",
			mc.MeanReturn*100, mc.Percentile5*100, mc.ProbabilityOfProfit*100, mc.Iterations)
	}
	return b.String()
}

// WriteReport writes metrics JSON and the equity curve CSV into dir
func WriteReport(dir string, m Metrics, curve EquityCurve) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "metrics.json"), []byte(m.ToJSON()), 0o644); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, "equity_curve.csv"))
	if err != nil {
		return err
	}
	if err := curve.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
