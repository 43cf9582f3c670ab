package backtest

import (
	"fmt"
	"time"
)

// ReplayConfig controls a historical replay
type ReplayConfig struct {
	StartDate       time.Time
	EndDate         time.Time
	InitialBankroll float64
	OutputPath      string
	// MonteCarloIterations is the number of simulated seasons; 0 disables the simulation
	MonteCarloIterations int
	Seed                 int64
}

// ParseReplayConfig builds a config from YYYY-MM-DD dates
func ParseReplayConfig(startDate, endDate string, bankroll float64) (ReplayConfig, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return ReplayConfig{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return ReplayConfig{}, fmt.Errorf("invalid end date: %w", err)
	}
	cfg := ReplayConfig{
		StartDate:       start,
		EndDate:         end.Add(24 * time.Hour),
		InitialBankroll: bankroll,
	}
	return cfg, cfg.Validate()
}

// Validate validates replay parameters
func (c ReplayConfig) Validate() error {
	if !c.StartDate.Before(c.EndDate) {
		return fmt.Errorf("start date must be before end date")
	}
	if c.InitialBankroll <= 0 {
		return fmt.Errorf("initial bankroll must be positive")
	}
	if c.MonteCarloIterations < 0 {
		return fmt.Errorf("monte carlo iterations cannot be negative")
	}
	return nil
}
