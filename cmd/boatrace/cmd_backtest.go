package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/boatrace-edge/internal/backtest"
	"github.com/yourusername/boatrace-edge/internal/pipeline"
)

func newBacktestCmd() *cobra.Command {
	var (
		startDate  string
		endDate    string
		bankroll   float64
		output     string
		iterations int
		seed       int64
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay settled races with a running bankroll",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bankroll <= 0 {
				bankroll = cfg.Betting.Bankroll
			}
			replayCfg, err := backtest.ParseReplayConfig(startDate, endDate, bankroll)
			if err != nil {
				return err
			}
			replayCfg.OutputPath = output
			replayCfg.MonteCarloIterations = iterations
			replayCfg.Seed = seed
			if err := replayCfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.repos.History.Snapshot(ctx)
			if err != nil {
				return err
			}

			// replay never fetches live odds or reads the shared history store
			evaluator := pipeline.NewEvaluator(cfg, nil, nil, logger)
			engine, err := backtest.NewEngine(replayCfg, a.repos.Race, evaluator, snap.All(), logger)
			if err != nil {
				return err
			}

			state, m, err := engine.Run(ctx)
			if err != nil {
				return err
			}

			var mc *backtest.MonteCarloResult
			if iterations > 0 {
				result := backtest.RunMonteCarlo(state.Bets, replayCfg.InitialBankroll, iterations, seed)
				mc = &result
			}
			fmt.Print(backtest.GenerateConsoleReport(m, mc))

			if output != "" {
				if err := backtest.WriteReport(output, m, state.EquityCurve); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				logger.WithField("path", output).Info("Replay report written")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&startDate, "start-date", "", "First race day to replay (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "Last race day to replay (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&bankroll, "bankroll", 0, "Initial bankroll; defaults to betting.bankroll")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Directory for metrics.json and equity_curve.csv")
	cmd.Flags().IntVar(&iterations, "monte-carlo", 0, "Number of simulated seasons")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed for the simulation")
	_ = cmd.MarkFlagRequired("start-date")
	_ = cmd.MarkFlagRequired("end-date")
	return cmd
}
