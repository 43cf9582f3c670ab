package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/boatrace-edge/internal/pipeline"
	"github.com/yourusername/boatrace-edge/internal/publisher"
	"github.com/yourusername/boatrace-edge/internal/service"
)

func newEvaluateCmd() *cobra.Command {
	var (
		topK    int
		publish bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate [race-id...]",
		Short: "Evaluate races and print trifecta probabilities and betting decisions",
		Long: `Evaluates the given races, or every race inside the lookahead window when no
race IDs are given, and writes one JSON report per race to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var pub publisher.Publisher = publisher.NoopPublisher{}
			if publish {
				if pub, err = publisher.New(cfg.Kafka, logger); err != nil {
					return err
				}
				defer pub.Close()
			}

			svc := service.NewEvaluationService(a.repos.Race, a.repos.Decisions, a.evaluator, pub,
				time.Duration(cfg.Pipeline.LookaheadMinutes)*time.Minute, logger)

			var result *pipeline.BatchResult
			if len(args) == 0 {
				result, err = svc.EvaluateUpcoming(ctx)
			} else {
				result, err = svc.EvaluateRaces(ctx, args)
			}
			if err != nil {
				return err
			}

			for _, f := range result.Failures {
				logger.WithFields(logrus.Fields{"race_id": f.RaceID, "error": f.Err}).Warn("Race excluded")
			}
			return writeReports(result, topK)
		},
	}
	cmd.Flags().IntVarP(&topK, "top", "k", 10, "Number of most likely trifectas to report per race")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish decision events to Kafka")
	return cmd
}

type raceReport struct {
	*pipeline.RaceEvaluation
	Top []outcomeReport `json:"top"`
}

type outcomeReport struct {
	Combination string  `json:"combination"`
	Probability float64 `json:"probability"`
}

func writeReports(result *pipeline.BatchResult, topK int) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, ev := range result.Evaluations {
		report := raceReport{RaceEvaluation: ev}
		for _, o := range ev.TopK(topK) {
			report.Top = append(report.Top, outcomeReport{Combination: o.Combination.String(), Probability: o.Probability})
		}
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}
