package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourusername/boatrace-edge/internal/models"
	"github.com/yourusername/boatrace-edge/internal/service"
)

func newSettleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle <result.json>",
		Short: "Record an official race result and settle its decisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := readResult(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := service.NewSettlementService(a.repos.Race, a.repos.History, a.repos.Decisions, logger)
			summary, err := svc.SettleRace(ctx, result)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
}

func readResult(path string) (*models.RaceResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}
	var result models.RaceResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	if result.RaceID == "" {
		return nil, fmt.Errorf("result has no race_id")
	}
	return &result, nil
}
