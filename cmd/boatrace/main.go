// Package main provides the boatrace-edge command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/boatrace-edge/internal/config"
	"github.com/yourusername/boatrace-edge/internal/database"
	applogger "github.com/yourusername/boatrace-edge/internal/logger"
	"github.com/yourusername/boatrace-edge/internal/metrics"
	"github.com/yourusername/boatrace-edge/internal/oddsfeed"
	"github.com/yourusername/boatrace-edge/internal/pipeline"
	"github.com/yourusername/boatrace-edge/internal/repository"
	"github.com/yourusername/boatrace-edge/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	cfg        *config.Config
	logger     *logrus.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "boatrace",
		Short:         "Trifecta probability and betting decisions for boat races",
		Version:       fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")

	root.AddCommand(
		newEvaluateCmd(),
		newServeCmd(),
		newSettleCmd(),
		newBacktestCmd(),
		newMigrateCmd(),
	)
	return root
}

// setup loads configuration, overlays AWS secrets when enabled and builds the logger
func setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = applogger.NewLoggerForEnvironment(cfg.App.LogLevel, cfg.App.Environment)
	metrics.InitRegistry()
	return nil
}

// app holds the wired dependencies shared by the commands
type app struct {
	db        *database.DB
	repos     *repository.Repositories
	odds      *oddsfeed.Provider
	stream    *oddsfeed.StreamClient
	evaluator *pipeline.Evaluator
}

func newApp(ctx context.Context) (*app, error) {
	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Database connection established")

	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	provider, stream := oddsfeed.NewProvider(cfg.OddsFeed, logger)
	odds := service.NewRecordingOddsSource(provider, repos.Odds, logger)

	return &app{
		db:        db,
		repos:     repos,
		odds:      provider,
		stream:    stream,
		evaluator: pipeline.NewEvaluator(cfg, repos.History, odds, logger),
	}, nil
}

func (a *app) Close() {
	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close odds stream")
		}
	}
	a.db.Close()
}
