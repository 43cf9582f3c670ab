package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/boatrace-edge/internal/health"
	"github.com/yourusername/boatrace-edge/internal/oddsfeed"
	"github.com/yourusername/boatrace-edge/internal/pipeline"
	"github.com/yourusername/boatrace-edge/internal/publisher"
	"github.com/yourusername/boatrace-edge/internal/repository"
	"github.com/yourusername/boatrace-edge/internal/scheduler"
	"github.com/yourusername/boatrace-edge/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled evaluation with health and metrics endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.db.EnsureSchema(ctx); err != nil {
		return err
	}

	pub, err := publisher.New(cfg.Kafka, logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	srv := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Port:        cfg.Metrics.Port,
		MetricsPath: cfg.Metrics.Path,
		Logger:      logger,
		DB:          a.db,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	if a.stream != nil {
		if err := a.stream.Connect(ctx); err != nil {
			logger.WithError(err).Warn("Odds stream unavailable; falling back to polling")
		}
		go func() {
			if err := a.stream.Run(ctx); err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("Odds stream stopped")
			}
		}()
	}

	svc := service.NewEvaluationService(a.repos.Race, a.repos.Decisions, a.evaluator, pub,
		time.Duration(cfg.Pipeline.LookaheadMinutes)*time.Minute, logger)

	var evaluator scheduler.UpcomingEvaluator = svc
	if a.stream != nil {
		evaluator = &subscribingEvaluator{
			EvaluationService: svc,
			races:             a.repos.Race,
			stream:            a.stream,
			window:            2 * time.Duration(cfg.Pipeline.LookaheadMinutes) * time.Minute,
		}
	}

	sched := scheduler.NewScheduler(evaluator, logger)
	if err := sched.ScheduleEvaluation(cfg.Pipeline.Schedule); err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	srv.SetReady(true)

	logger.WithField("next_run", sched.GetNextRun()).Info("boatrace-edge running")
	<-ctx.Done()

	logger.Info("Shutdown signal received")
	srv.SetReady(false)
	if err := sched.Stop(); err != nil {
		logger.WithError(err).Error("Error stopping scheduler")
	}
	hits, misses, _ := a.odds.Cache().Stats()
	logger.WithFields(logrus.Fields{"odds_cache_hits": hits, "odds_cache_misses": misses}).Info("boatrace-edge stopped")
	return nil
}

// subscribingEvaluator keeps the odds stream subscribed to races closing
// within twice the lookahead, so they are cached before they are evaluated.
type subscribingEvaluator struct {
	*service.EvaluationService
	races  repository.RaceRepository
	stream *oddsfeed.StreamClient
	window time.Duration
}

func (e *subscribingEvaluator) EvaluateUpcoming(ctx context.Context) (*pipeline.BatchResult, error) {
	now := time.Now()
	cards, err := e.races.GetUpcoming(ctx, now, now.Add(e.window))
	if err != nil {
		logger.WithError(err).Warn("Failed to load races for odds subscription")
	} else {
		ids := make([]string, 0, len(cards))
		for _, c := range cards {
			ids = append(ids, c.Race.ID)
		}
		if err := e.stream.Subscribe(ids); err != nil {
			logger.WithError(err).Debug("Odds stream subscription skipped")
		}
	}
	return e.EvaluationService.EvaluateUpcoming(ctx)
}
