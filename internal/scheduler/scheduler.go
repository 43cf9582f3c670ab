// Package scheduler runs race evaluation on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/boatrace-edge/internal/pipeline"
)

// UpcomingEvaluator evaluates races that are about to close
type UpcomingEvaluator interface {
	EvaluateUpcoming(ctx context.Context) (*pipeline.BatchResult, error)
}

// Scheduler manages scheduled evaluation jobs
type Scheduler struct {
	cron       *cron.Cron
	evaluator  UpcomingEvaluator
	logger     *logrus.Entry
	mu         sync.RWMutex
	isRunning  bool
	jobIDs     []cron.EntryID
	jobTimeout time.Duration
	baseCtx    context.Context
	cancel     context.CancelFunc
}

// NewScheduler creates a new scheduler
func NewScheduler(evaluator UpcomingEvaluator, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		evaluator:  evaluator,
		logger:     logger.WithField("component", "scheduler"),
		jobIDs:     make([]cron.EntryID, 0),
		jobTimeout: 4 * time.Minute,
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// SetJobTimeout bounds how long one evaluation run may take
func (s *Scheduler) SetJobTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobTimeout = d
}

// ScheduleEvaluation evaluates upcoming races on a standard five-field cron expression
func (s *Scheduler) ScheduleEvaluation(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, s.runEvaluation)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("schedule", cronExpression).Info("Scheduled race evaluation")
	return nil
}

// RunOnce executes the evaluation job immediately
func (s *Scheduler) RunOnce() {
	s.runEvaluation()
}

func (s *Scheduler) runEvaluation() {
	s.mu.RLock()
	timeout := s.jobTimeout
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(s.baseCtx, timeout)
	defer cancel()

	start := time.Now()
	result, err := s.evaluator.EvaluateUpcoming(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled evaluation failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"run_id":    result.RunID.String(),
		"evaluated": len(result.Evaluations),
		"excluded":  len(result.Failures),
		"duration":  time.Since(start).String(),
	}).Info("Scheduled evaluation completed")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop cancels in-flight runs and waits for them to return
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()
	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() && (nextRun.IsZero() || entry.Next.Before(nextRun)) {
			nextRun = entry.Next
		}
	}
	return nextRun
}
