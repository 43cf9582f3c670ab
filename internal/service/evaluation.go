// Package service coordinates evaluation, persistence and settlement of races.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/boatrace-edge/internal/models"
	"github.com/yourusername/boatrace-edge/internal/pipeline"
	"github.com/yourusername/boatrace-edge/internal/publisher"
	"github.com/yourusername/boatrace-edge/internal/repository"
)

// EvaluationService loads race cards, evaluates them and records the decisions
type EvaluationService struct {
	races     repository.RaceRepository
	decisions repository.DecisionRepository
	evaluator *pipeline.Evaluator
	publisher publisher.Publisher
	lookahead time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

// NewEvaluationService creates a new evaluation service
func NewEvaluationService(
	races repository.RaceRepository,
	decisions repository.DecisionRepository,
	evaluator *pipeline.Evaluator,
	pub publisher.Publisher,
	lookahead time.Duration,
	logger *logrus.Logger,
) *EvaluationService {
	if pub == nil {
		pub = publisher.NoopPublisher{}
	}
	return &EvaluationService{
		races:     races,
		decisions: decisions,
		evaluator: evaluator,
		publisher: pub,
		lookahead: lookahead,
		logger:    logger,
		now:       time.Now,
	}
}

// EvaluateUpcoming evaluates every race whose deadline falls inside the lookahead window
func (s *EvaluationService) EvaluateUpcoming(ctx context.Context) (*pipeline.BatchResult, error) {
	now := s.now()
	cards, err := s.races.GetUpcoming(ctx, now, now.Add(s.lookahead))
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming races: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"races":     len(cards),
		"lookahead": s.lookahead.String(),
	}).Info("Evaluating upcoming races")
	return s.evaluate(ctx, cards)
}

// EvaluateRaces evaluates the named races
func (s *EvaluationService) EvaluateRaces(ctx context.Context, raceIDs []string) (*pipeline.BatchResult, error) {
	cards := make([]*models.RaceCard, 0, len(raceIDs))
	for _, id := range raceIDs {
		card, err := s.races.GetCard(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load race %s: %w", id, err)
		}
		cards = append(cards, card)
	}
	return s.evaluate(ctx, cards)
}

func (s *EvaluationService) evaluate(ctx context.Context, cards []*models.RaceCard) (*pipeline.BatchResult, error) {
	result, err := s.evaluator.EvaluateBatch(ctx, Inputs(cards))
	if err != nil {
		return nil, err
	}

	var events []*publisher.DecisionEvent
	for _, ev := range result.Evaluations {
		if ev.Book == nil {
			continue
		}
		closed, err := s.hasClosedDecisions(ctx, ev.RaceID)
		if err != nil {
			return result, err
		}
		if closed {
			s.logger.WithField("race_id", ev.RaceID).Warn("Race already settled, decisions left unchanged")
			continue
		}
		if err := s.decisions.SaveBatch(ctx, ev.Book.Decisions); err != nil {
			return result, fmt.Errorf("failed to save decisions for race %s: %w", ev.RaceID, err)
		}
		events = append(events, NewDecisionEvent(result.RunID, ev))
	}

	// decisions are already persisted; a publish failure is reported but not fatal
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.WithError(err).WithField("run_id", result.RunID).Warn("Decision events not published")
	}
	return result, nil
}

func (s *EvaluationService) hasClosedDecisions(ctx context.Context, raceID string) (bool, error) {
	existing, err := s.decisions.GetByRaceID(ctx, raceID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return false, fmt.Errorf("failed to load decisions for race %s: %w", raceID, err)
	}
	for _, d := range existing {
		if !d.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

// Inputs converts race cards into pipeline inputs
func Inputs(cards []*models.RaceCard) []pipeline.RaceInput {
	inputs := make([]pipeline.RaceInput, 0, len(cards))
	for _, c := range cards {
		if c == nil {
			continue
		}
		inputs = append(inputs, pipeline.RaceInput{Race: c.Race, Signals: c.Signals, LongRun: c.LongRun})
	}
	return inputs
}

// NewDecisionEvent summarises an evaluation for publication
func NewDecisionEvent(runID uuid.UUID, ev *pipeline.RaceEvaluation) *publisher.DecisionEvent {
	event := &publisher.DecisionEvent{
		RunID:       runID,
		RaceID:      ev.RaceID,
		EvaluatedAt: ev.EvaluatedAt,
		Weight:      ev.Weight,
		Instability: ev.Assignment.Instability,
	}
	if ev.Book != nil {
		event.TotalStake = ev.Book.TotalStake()
		event.ExposureScale = ev.Book.Scale
		event.Decisions = ev.Book.Decisions
	}
	return event
}
