// Package backtest replays settled races through the evaluation pipeline with a running bankroll.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/boatrace-edge/internal/metrics"
	"github.com/yourusername/boatrace-edge/internal/models"
	"github.com/yourusername/boatrace-edge/internal/pipeline"
	"github.com/yourusername/boatrace-edge/internal/repository"
)

// SettledRaceSource loads races that have results
type SettledRaceSource interface {
	GetSettled(ctx context.Context, start, end time.Time) ([]*models.SettledRace, error)
}

// Engine replays history in settlement order. Each race sees only the lane
// history settled before it, and its own actual lanes are appended afterwards.
type Engine struct {
	cfg       ReplayConfig
	races     SettledRaceSource
	evaluator *pipeline.Evaluator
	seed      []models.LaneTransition
	logger    *logrus.Entry
}

// NewEngine creates a replay engine. seed is lane history known before the replay window.
func NewEngine(cfg ReplayConfig, races SettledRaceSource, evaluator *pipeline.Evaluator, seed []models.LaneTransition, logger *logrus.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:       cfg,
		races:     races,
		evaluator: evaluator,
		seed:      seed,
		logger:    logger.WithField("component", "backtest"),
	}, nil
}

// Config returns the replay configuration
func (e *Engine) Config() ReplayConfig {
	return e.cfg
}

// Run replays the configured window and computes metrics
func (e *Engine) Run(ctx context.Context) (*ReplayState, Metrics, error) {
	start := time.Now()
	e.logger.WithFields(logrus.Fields{
		"start":    e.cfg.StartDate.Format(time.DateOnly),
		"end":      e.cfg.EndDate.Format(time.DateOnly),
		"bankroll": e.cfg.InitialBankroll,
	}).Info("Starting replay")

	state, err := e.HistoricalReplay(ctx)
	if err != nil {
		metrics.RecordReplayRun("failure", 0, time.Since(start).Seconds())
		return nil, Metrics{}, err
	}
	m := CalculateMetrics(state, e.cfg)
	metrics.RecordReplayRun("success", m.ROI, time.Since(start).Seconds())

	e.logger.WithFields(logrus.Fields{
		"races":        m.RacesReplayed,
		"bets":         m.TotalBets,
		"roi":          m.ROI,
		"hit_rate":     m.HitRate,
		"max_drawdown": m.MaxDrawdown,
	}).Info("Replay completed")
	return state, m, nil
}

// HistoricalReplay evaluates and settles every race in the window
func (e *Engine) HistoricalReplay(ctx context.Context) (*ReplayState, error) {
	races, err := e.races.GetSettled(ctx, e.cfg.StartDate, e.cfg.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load settled races: %w", err)
	}

	history := repository.NewMemoryLaneHistoryStore()
	for _, t := range e.seed {
		if t.SettledAt.Before(e.cfg.StartDate) {
			if err := history.Append(ctx, []models.LaneTransition{t}); err != nil {
				return nil, err
			}
		}
	}

	state := NewReplayState(e.cfg.InitialBankroll, e.cfg.StartDate)
	for _, race := range races {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.processRace(ctx, race, history, state); err != nil {
			return nil, err
		}
	}
	return state, nil
}

func (e *Engine) processRace(ctx context.Context, race *models.SettledRace, history *repository.MemoryLaneHistoryStore, state *ReplayState) error {
	if race.Card == nil || race.Card.Race == nil || race.Result == nil {
		state.RacesExcluded++
		return nil
	}
	card := race.Card

	snap, err := history.Snapshot(ctx)
	if err != nil {
		return err
	}
	ev, err := e.evaluator.Compute(pipeline.RaceInput{Race: card.Race, Signals: card.Signals, LongRun: card.LongRun}, snap)
	var structErr *models.RaceStructureError
	if errors.As(err, &structErr) {
		state.RacesExcluded++
		e.logger.WithError(err).WithField("race_id", card.Race.ID).Warn("Race excluded from replay")
		return nil
	}
	if err != nil {
		return err
	}
	state.RacesReplayed++

	if race.Odds == nil || len(race.Odds.Trifecta) == 0 {
		state.RacesNoOdds++
	} else {
		book := e.evaluator.Decide(ev, race.Odds, state.CurrentBankroll)
		goDecisions := book.GoDecisions()
		if len(goDecisions) > 0 {
			state.RacesBet++
		}
		for _, d := range goDecisions {
			if err := d.Settle(race.Result.Finish, race.Result.SettledAt); err != nil {
				return fmt.Errorf("race %s: %w", card.Race.ID, err)
			}
			state.UpdateState(d)
		}
	}
	state.RecordEquityPoint(race.Result.SettledAt, state.CurrentBankroll)

	return history.Append(ctx, race.Result.Transitions(card.Race))
}
