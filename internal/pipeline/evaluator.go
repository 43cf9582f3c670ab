// Package pipeline wires the scoring, lane, integration, outcome and betting stages
// into single-race and batch evaluation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/boatrace-edge/internal/betting"
	"github.com/yourusername/boatrace-edge/internal/config"
	"github.com/yourusername/boatrace-edge/internal/integration"
	"github.com/yourusername/boatrace-edge/internal/lanes"
	"github.com/yourusername/boatrace-edge/internal/logger"
	"github.com/yourusername/boatrace-edge/internal/metrics"
	"github.com/yourusername/boatrace-edge/internal/models"
	"github.com/yourusername/boatrace-edge/internal/outcome"
	"github.com/yourusername/boatrace-edge/internal/scoring"
)

// ErrOddsDeadlinePassed is returned when the odds window closed before a fetch was attempted.
var ErrOddsDeadlinePassed = errors.New("odds deadline passed")

// HistorySource provides pinned lane history snapshots.
type HistorySource interface {
	Snapshot(ctx context.Context) (*models.LaneHistorySnapshot, error)
}

// OddsSource provides current market odds for a race.
type OddsSource interface {
	GetOdds(ctx context.Context, raceID string) (*models.MarketOdds, error)
}

// RaceInput is everything fetched for a race before the pure stages run.
type RaceInput struct {
	Race    *models.Race
	Signals *models.RaceSignals
	LongRun models.LongRunScores
}

// RaceEvaluation is the full explainable result for one race.
type RaceEvaluation struct {
	RaceID           string                                       `json:"race_id"`
	Breakdowns       [models.Lanes]scoring.Breakdown              `json:"breakdowns"`
	LanePredictions  [models.Lanes]models.EntryPositionPrediction `json:"lane_predictions"`
	Assignment       lanes.Assignment                             `json:"assignment"`
	Quality          models.DataQuality                           `json:"quality"`
	Weight           float64                                      `json:"weight"`
	IntegratedScores [models.Lanes]float64                        `json:"integrated_scores"`
	WinProbabilities [models.Lanes]float64                        `json:"win_probabilities"`
	Distribution     *outcome.Distribution                        `json:"-"`
	Book             *betting.Book                                `json:"book,omitempty"`
	EvaluatedAt      time.Time                                    `json:"evaluated_at"`
}

// TopK returns the k most likely trifectas
func (r *RaceEvaluation) TopK(k int) []outcome.Outcome {
	return r.Distribution.TopK(k)
}

// Evaluator runs the prediction and betting stages for races.
type Evaluator struct {
	scorer     *scoring.Scorer
	predictor  *lanes.Predictor
	integrator *integration.Integrator
	model      *outcome.Model
	engine     *betting.Engine

	history HistorySource
	odds    OddsSource

	mu          sync.RWMutex
	bankroll    float64
	oddsLead    time.Duration
	concurrency int

	logger     *logrus.Logger
	predLogger *logger.PredictionLogger
	pipeLogger *logger.PipelineLogger
	audit      *logger.AuditLogger
	now        func() time.Time
}

// NewEvaluator creates an evaluator from configuration
func NewEvaluator(cfg *config.Config, history HistorySource, odds OddsSource, log *logrus.Logger) *Evaluator {
	return &Evaluator{
		scorer:      scoring.NewScorer(cfg.Scoring),
		predictor:   lanes.NewPredictor(cfg.Prediction),
		integrator:  integration.NewIntegrator(cfg.Integration),
		model:       outcome.NewModel(cfg.Outcome),
		engine:      betting.NewEngine(cfg.Betting),
		history:     history,
		odds:        odds,
		bankroll:    cfg.Betting.Bankroll,
		oddsLead:    cfg.OddsDeadlineLead(),
		concurrency: cfg.Pipeline.Concurrency,
		logger:      log,
		predLogger:  logger.NewPredictionLogger(log),
		pipeLogger:  logger.NewPipelineLogger(log),
		audit:       logger.NewAuditLogger(log),
		now:         time.Now,
	}
}

// Bankroll returns the bankroll used for sizing
func (e *Evaluator) Bankroll() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bankroll
}

// SetBankroll updates the bankroll used for subsequent races
func (e *Evaluator) SetBankroll(bankroll float64) {
	e.mu.Lock()
	e.bankroll = bankroll
	e.mu.Unlock()
	metrics.UpdateBankroll(bankroll)
}

// Compute runs the pure stages for one race against a pinned snapshot.
// It fails only when the race structure is invalid.
func (e *Evaluator) Compute(in RaceInput, snap *models.LaneHistorySnapshot) (*RaceEvaluation, error) {
	if in.Race == nil {
		return nil, &models.RaceStructureError{Field: "race", Detail: "missing", Err: models.ErrInvalidEntryCount}
	}
	if err := in.Race.Validate(); err != nil {
		return nil, err
	}
	raceID := in.Race.ID

	ev := &RaceEvaluation{RaceID: raceID, EvaluatedAt: e.now()}

	ev.LanePredictions = e.predictor.PredictRace(in.Race, snap)
	for _, p := range ev.LanePredictions {
		if p.UsedColdStart {
			e.predLogger.LogColdStart(p.CompetitorID, p.SettledRaces, e.predictor.MinSettledRaces())
			metrics.RecordColdStart()
		}
	}
	ev.Assignment = lanes.Reconcile(ev.LanePredictions)
	e.predLogger.LogLaneReconciliation(raceID, ev.Assignment.ActualLanes[:], ev.Assignment.Instability)

	ev.Breakdowns = e.scorer.ScoreRace(in.Signals, ev.Assignment.ActualLanes)

	ev.Quality = integration.Quality(in.Signals, ev.Assignment.Instability)
	ev.Weight = e.integrator.Weight(ev.Quality)
	e.predLogger.LogIntegrationWeight(raceID, ev.Weight, ev.Quality.ExhibitionVariance, ev.Quality.StartTimingVariance, ev.Quality.InstabilityCount)
	metrics.RecordIntegration(ev.Weight, ev.Quality.InstabilityCount)

	ev.IntegratedScores = integration.Integrate(ev.Weight, scoring.Totals(ev.Breakdowns), integration.LongRunVector(in.LongRun))
	ev.WinProbabilities = e.model.WinProbabilities(ev.IntegratedScores)

	ev.Distribution = e.model.Expand(ev.IntegratedScores, lanes.ExpectedLanes(ev.LanePredictions))
	if ev.Distribution.Drifted {
		e.predLogger.LogDistributionDrift(raceID, ev.Distribution.RawSum, ev.Distribution.Drift(), e.model.DriftTolerance())
		metrics.RecordDistributionDrift()
	}
	return ev, nil
}

// Decide attaches betting decisions for the given odds and bankroll
func (e *Evaluator) Decide(ev *RaceEvaluation, odds *models.MarketOdds, bankroll float64) *betting.Book {
	ev.Book = e.engine.Decide(ev.RaceID, ev.Distribution, odds, bankroll)
	e.recordBook(ev.Book)
	if ev.Book.Capped() {
		e.audit.LogExposureCap(ev.RaceID, ev.Book.RequestedStake, ev.Book.ExposureLimit, ev.Book.Scale)
	}
	return ev.Book
}

// EvaluateRace takes a history snapshot, fetches odds before the wagering
// deadline, runs the pure stages and sizes bets. Failing to obtain odds in
// time cancels only the betting step.
func (e *Evaluator) EvaluateRace(ctx context.Context, in RaceInput) (*RaceEvaluation, error) {
	if in.Race == nil {
		return nil, &models.RaceStructureError{Field: "race", Detail: "missing", Err: models.ErrInvalidEntryCount}
	}
	if err := in.Race.Validate(); err != nil {
		return nil, err
	}

	snap, err := e.history.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("race %s: failed to load lane history: %w", in.Race.ID, err)
	}
	return e.evaluateWithSnapshot(ctx, in, snap)
}

// evaluateWithSnapshot is EvaluateRace against an already pinned snapshot.
func (e *Evaluator) evaluateWithSnapshot(ctx context.Context, in RaceInput, snap *models.LaneHistorySnapshot) (*RaceEvaluation, error) {
	start := time.Now()
	if in.Race == nil {
		return nil, &models.RaceStructureError{Field: "race", Detail: "missing", Err: models.ErrInvalidEntryCount}
	}
	if err := in.Race.Validate(); err != nil {
		return nil, err
	}

	odds, oddsErr := e.fetchOdds(ctx, in.Race)

	ev, err := e.Compute(in, snap)
	if err != nil {
		return nil, err
	}

	if oddsErr != nil {
		e.pipeLogger.LogBettingCancelled(ev.RaceID, oddsErr)
		metrics.RecordBettingCancelled()
		ev.Book = e.engine.Skip(ev.RaceID, ev.Distribution, models.ReasonBettingCancelled)
		e.recordBook(ev.Book)
	} else {
		e.Decide(ev, odds, e.Bankroll())
	}

	elapsed := time.Since(start)
	metrics.RecordRaceEvaluated(elapsed.Seconds())
	e.pipeLogger.LogRaceEvaluated(ev.RaceID, len(ev.Book.GoDecisions()), countStatus(ev.Book, models.DecisionSkipped), elapsed)
	return ev, nil
}

func (e *Evaluator) fetchOdds(ctx context.Context, race *models.Race) (*models.MarketOdds, error) {
	if e.odds == nil {
		return nil, errors.New("no odds source configured")
	}
	if race.Deadline.IsZero() {
		return e.odds.GetOdds(ctx, race.ID)
	}

	deadline := race.Deadline.Add(-e.oddsLead)
	if !e.now().Before(deadline) {
		return nil, ErrOddsDeadlinePassed
	}
	octx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	return e.odds.GetOdds(octx, race.ID)
}

func (e *Evaluator) recordBook(book *betting.Book) {
	for _, d := range book.Decisions {
		metrics.RecordDecision(string(d.Status))
		e.audit.LogDecision(d)
	}
	metrics.UpdateRaceExposure(book.RaceID, book.TotalStake())
}

func countStatus(book *betting.Book, status models.DecisionStatus) int {
	n := 0
	for _, d := range book.Decisions {
		if d.Status == status {
			n++
		}
	}
	return n
}
