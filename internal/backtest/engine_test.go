package backtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/boatrace-edge/internal/config"
	"github.com/yourusername/boatrace-edge/internal/models"
	"github.com/yourusername/boatrace-edge/internal/pipeline"
)

type fakeSettledSource struct {
	races []*models.SettledRace
	err   error
}

func (f *fakeSettledSource) GetSettled(ctx context.Context, start, end time.Time) ([]*models.SettledRace, error) {
	return f.races, f.err
}

func replayTestConfig() *config.Config {
	return &config.Config{
		Scoring: config.ScoringConfig{
			ExhibitionWeight: 0.40, StartTimingWeight: 0.35, TiltWeight: 0.25,
			StartTimingLaneEmphasis: "inner",
		},
		Prediction: config.PredictionConfig{MinSettledRaces: 10, PriorStayProbability: 0.9, PriorStrength: 10},
		Integration: config.IntegrationConfig{
			MinWeight: 0.25, MaxWeight: 0.75,
			ExhibitionVarianceRef: 0.01, StartTimingVarianceRef: 0.0025,
			InstabilityPenalty: 0.3,
		},
		Outcome: config.OutcomeConfig{Sharpness: 4, PlaceDiscount: 0.85, LaneCouplingStrength: 0.3, DriftTolerance: 1e-6},
		Betting: config.BettingConfig{
			Bankroll: 10000, MinExpectedValue: 0.05, KellyMultiplier: 0.25,
			MaxBetFraction: 0.20, MaxRaceExposureFraction: 0.30, MaxBetsPerRace: 5,
		},
		Pipeline: config.PipelineConfig{Concurrency: 2},
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func settledCard(id string) *models.RaceCard {
	race := &models.Race{ID: id, Venue: "04", Number: 3}
	signals := &models.RaceSignals{RaceID: id}
	times := []float64{6.70, 6.78, 6.80, 6.84, 6.88, 6.90}
	for lane := 1; lane <= models.Lanes; lane++ {
		race.Entries = append(race.Entries, models.Entry{CompetitorID: fmt.Sprintf("c%d", lane), Lane: lane})
		signals.Entries[lane-1] = models.EntrySignals{
			Lane:           lane,
			ExhibitionTime: models.Float(times[lane-1]),
			StartTiming:    models.Float(0.12 + 0.01*float64(lane)),
		}
	}
	return &models.RaceCard{
		Race:    race,
		Signals: signals,
		LongRun: models.LongRunScores{1: 0.7, 2: 0.5, 3: 0.45, 4: 0.4, 5: 0.35, 6: 0.3},
	}
}

func stayedResult(card *models.RaceCard, finish models.Trifecta, at time.Time) *models.RaceResult {
	lanes := make(map[string]int, models.Lanes)
	for _, e := range card.Race.Entries {
		lanes[e.CompetitorID] = e.Lane
	}
	return &models.RaceResult{RaceID: card.Race.ID, Finish: finish, ActualLanes: lanes, SettledAt: at}
}

func TestReplayConfigValidation(t *testing.T) {
	cfg, err := ParseReplayConfig("2026-01-01", "2026-01-31", 10000)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), cfg.EndDate)

	_, err = ParseReplayConfig("2026-02-01", "2026-01-01", 10000)
	assert.Error(t, err)

	_, err = ParseReplayConfig("2026-01-01", "2026-01-31", 0)
	assert.Error(t, err)

	_, err = ParseReplayConfig("01/01/2026", "2026-01-31", 100)
	assert.Error(t, err)
}

func TestHistoricalReplay(t *testing.T) {
	evaluator := pipeline.NewEvaluator(replayTestConfig(), nil, nil, quietLogger())
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	winner := settledCard("r1")
	ev, err := evaluator.Compute(pipeline.RaceInput{Race: winner.Race, Signals: winner.Signals, LongRun: winner.LongRun},
		models.NewLaneHistorySnapshot(day, nil))
	require.NoError(t, err)
	best := ev.TopK(1)[0]

	broken := settledCard("r2")
	broken.Race.Entries = broken.Race.Entries[:5]

	noOdds := settledCard("r3")

	source := &fakeSettledSource{races: []*models.SettledRace{
		{
			Card:   winner,
			Result: stayedResult(winner, best.Combination, day.Add(10*time.Hour)),
			Odds: &models.MarketOdds{RaceID: "r1", FetchedAt: day.Add(9 * time.Hour),
				Trifecta: map[models.Trifecta]float64{best.Combination: 2 / best.Probability}},
		},
		{Card: broken, Result: stayedResult(broken, best.Combination, day.Add(11*time.Hour))},
		{Card: noOdds, Result: stayedResult(noOdds, best.Combination, day.Add(12*time.Hour))},
	}}

	cfg := ReplayConfig{StartDate: day, EndDate: day.Add(24 * time.Hour), InitialBankroll: 10000}
	engine, err := NewEngine(cfg, source, evaluator, nil, quietLogger())
	require.NoError(t, err)

	state, m, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, m.RacesReplayed)
	assert.Equal(t, 1, m.RacesBet)
	assert.Equal(t, 1, m.RacesNoOdds)
	assert.Equal(t, 1, m.RacesExcluded)

	require.Len(t, state.Bets, 1)
	bet := state.Bets[0]
	assert.Equal(t, models.DecisionWon, bet.Status)
	assert.LessOrEqual(t, bet.Stake, 0.20*10000+1e-9)
	assert.Greater(t, state.CurrentBankroll, 10000.0)
	assert.Equal(t, 1.0, m.HitRate)
	assert.InDelta(t, *bet.ProfitLoss, m.NetProfit, 1e-9)
	assert.Len(t, state.EquityCurve, 3)
}

func TestHistoricalReplaySourceError(t *testing.T) {
	evaluator := pipeline.NewEvaluator(replayTestConfig(), nil, nil, quietLogger())
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := ReplayConfig{StartDate: day, EndDate: day.Add(24 * time.Hour), InitialBankroll: 1000}

	engine, err := NewEngine(cfg, &fakeSettledSource{err: errors.New("db down")}, evaluator, nil, quietLogger())
	require.NoError(t, err)

	_, _, err = engine.Run(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	_, err := NewEngine(ReplayConfig{}, &fakeSettledSource{}, nil, nil, quietLogger())
	assert.Error(t, err)
}
