package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/boatrace-edge/internal/config"
	"github.com/yourusername/boatrace-edge/internal/database"
	"github.com/yourusername/boatrace-edge/internal/models"
)

const skipIntegrationMsg = "Integration test - set BOATRACE_EDGE_TEST_DB_HOST to run"

func transition(competitor, race string, assigned, actual int) models.LaneTransition {
	return models.LaneTransition{
		CompetitorID: competitor,
		RaceID:       race,
		AssignedLane: assigned,
		ActualLane:   actual,
		SettledAt:    time.Date(2024, 2, 3, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryLaneHistorySnapshotIsPinned(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLaneHistoryStore(transition("4001", "r1", 1, 1))

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, []models.LaneTransition{transition("4001", "r2", 2, 1)}))

	assert.Equal(t, 1, snap.Len(), "snapshot must not see later appends")
	assert.Equal(t, 2, store.Len())

	later, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, later.ForCompetitor("4001"), 2)
}

func TestMemoryLaneHistoryIgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLaneHistoryStore()
	tr := transition("4001", "r1", 3, 2)

	require.NoError(t, store.Append(ctx, []models.LaneTransition{tr, tr}))
	require.NoError(t, store.Append(ctx, []models.LaneTransition{tr}))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryLaneHistoryConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLaneHistoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Append(ctx, []models.LaneTransition{transition("4001", fmt.Sprintf("r%d", i), 1, 1)})
			_, _ = store.Snapshot(ctx)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, store.Len())
}

func TestMemoryLaneHistoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryLaneHistoryStore()

	_, err := store.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Append(ctx, nil), context.Canceled)
}

func TestNewRepositoriesRequiresDB(t *testing.T) {
	_, err := NewRepositories(nil)
	assert.Error(t, err)
}

func setupTestDB(t *testing.T) *database.DB {
	host := os.Getenv("BOATRACE_EDGE_TEST_DB_HOST")
	if host == "" {
		t.Skip(skipIntegrationMsg)
	}
	cfg := &config.DatabaseConfig{
		Host:               host,
		Port:               5432,
		Name:               "boatrace_edge_test",
		User:               "postgres",
		Password:           os.Getenv("BOATRACE_EDGE_TEST_DB_PASSWORD"),
		SSLMode:            "disable",
		MaxConnections:     4,
		MaxIdleConnections: 1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := database.NewDB(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(ctx))
	t.Cleanup(db.Close)
	return db
}

func testCard(id string, deadline time.Time) *models.RaceCard {
	race := &models.Race{
		ID:       id,
		Venue:    "Toda",
		Date:     time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC),
		Number:   1,
		Deadline: deadline,
	}
	signals := &models.RaceSignals{RaceID: id, Wind: models.Wind{Speed: models.Float(3), Direction: models.WindHead}}
	longRun := models.LongRunScores{}
	for lane := 1; lane <= models.Lanes; lane++ {
		race.Entries = append(race.Entries, models.Entry{CompetitorID: fmt.Sprintf("%s-%d", id, lane), Lane: lane})
		signals.Entries[lane-1] = models.EntrySignals{Lane: lane, ExhibitionTime: models.Float(6.7 + float64(lane)/100)}
		longRun[lane] = float64(7-lane) / 6
	}
	return &models.RaceCard{Race: race, Signals: signals, LongRun: longRun}
}

func TestPostgresRaceRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repos, err := NewRepositories(db)
	require.NoError(t, err)
	ctx := context.Background()

	id := "it-" + uuid.NewString()
	deadline := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repos.Race.Upsert(ctx, testCard(id, deadline)))

	card, err := repos.Race.GetCard(ctx, id)
	require.NoError(t, err)
	require.NoError(t, card.Race.Validate())
	assert.True(t, deadline.Equal(card.Race.Deadline))
	assert.InDelta(t, 6.71, *card.Signals.ForLane(1).ExhibitionTime, 1e-9)
	assert.InDelta(t, 1.0, card.LongRun[1], 1e-9)
	assert.InDelta(t, 3.0, card.Signals.Wind.HeadwindSpeed(), 1e-9)

	_, err = repos.Race.GetCard(ctx, "missing-"+id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostgresDecisionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repos, err := NewRepositories(db)
	require.NoError(t, err)
	ctx := context.Background()

	raceID := "it-" + uuid.NewString()
	d := &models.BettingDecision{
		RaceID:      raceID,
		Combination: models.Trifecta{First: 1, Second: 2, Third: 3},
		Probability: 0.1,
		Odds:        12,
		Stake:       500,
		Go:          true,
		Status:      models.DecisionRecommended,
		DecidedAt:   time.Now().UTC(),
	}
	require.NoError(t, repos.Decisions.SaveBatch(ctx, []*models.BettingDecision{d}))
	require.NotEqual(t, uuid.Nil, d.ID)

	require.NoError(t, d.Settle(d.Combination, time.Now().UTC()))
	require.NoError(t, repos.Decisions.UpdateSettlement(ctx, []*models.BettingDecision{d}))

	got, err := repos.Decisions.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionWon, got.Status)
	assert.InDelta(t, 5500.0, *got.ProfitLoss, 1e-9)
}

func TestPostgresDecisionReevaluationReplacesOpenRows(t *testing.T) {
	db := setupTestDB(t)
	repos, err := NewRepositories(db)
	require.NoError(t, err)
	ctx := context.Background()

	raceID := "it-" + uuid.NewString()
	combo := models.Trifecta{First: 1, Second: 2, Third: 3}
	decision := func(stake float64) *models.BettingDecision {
		return &models.BettingDecision{
			RaceID: raceID, Combination: combo, Probability: 0.1, Odds: 12,
			Stake: stake, Go: true, Status: models.DecisionRecommended, DecidedAt: time.Now().UTC(),
		}
	}

	first := decision(500)
	require.NoError(t, repos.Decisions.SaveBatch(ctx, []*models.BettingDecision{first}))
	second := decision(300)
	require.NoError(t, repos.Decisions.SaveBatch(ctx, []*models.BettingDecision{second}))
	assert.Equal(t, first.ID, second.ID, "re-evaluation keeps the existing row")

	stored, err := repos.Decisions.GetByRaceID(ctx, raceID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.InDelta(t, 300.0, stored[0].Stake, 1e-9)

	require.NoError(t, second.Settle(combo, time.Now().UTC()))
	require.NoError(t, repos.Decisions.UpdateSettlement(ctx, []*models.BettingDecision{second}))

	// a late evaluation must not reopen a settled decision
	require.NoError(t, repos.Decisions.SaveBatch(ctx, []*models.BettingDecision{decision(900)}))
	stored, err = repos.Decisions.GetByRaceID(ctx, raceID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.DecisionWon, stored[0].Status)
	assert.InDelta(t, 300.0, stored[0].Stake, 1e-9)
}
