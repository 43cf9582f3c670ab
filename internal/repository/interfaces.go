package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/boatrace-edge/internal/models"
)

// RaceRepository defines the interface for race card and result access
type RaceRepository interface {
	Upsert(ctx context.Context, card *models.RaceCard) error
	GetCard(ctx context.Context, raceID string) (*models.RaceCard, error)
	GetUpcoming(ctx context.Context, from, to time.Time) ([]*models.RaceCard, error)
	SaveResult(ctx context.Context, result *models.RaceResult) error
	GetResult(ctx context.Context, raceID string) (*models.RaceResult, error)
	GetSettled(ctx context.Context, start, end time.Time) ([]*models.SettledRace, error)
}

// LaneHistoryStore is the append-only record of settled lane transitions
type LaneHistoryStore interface {
	Snapshot(ctx context.Context) (*models.LaneHistorySnapshot, error)
	Append(ctx context.Context, transitions []models.LaneTransition) error
}

// DecisionRepository defines the interface for betting decision access
type DecisionRepository interface {
	SaveBatch(ctx context.Context, decisions []*models.BettingDecision) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BettingDecision, error)
	GetByRaceID(ctx context.Context, raceID string) ([]*models.BettingDecision, error)
	GetOpen(ctx context.Context) ([]*models.BettingDecision, error)
	UpdateSettlement(ctx context.Context, decisions []*models.BettingDecision) error
}

// OddsRepository stores the odds snapshot a race was decided on
type OddsRepository interface {
	Save(ctx context.Context, odds *models.MarketOdds) error
	GetLatest(ctx context.Context, raceID string) (*models.MarketOdds, error)
}
