package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/boatrace-edge/internal/database"
	"github.com/yourusername/boatrace-edge/internal/models"
)

// PostgresOddsRepository implements OddsRepository for PostgreSQL
type PostgresOddsRepository struct {
	db *database.DB
}

// NewPostgresOddsRepository creates a new odds repository
func NewPostgresOddsRepository(db *database.DB) OddsRepository {
	return &PostgresOddsRepository{db: db}
}

// Save replaces the stored snapshot for the race
func (o *PostgresOddsRepository) Save(ctx context.Context, odds *models.MarketOdds) error {
	if odds == nil || len(odds.Trifecta) == 0 {
		return nil
	}
	return o.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM race_odds WHERE race_id = $1`, odds.RaceID); err != nil {
			return fmt.Errorf("failed to clear odds: %w", err)
		}

		rows := make([][]any, 0, len(odds.Trifecta))
		for combo, v := range odds.Trifecta {
			rows = append(rows, []any{odds.RaceID, combo.String(), v, odds.FetchedAt})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"race_odds"},
			[]string{"race_id", "combination", "odds", "fetched_at"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to copy odds: %w", err)
		}
		return nil
	})
}

// GetLatest returns the stored snapshot for the race
func (o *PostgresOddsRepository) GetLatest(ctx context.Context, raceID string) (*models.MarketOdds, error) {
	odds, err := loadOdds(ctx, o.db.GetPool(), []string{raceID})
	if err != nil {
		return nil, err
	}
	snap, ok := odds[raceID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return snap, nil
}

// GetOdds lets stored snapshots stand in for a live odds source
func (o *PostgresOddsRepository) GetOdds(ctx context.Context, raceID string) (*models.MarketOdds, error) {
	return o.GetLatest(ctx, raceID)
}

func loadOdds(ctx context.Context, q querier, ids []string) (map[string]*models.MarketOdds, error) {
	out := make(map[string]*models.MarketOdds, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := q.Query(ctx, `
		SELECT race_id, combination, odds, fetched_at
		FROM race_odds WHERE race_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query odds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raceID, combination string
		var value float64
		var fetchedAt time.Time
		if err := rows.Scan(&raceID, &combination, &value, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan odds: %w", err)
		}
		combo, err := models.ParseTrifecta(combination)
		if err != nil {
			return nil, err
		}
		snap, ok := out[raceID]
		if !ok {
			snap = &models.MarketOdds{RaceID: raceID, FetchedAt: fetchedAt, Trifecta: map[models.Trifecta]float64{}}
			out[raceID] = snap
		}
		snap.Trifecta[combo] = value
	}
	return out, rows.Err()
}
