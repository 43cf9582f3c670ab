package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/boatrace-edge/internal/database"
	"github.com/yourusername/boatrace-edge/internal/models"
)

// PostgresLaneHistoryStore implements LaneHistoryStore for PostgreSQL
type PostgresLaneHistoryStore struct {
	db  *database.DB
	now func() time.Time
}

// NewPostgresLaneHistoryStore creates a new lane history store
func NewPostgresLaneHistoryStore(db *database.DB) *PostgresLaneHistoryStore {
	return &PostgresLaneHistoryStore{db: db, now: time.Now}
}

// Snapshot reads every transition inside one read-only transaction
func (s *PostgresLaneHistoryStore) Snapshot(ctx context.Context) (*models.LaneHistorySnapshot, error) {
	var transitions []models.LaneTransition
	takenAt := s.now()

	err := s.db.WithSnapshot(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT competitor_id, race_id, assigned_lane, actual_lane, settled_at
			FROM lane_transitions
			ORDER BY settled_at ASC, id ASC
		`)
		if err != nil {
			return fmt.Errorf("failed to query lane history: %w", err)
		}
		transitions, err = pgx.CollectRows(rows, pgx.RowToStructByName[models.LaneTransition])
		if err != nil {
			return fmt.Errorf("failed to scan lane history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return models.NewLaneHistorySnapshot(takenAt, transitions), nil
}

// Append inserts transitions. Re-settling a race is ignored rather than overwritten.
func (s *PostgresLaneHistoryStore) Append(ctx context.Context, transitions []models.LaneTransition) error {
	if len(transitions) == 0 {
		return nil
	}
	return s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, t := range transitions {
			batch.Queue(`
				INSERT INTO lane_transitions (competitor_id, race_id, assigned_lane, actual_lane, settled_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (race_id, competitor_id) DO NOTHING
			`, t.CompetitorID, t.RaceID, t.AssignedLane, t.ActualLane, t.SettledAt)
		}
		results := tx.SendBatch(ctx, batch)
		for range transitions {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to append lane history: %w", err)
			}
		}
		return results.Close()
	})
}
