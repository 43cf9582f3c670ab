package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/boatrace-edge/internal/database"
	"github.com/yourusername/boatrace-edge/internal/models"
)

const decisionColumns = `id, race_id, combination, probability, odds, expected_value, kelly_fraction,
	adjusted_fraction, stake, go, status, reason, decided_at, settled_at, profit_loss`

// PostgresDecisionRepository implements DecisionRepository for PostgreSQL
type PostgresDecisionRepository struct {
	db *database.DB
}

// NewPostgresDecisionRepository creates a new decision repository
func NewPostgresDecisionRepository(db *database.DB) DecisionRepository {
	return &PostgresDecisionRepository{db: db}
}

// SaveBatch stores a race book in one transaction. Each (race, combination)
// holds one row: re-evaluating replaces open decisions in place and keeps
// their id, while settled or discarded rows are left untouched.
func (r *PostgresDecisionRepository) SaveBatch(ctx context.Context, decisions []*models.BettingDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, d := range decisions {
			if d.ID == uuid.Nil {
				d.ID = uuid.New()
			}
			batch.Queue(`
				INSERT INTO betting_decisions (`+decisionColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
				ON CONFLICT (race_id, combination) DO UPDATE SET
					probability = EXCLUDED.probability,
					odds = EXCLUDED.odds,
					expected_value = EXCLUDED.expected_value,
					kelly_fraction = EXCLUDED.kelly_fraction,
					adjusted_fraction = EXCLUDED.adjusted_fraction,
					stake = EXCLUDED.stake,
					go = EXCLUDED.go,
					status = EXCLUDED.status,
					reason = EXCLUDED.reason,
					decided_at = EXCLUDED.decided_at
				WHERE betting_decisions.status IN ($16, $17, $18)
				RETURNING id
			`, d.ID, d.RaceID, d.Combination.String(), d.Probability, d.Odds, d.ExpectedValue, d.KellyFraction,
				d.AdjustedFraction, d.Stake, d.Go, string(d.Status), d.Reason, d.DecidedAt, d.SettledAt, d.ProfitLoss,
				string(models.DecisionRecommended), string(models.DecisionRejected), string(models.DecisionSkipped))
		}
		results := tx.SendBatch(ctx, batch)
		for _, d := range decisions {
			var id uuid.UUID
			err := results.QueryRow().Scan(&id)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				// row already closed by settlement
				continue
			case err != nil:
				_ = results.Close()
				return fmt.Errorf("failed to save decision: %w", err)
			}
			d.ID = id
		}
		return results.Close()
	})
}

// GetByID retrieves a decision by ID
func (r *PostgresDecisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BettingDecision, error) {
	decisions, err := r.query(ctx, `SELECT `+decisionColumns+` FROM betting_decisions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(decisions) == 0 {
		return nil, models.ErrNotFound
	}
	return decisions[0], nil
}

// GetByRaceID retrieves all decisions for a race, best expected value first
func (r *PostgresDecisionRepository) GetByRaceID(ctx context.Context, raceID string) ([]*models.BettingDecision, error) {
	return r.query(ctx, `
		SELECT `+decisionColumns+` FROM betting_decisions
		WHERE race_id = $1
		ORDER BY expected_value DESC
	`, raceID)
}

// GetOpen retrieves decisions awaiting settlement or discard
func (r *PostgresDecisionRepository) GetOpen(ctx context.Context) ([]*models.BettingDecision, error) {
	return r.query(ctx, `
		SELECT `+decisionColumns+` FROM betting_decisions
		WHERE status IN ($1, $2, $3)
		ORDER BY decided_at ASC
	`, string(models.DecisionRecommended), string(models.DecisionRejected), string(models.DecisionSkipped))
}

// UpdateSettlement writes status, settlement time and profit/loss
func (r *PostgresDecisionRepository) UpdateSettlement(ctx context.Context, decisions []*models.BettingDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, d := range decisions {
			tag, err := tx.Exec(ctx, `
				UPDATE betting_decisions
				SET status = $2, settled_at = $3, profit_loss = $4
				WHERE id = $1
			`, d.ID, string(d.Status), d.SettledAt, d.ProfitLoss)
			if err != nil {
				return fmt.Errorf("failed to update decision %s: %w", d.ID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("decision %s: %w", d.ID, models.ErrNotFound)
			}
		}
		return nil
	})
}

func (r *PostgresDecisionRepository) query(ctx context.Context, sql string, args ...any) ([]*models.BettingDecision, error) {
	rows, err := r.db.GetPool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*models.BettingDecision
	for rows.Next() {
		d := &models.BettingDecision{}
		var combination, status string
		var settledAt *time.Time
		if err := rows.Scan(&d.ID, &d.RaceID, &combination, &d.Probability, &d.Odds, &d.ExpectedValue, &d.KellyFraction,
			&d.AdjustedFraction, &d.Stake, &d.Go, &status, &d.Reason, &d.DecidedAt, &settledAt, &d.ProfitLoss); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		combo, err := models.ParseTrifecta(combination)
		if err != nil {
			return nil, err
		}
		d.Combination = combo
		d.Status = models.DecisionStatus(status)
		d.SettledAt = settledAt
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}
	return decisions, nil
}
