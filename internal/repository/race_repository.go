package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/boatrace-edge/internal/database"
	"github.com/yourusername/boatrace-edge/internal/models"
)

const errScanRace = "failed to scan race: %w"

// querier is satisfied by *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRaceRepository implements RaceRepository for PostgreSQL
type PostgresRaceRepository struct {
	db *database.DB
}

// NewPostgresRaceRepository creates a new race repository
func NewPostgresRaceRepository(db *database.DB) RaceRepository {
	return &PostgresRaceRepository{db: db}
}

// Upsert writes a race with its entries, signals and long-run scores
func (r *PostgresRaceRepository) Upsert(ctx context.Context, card *models.RaceCard) error {
	if card == nil || card.Race == nil {
		return fmt.Errorf("race card is required")
	}
	race := card.Race
	if err := race.Validate(); err != nil {
		return err
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO races (id, venue, race_date, race_number, deadline)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET venue = EXCLUDED.venue, race_date = EXCLUDED.race_date,
			    race_number = EXCLUDED.race_number, deadline = EXCLUDED.deadline
		`, race.ID, race.Venue, race.Date, race.Number, nullTime(race.Deadline))
		if err != nil {
			return fmt.Errorf("failed to upsert race: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM race_entries WHERE race_id = $1`, race.ID); err != nil {
			return fmt.Errorf("failed to clear race entries: %w", err)
		}

		batch := &pgx.Batch{}
		for _, e := range race.Entries {
			var sig models.EntrySignals
			if card.Signals != nil {
				sig = card.Signals.ForLane(e.Lane)
			}
			var longRun *float64
			if v, ok := card.LongRun[e.Lane]; ok {
				longRun = models.Float(v)
			}
			batch.Queue(`
				INSERT INTO race_entries (race_id, lane, competitor_id, motor_id, boat_id,
				                          exhibition_time, start_timing, tilt, long_run_score)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, race.ID, e.Lane, e.CompetitorID, e.MotorID, e.BoatID,
				sig.ExhibitionTime, sig.StartTiming, sig.Tilt, longRun)
		}
		if card.Signals != nil {
			batch.Queue(`
				INSERT INTO race_conditions (race_id, wind_speed, wind_direction)
				VALUES ($1, $2, $3)
				ON CONFLICT (race_id) DO UPDATE
				SET wind_speed = EXCLUDED.wind_speed, wind_direction = EXCLUDED.wind_direction
			`, race.ID, card.Signals.Wind.Speed, string(card.Signals.Wind.Direction))
		}

		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to write race entries: %w", err)
			}
		}
		return results.Close()
	})
}

// GetCard loads one race card
func (r *PostgresRaceRepository) GetCard(ctx context.Context, raceID string) (*models.RaceCard, error) {
	cards, err := loadCards(ctx, r.db.GetPool(), []string{raceID})
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, models.ErrNotFound
	}
	return cards[0], nil
}

// GetUpcoming loads races whose betting deadline falls in [from, to)
func (r *PostgresRaceRepository) GetUpcoming(ctx context.Context, from, to time.Time) ([]*models.RaceCard, error) {
	ids, err := queryIDs(ctx, r.db.GetPool(), `
		SELECT id FROM races
		WHERE deadline >= $1 AND deadline < $2
		ORDER BY deadline ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming races: %w", err)
	}
	return loadCards(ctx, r.db.GetPool(), ids)
}

// SaveResult records the official finishing order. Saving the same finish
// again is a no-op; a different finish fails with models.ErrDuplicateKey.
func (r *PostgresRaceRepository) SaveResult(ctx context.Context, result *models.RaceResult) error {
	tag, err := r.db.GetPool().Exec(ctx, `
		INSERT INTO race_results (race_id, first, second, third, settled_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (race_id) DO NOTHING
	`, result.RaceID, result.Finish.First, result.Finish.Second, result.Finish.Third, result.SettledAt)
	if err != nil {
		return fmt.Errorf("failed to save race result: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var finish models.Trifecta
	if err := r.db.GetPool().QueryRow(ctx, `
		SELECT first, second, third FROM race_results WHERE race_id = $1
	`, result.RaceID).Scan(&finish.First, &finish.Second, &finish.Third); err != nil {
		return fmt.Errorf("failed to load race result: %w", err)
	}
	if finish != result.Finish {
		return fmt.Errorf("race %s already settled as %s: %w", result.RaceID, finish, models.ErrDuplicateKey)
	}
	return nil
}

// GetResult loads the result and actual lanes for a settled race
func (r *PostgresRaceRepository) GetResult(ctx context.Context, raceID string) (*models.RaceResult, error) {
	results, err := loadResults(ctx, r.db.GetPool(), []string{raceID})
	if err != nil {
		return nil, err
	}
	res, ok := results[raceID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return res, nil
}

// GetSettled loads settled races in [start, end) with their final odds, oldest first
func (r *PostgresRaceRepository) GetSettled(ctx context.Context, start, end time.Time) ([]*models.SettledRace, error) {
	var settled []*models.SettledRace
	err := r.db.WithSnapshot(ctx, func(tx pgx.Tx) error {
		ids, err := queryIDs(ctx, tx, `
			SELECT r.id FROM races r
			JOIN race_results rr ON rr.race_id = r.id
			WHERE rr.settled_at >= $1 AND rr.settled_at < $2
			ORDER BY r.deadline ASC, r.id ASC
		`, start, end)
		if err != nil {
			return fmt.Errorf("failed to query settled races: %w", err)
		}

		cards, err := loadCards(ctx, tx, ids)
		if err != nil {
			return err
		}
		results, err := loadResults(ctx, tx, ids)
		if err != nil {
			return err
		}
		odds, err := loadOdds(ctx, tx, ids)
		if err != nil {
			return err
		}

		settled = make([]*models.SettledRace, 0, len(cards))
		for _, card := range cards {
			settled = append(settled, &models.SettledRace{
				Card:   card,
				Result: results[card.Race.ID],
				Odds:   odds[card.Race.ID],
			})
		}
		return nil
	})
	return settled, err
}

func queryIDs(ctx context.Context, q querier, sql string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// loadCards returns cards in the order of ids, skipping unknown ids
func loadCards(ctx context.Context, q querier, ids []string) ([]*models.RaceCard, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	byID := make(map[string]*models.RaceCard, len(ids))
	rows, err := q.Query(ctx, `
		SELECT r.id, r.venue, r.race_date, r.race_number, r.deadline, r.created_at,
		       c.wind_speed, COALESCE(c.wind_direction, '')
		FROM races r
		LEFT JOIN race_conditions c ON c.race_id = r.id
		WHERE r.id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query races: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		race := &models.Race{}
		var deadline *time.Time
		var windSpeed *float64
		var windDir string
		if err := rows.Scan(&race.ID, &race.Venue, &race.Date, &race.Number, &deadline, &race.CreatedAt, &windSpeed, &windDir); err != nil {
			return nil, fmt.Errorf(errScanRace, err)
		}
		if deadline != nil {
			race.Deadline = *deadline
		}
		byID[race.ID] = &models.RaceCard{
			Race: race,
			Signals: &models.RaceSignals{
				RaceID: race.ID,
				Wind:   models.Wind{Speed: windSpeed, Direction: models.WindDirection(windDir)},
			},
			LongRun: models.LongRunScores{},
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating races: %w", err)
	}

	entryRows, err := q.Query(ctx, `
		SELECT race_id, lane, competitor_id, motor_id, boat_id,
		       exhibition_time, start_timing, tilt, long_run_score
		FROM race_entries
		WHERE race_id = ANY($1)
		ORDER BY race_id, lane
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query race entries: %w", err)
	}
	defer entryRows.Close()

	for entryRows.Next() {
		var raceID string
		var e models.Entry
		var sig models.EntrySignals
		var longRun *float64
		if err := entryRows.Scan(&raceID, &e.Lane, &e.CompetitorID, &e.MotorID, &e.BoatID,
			&sig.ExhibitionTime, &sig.StartTiming, &sig.Tilt, &longRun); err != nil {
			return nil, fmt.Errorf("failed to scan race entry: %w", err)
		}
		card, ok := byID[raceID]
		if !ok {
			continue
		}
		card.Race.Entries = append(card.Race.Entries, e)
		if e.Lane >= 1 && e.Lane <= models.Lanes {
			sig.Lane = e.Lane
			card.Signals.Entries[e.Lane-1] = sig
		}
		if longRun != nil {
			card.LongRun[e.Lane] = *longRun
		}
	}
	if err := entryRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating race entries: %w", err)
	}

	cards := make([]*models.RaceCard, 0, len(byID))
	for _, id := range ids {
		if card, ok := byID[id]; ok {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

func loadResults(ctx context.Context, q querier, ids []string) (map[string]*models.RaceResult, error) {
	results := make(map[string]*models.RaceResult, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	rows, err := q.Query(ctx, `
		SELECT race_id, first, second, third, settled_at
		FROM race_results WHERE race_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query race results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		res := &models.RaceResult{ActualLanes: map[string]int{}}
		if err := rows.Scan(&res.RaceID, &res.Finish.First, &res.Finish.Second, &res.Finish.Third, &res.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan race result: %w", err)
		}
		results[res.RaceID] = res
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating race results: %w", err)
	}

	laneRows, err := q.Query(ctx, `
		SELECT race_id, competitor_id, actual_lane
		FROM lane_transitions WHERE race_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query actual lanes: %w", err)
	}
	defer laneRows.Close()
	for laneRows.Next() {
		var raceID, competitorID string
		var lane int
		if err := laneRows.Scan(&raceID, &competitorID, &lane); err != nil {
			return nil, fmt.Errorf("failed to scan actual lane: %w", err)
		}
		if res, ok := results[raceID]; ok {
			res.ActualLanes[competitorID] = lane
		}
	}
	return results, laneRows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
