package models

import (
	"fmt"
	"time"
)

// Lanes is the number of starting lanes (and entries) in every race
const Lanes = 6

// Race represents a scheduled race at a venue
type Race struct {
	ID        string    `db:"id" json:"id" validate:"required"`
	Venue     string    `db:"venue" json:"venue" validate:"required"`
	Date      time.Time `db:"race_date" json:"date" validate:"required"`
	Number    int       `db:"race_number" json:"number" validate:"required,min=1,max=12"`
	Deadline  time.Time `db:"deadline" json:"deadline"`
	Entries   []Entry   `db:"-" json:"entries"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Entry is one competitor's boat in a race. Immutable once the race starts.
type Entry struct {
	CompetitorID string `db:"competitor_id" json:"competitor_id" validate:"required"`
	MotorID      string `db:"motor_id" json:"motor_id"`
	BoatID       string `db:"boat_id" json:"boat_id"`
	Lane         int    `db:"lane" json:"lane" validate:"required,min=1,max=6"`
}

// Validate enforces the six-entry, unique-lane rule
func (r *Race) Validate() error {
	if len(r.Entries) != Lanes {
		return &RaceStructureError{
			RaceID: r.ID,
			Field:  "entries",
			Detail: fmt.Sprintf("got %d entries", len(r.Entries)),
			Err:    ErrInvalidEntryCount,
		}
	}

	seen := make(map[int]string, Lanes)
	for _, e := range r.Entries {
		if e.Lane < 1 || e.Lane > Lanes {
			return &RaceStructureError{
				RaceID: r.ID,
				Field:  "lane",
				Detail: fmt.Sprintf("competitor %s has lane %d", e.CompetitorID, e.Lane),
				Err:    ErrLaneOutOfRange,
			}
		}
		if other, ok := seen[e.Lane]; ok {
			return &RaceStructureError{
				RaceID: r.ID,
				Field:  "lane",
				Detail: fmt.Sprintf("lane %d shared by %s and %s", e.Lane, other, e.CompetitorID),
				Err:    ErrDuplicateLane,
			}
		}
		seen[e.Lane] = e.CompetitorID
	}
	return nil
}

// EntryByLane returns the entry drawn into the given lane
func (r *Race) EntryByLane(lane int) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Lane == lane {
			return e, true
		}
	}
	return Entry{}, false
}

// IsBettingOpen reports whether the wagering window is still open at now
func (r *Race) IsBettingOpen(now time.Time) bool {
	return r.Deadline.IsZero() || now.Before(r.Deadline)
}

// TimeToDeadline returns the duration until the wagering deadline
func (r *Race) TimeToDeadline() time.Duration {
	return time.Until(r.Deadline)
}

// LongRunScores holds the externally computed historical score per lane
type LongRunScores map[int]float64

// RaceCard bundles a race with everything captured before it runs
type RaceCard struct {
	Race    *Race         `json:"race"`
	Signals *RaceSignals  `json:"signals"`
	LongRun LongRunScores `json:"long_run"`
}

// RaceResult is the official outcome of a settled race
type RaceResult struct {
	RaceID string   `db:"race_id" json:"race_id" validate:"required"`
	Finish Trifecta `db:"-" json:"finish"`
	// ActualLanes maps competitor ID to the lane they actually started from
	ActualLanes map[string]int `db:"-" json:"actual_lanes"`
	SettledAt   time.Time      `db:"settled_at" json:"settled_at"`
}

// Validate checks the result against the race it settles
func (r *RaceResult) Validate(race *Race) error {
	if !r.Finish.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidTrifecta, r.Finish)
	}
	if len(r.ActualLanes) == 0 {
		return nil
	}
	seen := make(map[int]bool, Lanes)
	for _, e := range race.Entries {
		lane, ok := r.ActualLanes[e.CompetitorID]
		if !ok {
			return &RaceStructureError{RaceID: race.ID, Field: "actual_lanes", Detail: "missing competitor " + e.CompetitorID, Err: ErrInvalidEntryCount}
		}
		if lane < 1 || lane > Lanes {
			return &RaceStructureError{RaceID: race.ID, Field: "actual_lanes", Detail: fmt.Sprintf("competitor %s has lane %d", e.CompetitorID, lane), Err: ErrLaneOutOfRange}
		}
		if seen[lane] {
			return &RaceStructureError{RaceID: race.ID, Field: "actual_lanes", Detail: fmt.Sprintf("lane %d taken twice", lane), Err: ErrDuplicateLane}
		}
		seen[lane] = true
	}
	return nil
}

// Transitions converts the actual lanes into lane history records
func (r *RaceResult) Transitions(race *Race) []LaneTransition {
	out := make([]LaneTransition, 0, len(race.Entries))
	for _, e := range race.Entries {
		actual, ok := r.ActualLanes[e.CompetitorID]
		if !ok {
			continue
		}
		out = append(out, LaneTransition{
			CompetitorID: e.CompetitorID,
			RaceID:       race.ID,
			AssignedLane: e.Lane,
			ActualLane:   actual,
			SettledAt:    r.SettledAt,
		})
	}
	return out
}

// SettledRace is a race card with its result and the final odds, used for replay
type SettledRace struct {
	Card   *RaceCard   `json:"card"`
	Result *RaceResult `json:"result"`
	Odds   *MarketOdds `json:"odds"`
}
