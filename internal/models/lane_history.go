package models

import "time"

// LaneTransition records which lane a competitor actually started from
// in a settled race, compared to the lane drawn for them.
type LaneTransition struct {
	CompetitorID string    `db:"competitor_id" json:"competitor_id" validate:"required"`
	RaceID       string    `db:"race_id" json:"race_id" validate:"required"`
	AssignedLane int       `db:"assigned_lane" json:"assigned_lane" validate:"required,min=1,max=6"`
	ActualLane   int       `db:"actual_lane" json:"actual_lane" validate:"required,min=1,max=6"`
	SettledAt    time.Time `db:"settled_at" json:"settled_at"`
}

// Stayed reports whether the competitor started from the drawn lane
func (t LaneTransition) Stayed() bool {
	return t.AssignedLane == t.ActualLane
}

// LaneHistorySnapshot is a pinned, read-only view of lane transitions.
// It is taken once at the start of a race evaluation and never refreshed mid-computation.
type LaneHistorySnapshot struct {
	TakenAt      time.Time
	byCompetitor map[string][]LaneTransition
	all          []LaneTransition
}

// NewLaneHistorySnapshot copies transitions into a new snapshot
func NewLaneHistorySnapshot(takenAt time.Time, transitions []LaneTransition) *LaneHistorySnapshot {
	all := make([]LaneTransition, len(transitions))
	copy(all, transitions)

	byCompetitor := make(map[string][]LaneTransition)
	for _, t := range all {
		byCompetitor[t.CompetitorID] = append(byCompetitor[t.CompetitorID], t)
	}
	return &LaneHistorySnapshot{
		TakenAt:      takenAt,
		byCompetitor: byCompetitor,
		all:          all,
	}
}

// ForCompetitor returns the competitor's transitions. Callers must not modify the slice.
func (s *LaneHistorySnapshot) ForCompetitor(competitorID string) []LaneTransition {
	if s == nil {
		return nil
	}
	return s.byCompetitor[competitorID]
}

// All returns every transition in the snapshot. Callers must not modify the slice.
func (s *LaneHistorySnapshot) All() []LaneTransition {
	if s == nil {
		return nil
	}
	return s.all
}

// Len returns the number of transitions in the snapshot
func (s *LaneHistorySnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.all)
}
