// Package repository provides persistence for races, lane history, odds and decisions.
package repository

import (
	"fmt"

	"github.com/yourusername/boatrace-edge/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Race      RaceRepository
	History   LaneHistoryStore
	Decisions DecisionRepository
	Odds      OddsRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Race:      NewPostgresRaceRepository(db),
		History:   NewPostgresLaneHistoryStore(db),
		Decisions: NewPostgresDecisionRepository(db),
		Odds:      NewPostgresOddsRepository(db),
	}, nil
}
