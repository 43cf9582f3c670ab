package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateKey      = errors.New("duplicate key violation")
	ErrInvalidEntryCount = errors.New("race must have exactly 6 entries")
	ErrLaneOutOfRange    = errors.New("lane must be between 1 and 6")
	ErrDuplicateLane     = errors.New("lane assigned to more than one entry")
	ErrInvalidTrifecta   = errors.New("invalid trifecta combination")
	ErrDecisionState     = errors.New("invalid betting decision state transition")
)

// RaceStructureError describes why a race failed structural validation.
// It is fatal for that race only; batch evaluation excludes the race and continues.
type RaceStructureError struct {
	RaceID string
	Field  string
	Detail string
	Err    error
}

func (e *RaceStructureError) Error() string {
	return fmt.Sprintf("race %s: invalid %s: %s: %v", e.RaceID, e.Field, e.Detail, e.Err)
}

func (e *RaceStructureError) Unwrap() error {
	return e.Err
}
