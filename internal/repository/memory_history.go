package repository

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/boatrace-edge/internal/models"
)

// MemoryLaneHistoryStore is an append-only in-process lane history.
// Snapshots copy the current contents so later appends never reach them.
type MemoryLaneHistoryStore struct {
	mu          sync.RWMutex
	transitions []models.LaneTransition
	seen        map[string]struct{}
	now         func() time.Time
}

// NewMemoryLaneHistoryStore creates a store seeded with transitions
func NewMemoryLaneHistoryStore(seed ...models.LaneTransition) *MemoryLaneHistoryStore {
	s := &MemoryLaneHistoryStore{
		seen: make(map[string]struct{}),
		now:  time.Now,
	}
	s.appendLocked(seed)
	return s
}

// Snapshot returns a pinned copy of the history
func (s *MemoryLaneHistoryStore) Snapshot(ctx context.Context) (*models.LaneHistorySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.NewLaneHistorySnapshot(s.now(), s.transitions), nil
}

// Append adds transitions, ignoring competitors already recorded for the same race
func (s *MemoryLaneHistoryStore) Append(ctx context.Context, transitions []models.LaneTransition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(transitions)
	return nil
}

// Len returns the number of stored transitions
func (s *MemoryLaneHistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transitions)
}

func (s *MemoryLaneHistoryStore) appendLocked(transitions []models.LaneTransition) {
	for _, t := range transitions {
		key := t.RaceID + "/" + t.CompetitorID
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = struct{}{}
		s.transitions = append(s.transitions, t)
	}
}
