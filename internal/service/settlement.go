package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/boatrace-edge/internal/logger"
	"github.com/yourusername/boatrace-edge/internal/models"
	"github.com/yourusername/boatrace-edge/internal/repository"
)

// SettlementSummary reports what settling a race changed
type SettlementSummary struct {
	RaceID      string  `json:"race_id"`
	Transitions int     `json:"transitions"`
	Won         int     `json:"won"`
	Lost        int     `json:"lost"`
	Discarded   int     `json:"discarded"`
	ProfitLoss  float64 `json:"profit_loss"`
}

// SettlementService records results, extends lane history and settles decisions
type SettlementService struct {
	races     repository.RaceRepository
	history   repository.LaneHistoryStore
	decisions repository.DecisionRepository
	audit     *logger.AuditLogger
	logger    *logrus.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	races repository.RaceRepository,
	history repository.LaneHistoryStore,
	decisions repository.DecisionRepository,
	log *logrus.Logger,
) *SettlementService {
	return &SettlementService{
		races:     races,
		history:   history,
		decisions: decisions,
		audit:     logger.NewAuditLogger(log),
		logger:    log,
	}
}

// SettleRace applies an official result. The result row is written last, so a
// failed attempt can be retried with the same result; decisions settled by an
// earlier attempt are left as they are. A conflicting finish for a race that
// already has a result fails with models.ErrDuplicateKey.
func (s *SettlementService) SettleRace(ctx context.Context, result *models.RaceResult) (*SettlementSummary, error) {
	card, err := s.races.GetCard(ctx, result.RaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load race %s: %w", result.RaceID, err)
	}
	if err := result.Validate(card.Race); err != nil {
		return nil, err
	}

	prev, err := s.races.GetResult(ctx, result.RaceID)
	switch {
	case err == nil && prev.Finish != result.Finish:
		return nil, fmt.Errorf("race %s already settled as %s: %w", result.RaceID, prev.Finish, models.ErrDuplicateKey)
	case err != nil && !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("failed to load result for race %s: %w", result.RaceID, err)
	}

	summary := &SettlementSummary{RaceID: result.RaceID}
	transitions := result.Transitions(card.Race)
	if err := s.history.Append(ctx, transitions); err != nil {
		return nil, fmt.Errorf("failed to append lane history: %w", err)
	}
	summary.Transitions = len(transitions)

	decisions, err := s.decisions.GetByRaceID(ctx, result.RaceID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load decisions: %w", err)
	}

	changed := make([]*models.BettingDecision, 0, len(decisions))
	for _, d := range decisions {
		switch {
		case d.Go && d.Status == models.DecisionRecommended:
			if err := d.Settle(result.Finish, result.SettledAt); err != nil {
				return nil, err
			}
			if d.Status == models.DecisionWon {
				summary.Won++
			} else {
				summary.Lost++
			}
			summary.ProfitLoss += *d.ProfitLoss
			s.audit.LogSettlement(d, result.Finish)
		case d.IsOpen():
			if err := d.Discard(result.SettledAt); err != nil {
				return nil, err
			}
			summary.Discarded++
		default:
			continue
		}
		changed = append(changed, d)
	}

	if err := s.decisions.UpdateSettlement(ctx, changed); err != nil {
		return nil, fmt.Errorf("failed to update decisions: %w", err)
	}

	if err := s.races.SaveResult(ctx, result); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"race_id":     summary.RaceID,
		"finish":      result.Finish.String(),
		"transitions": summary.Transitions,
		"won":         summary.Won,
		"lost":        summary.Lost,
		"discarded":   summary.Discarded,
		"profit_loss": summary.ProfitLoss,
	}).Info("Race settled")
	return summary, nil
}
