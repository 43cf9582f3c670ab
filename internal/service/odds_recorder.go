package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/boatrace-edge/internal/models"
	"github.com/yourusername/boatrace-edge/internal/pipeline"
	"github.com/yourusername/boatrace-edge/internal/repository"
)

// RecordingOddsSource stores every snapshot it hands out so races can be replayed later
type RecordingOddsSource struct {
	source pipeline.OddsSource
	store  repository.OddsRepository
	logger *logrus.Entry
}

// NewRecordingOddsSource wraps source
func NewRecordingOddsSource(source pipeline.OddsSource, store repository.OddsRepository, log *logrus.Logger) *RecordingOddsSource {
	return &RecordingOddsSource{
		source: source,
		store:  store,
		logger: log.WithField("component", "odds_recorder"),
	}
}

// GetOdds fetches from the wrapped source and persists the result
func (r *RecordingOddsSource) GetOdds(ctx context.Context, raceID string) (*models.MarketOdds, error) {
	odds, err := r.source.GetOdds(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if err := r.store.Save(context.WithoutCancel(ctx), odds); err != nil {
		r.logger.WithError(err).WithField("race_id", raceID).Warn("Failed to store odds snapshot")
	}
	return odds, nil
}
