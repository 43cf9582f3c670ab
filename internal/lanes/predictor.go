// Package lanes predicts the lane each competitor will actually start from.
//
// Competitors may leave their drawn lane during the pre-start maneuvering. The
// predictor blends a course-wide prior with each competitor's settled history,
// read from an immutable snapshot so that concurrent evaluations are reproducible.
package lanes

import (
	"github.com/yourusername/boatrace-edge/internal/config"
	"github.com/yourusername/boatrace-edge/internal/models"
)

// Predictor computes per-competitor marginal lane distributions.
type Predictor struct {
	minSettled    int
	stayPrior     float64
	priorStrength float64
}

// NewPredictor creates a predictor from configuration
func NewPredictor(cfg config.PredictionConfig) *Predictor {
	return &Predictor{
		minSettled:    cfg.MinSettledRaces,
		stayPrior:     cfg.PriorStayProbability,
		priorStrength: cfg.PriorStrength,
	}
}

// MinSettledRaces is the history length below which the global prior is used
func (p *Predictor) MinSettledRaces() int {
	return p.minSettled
}

// GlobalPrior returns the prior for an entry drawn into assigned.
// The stay probability sits on the drawn lane; the remainder follows the
// snapshot-wide deviations from that lane, or is uniform when none were observed.
func (p *Predictor) GlobalPrior(assigned int, snap *models.LaneHistorySnapshot) models.LaneDistribution {
	return spread(assigned, p.stayPrior, deviationShape(assigned, snap.All()))
}

// Predict returns the lane distribution for a competitor drawn into assigned.
// Competitors with fewer than the configured number of settled races get the global prior unchanged.
func (p *Predictor) Predict(competitorID string, assigned int, snap *models.LaneHistorySnapshot) models.EntryPositionPrediction {
	history := snap.ForCompetitor(competitorID)
	prior := p.GlobalPrior(assigned, snap)

	pred := models.EntryPositionPrediction{
		CompetitorID: competitorID,
		AssignedLane: assigned,
		SettledRaces: len(history),
	}
	if len(history) < p.minSettled {
		pred.Distribution = prior
		pred.UsedColdStart = true
		return pred
	}

	stayed := 0
	for _, t := range history {
		if t.Stayed() {
			stayed++
		}
	}
	n := float64(len(history))
	stayRate := float64(stayed) / n

	shape := deviationShape(assigned, history)
	if shape == nil {
		shape = deviationShape(assigned, snap.All())
	}
	empirical := spread(assigned, stayRate, shape)

	for i := range pred.Distribution {
		pred.Distribution[i] = (p.priorStrength*prior[i] + n*empirical[i]) / (p.priorStrength + n)
	}
	return pred
}

// PredictRace predicts every entry, indexed by assigned lane - 1
func (p *Predictor) PredictRace(race *models.Race, snap *models.LaneHistorySnapshot) [models.Lanes]models.EntryPositionPrediction {
	var out [models.Lanes]models.EntryPositionPrediction
	for _, e := range race.Entries {
		if e.Lane < 1 || e.Lane > models.Lanes {
			continue
		}
		out[e.Lane-1] = p.Predict(e.CompetitorID, e.Lane, snap)
	}
	return out
}

// deviationShape counts where transitions drawn into assigned actually started,
// excluding stays. Returns nil when no deviation was observed.
func deviationShape(assigned int, transitions []models.LaneTransition) []float64 {
	var counts [models.Lanes]float64
	total := 0.0
	for _, t := range transitions {
		if t.AssignedLane != assigned || t.Stayed() {
			continue
		}
		if t.ActualLane < 1 || t.ActualLane > models.Lanes {
			continue
		}
		counts[t.ActualLane-1]++
		total++
	}
	if total == 0 {
		return nil
	}
	shape := make([]float64, models.Lanes)
	for i := range counts {
		shape[i] = counts[i] / total
	}
	return shape
}

// spread puts stay on assigned and distributes the rest by shape,
// uniformly over the other lanes when shape is nil.
func spread(assigned int, stay float64, shape []float64) models.LaneDistribution {
	var d models.LaneDistribution
	if assigned < 1 || assigned > models.Lanes {
		for i := range d {
			d[i] = 1.0 / models.Lanes
		}
		return d
	}
	rest := 1 - stay
	for i := range d {
		lane := i + 1
		switch {
		case lane == assigned:
			d[i] = stay
		case shape == nil:
			d[i] = rest / (models.Lanes - 1)
		default:
			d[i] = rest * shape[i]
		}
	}
	return d
}
