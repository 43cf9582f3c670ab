// Package integration blends long-run and race-day scores with a data-quality dependent weight.
package integration

import (
	"github.com/yourusername/boatrace-edge/internal/config"
	"github.com/yourusername/boatrace-edge/internal/models"
)

// Integrator computes the race-day weight and the integrated score.
type Integrator struct {
	cfg config.IntegrationConfig
}

// NewIntegrator creates an integrator from configuration
func NewIntegrator(cfg config.IntegrationConfig) *Integrator {
	return &Integrator{cfg: cfg}
}

// Quality summarises how informative a race's signals are.
func Quality(signals *models.RaceSignals, instability int) models.DataQuality {
	q := models.DataQuality{InstabilityCount: instability}
	if signals == nil {
		return q
	}
	q.ExhibitionVariance = PopulationVariance(signals.ExhibitionTimes())
	q.StartTimingVariance = PopulationVariance(signals.StartTimings())
	return q
}

// Weight returns the race-day weight w in [0, 1].
//
// A wide exhibition spread means race-day data discriminates, so w grows toward
// MaxWeight. Tightly clustered start timings mean the measurement is trustworthy.
// Entries expected to leave their drawn lane pull w back toward the long-run score.
func (i *Integrator) Weight(q models.DataQuality) float64 {
	exInfo := clip01(q.ExhibitionVariance / i.cfg.ExhibitionVarianceRef)
	stTrust := 1 - clip01(q.StartTimingVariance/i.cfg.StartTimingVarianceRef)

	w := i.cfg.MinWeight + (i.cfg.MaxWeight-i.cfg.MinWeight)*exInfo*(0.5+0.5*stTrust)
	w -= i.cfg.InstabilityPenalty * float64(q.InstabilityCount) / models.Lanes
	return clip01(w)
}

// Integrate returns w*normalize(raceDay) + (1-w)*normalize(longRun) per entry.
func Integrate(w float64, raceDay, longRun [models.Lanes]float64) [models.Lanes]float64 {
	w = clip01(w)
	rd := Normalize(raceDay)
	lr := Normalize(longRun)

	var out [models.Lanes]float64
	for i := range out {
		out[i] = w*rd[i] + (1-w)*lr[i]
	}
	return out
}

// Normalize min-max scales v into [0, 1]. A constant vector maps to 0.5.
func Normalize(v [models.Lanes]float64) [models.Lanes]float64 {
	lo, hi := v[0], v[0]
	for _, x := range v[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}

	var out [models.Lanes]float64
	span := hi - lo
	for i, x := range v {
		if span == 0 {
			out[i] = 0.5
			continue
		}
		out[i] = (x - lo) / span
	}
	return out
}

// LongRunVector orders long-run scores by assigned lane.
// Lanes without a score take the mean of the supplied ones.
func LongRunVector(scores models.LongRunScores) [models.Lanes]float64 {
	var out [models.Lanes]float64
	sum, n := 0.0, 0
	for lane := 1; lane <= models.Lanes; lane++ {
		if v, ok := scores[lane]; ok {
			sum += v
			n++
		}
	}
	mean := 0.0
	if n > 0 {
		mean = sum / float64(n)
	}
	for lane := 1; lane <= models.Lanes; lane++ {
		if v, ok := scores[lane]; ok {
			out[lane-1] = v
		} else {
			out[lane-1] = mean
		}
	}
	return out
}

// PopulationVariance of xs, 0 when fewer than two values.
func PopulationVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	v := 0.0
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	return v / float64(len(xs))
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
