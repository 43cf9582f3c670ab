// Package outcome expands six integrated scores into probabilities for all 120 trifectas.
package outcome

import (
	"math"

	"github.com/yourusername/boatrace-edge/internal/config"
	"github.com/yourusername/boatrace-edge/internal/models"
)

// Model is the hierarchical finishing-order model.
//
// The winner is drawn from a softmax over the integrated scores. Each later
// place re-scores only the entries still in contention, so removing a strong
// leader changes the relative standing of the rest. Lane coupling favours the
// entry expected to start just outside the boat ahead of it.
type Model struct {
	sharpness float64
	discount  float64
	coupling  float64
	tolerance float64
}

// NewModel creates a model from configuration
func NewModel(cfg config.OutcomeConfig) *Model {
	return &Model{
		sharpness: cfg.Sharpness,
		discount:  cfg.PlaceDiscount,
		coupling:  cfg.LaneCouplingStrength,
		tolerance: cfg.DriftTolerance,
	}
}

// DriftTolerance is the mass drift above which a distribution is flagged
func (m *Model) DriftTolerance() float64 {
	return m.tolerance
}

// Expand computes the trifecta distribution. Both inputs are indexed by assigned lane - 1;
// expectedLanes holds each entry's expected actual starting lane.
func (m *Model) Expand(scores, expectedLanes [models.Lanes]float64) *Distribution {
	d := &Distribution{}
	win := m.WinProbabilities(scores)

	for i := 0; i < models.Lanes; i++ {
		second := m.conditional(scores, expectedLanes, []int{i}, m.sharpness*m.discount)
		for j := 0; j < models.Lanes; j++ {
			if j == i {
				continue
			}
			third := m.conditional(scores, expectedLanes, []int{i, j}, m.sharpness*m.discount*m.discount)
			for k := 0; k < models.Lanes; k++ {
				if k == i || k == j {
					continue
				}
				t := models.Trifecta{First: i + 1, Second: j + 1, Third: k + 1}
				d.probs[permIndex[t]] = win[i] * second[j] * third[k]
			}
		}
	}

	d.renormalize(m.tolerance)
	return d
}

// WinProbabilities returns P(1st = i) = softmax(sharpness * score_i)
func (m *Model) WinProbabilities(scores [models.Lanes]float64) [models.Lanes]float64 {
	var logits [models.Lanes]float64
	for i, s := range scores {
		logits[i] = m.sharpness * s
	}
	return softmax(logits, nil)
}

// conditional returns the distribution of the next place over entries not in placed.
// Remaining scores are min-max rescaled among themselves before the softmax.
func (m *Model) conditional(scores, expectedLanes [models.Lanes]float64, placed []int, beta float64) [models.Lanes]float64 {
	var excluded [models.Lanes]bool
	for _, p := range placed {
		excluded[p] = true
	}
	ahead := placed[len(placed)-1]

	lo, hi := math.Inf(1), math.Inf(-1)
	for i, s := range scores {
		if excluded[i] {
			continue
		}
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}

	var logits [models.Lanes]float64
	for i, s := range scores {
		if excluded[i] {
			continue
		}
		z := 0.5
		if hi > lo {
			z = (s - lo) / (hi - lo)
		}
		logits[i] = beta*z + m.coupling*outsideCoupling(expectedLanes[i], expectedLanes[ahead])
	}
	return softmax(logits, excluded[:])
}

// outsideCoupling is 1 when lane sits exactly one lane outside ahead, decaying linearly to 0.
func outsideCoupling(lane, ahead float64) float64 {
	return math.Max(0, 1-math.Abs(lane-(ahead+1)))
}

// softmax over logits, with excluded entries given zero probability
func softmax(logits [models.Lanes]float64, excluded []bool) [models.Lanes]float64 {
	var out [models.Lanes]float64
	hi := math.Inf(-1)
	for i, l := range logits {
		if excluded != nil && excluded[i] {
			continue
		}
		hi = math.Max(hi, l)
	}

	sum := 0.0
	for i, l := range logits {
		if excluded != nil && excluded[i] {
			continue
		}
		out[i] = math.Exp(l - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
