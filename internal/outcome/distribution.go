package outcome

import (
	"iter"
	"math"
	"sort"

	"github.com/yourusername/boatrace-edge/internal/models"
)

// Combinations is the number of ordered top-3 finishes of six entries.
const Combinations = 120

// permutations lists every trifecta in lexicographic order
var permutations, permIndex = buildPermutations()

func buildPermutations() ([Combinations]models.Trifecta, map[models.Trifecta]int) {
	var perms [Combinations]models.Trifecta
	index := make(map[models.Trifecta]int, Combinations)
	n := 0
	for i := 1; i <= models.Lanes; i++ {
		for j := 1; j <= models.Lanes; j++ {
			for k := 1; k <= models.Lanes; k++ {
				if i == j || i == k || j == k {
					continue
				}
				t := models.Trifecta{First: i, Second: j, Third: k}
				perms[n] = t
				index[t] = n
				n++
			}
		}
	}
	return perms, index
}

// Outcome is one trifecta with its probability.
type Outcome struct {
	Combination models.Trifecta `json:"combination"`
	Probability float64         `json:"probability"`
}

// Exacta is an ordered top-2 finish, by lane.
type Exacta struct {
	First  int `json:"first"`
	Second int `json:"second"`
}

// Distribution is an immutable probability distribution over all 120 trifectas.
type Distribution struct {
	probs [Combinations]float64

	// RawSum is the total mass before renormalization.
	RawSum float64
	// Drifted reports whether |RawSum - 1| exceeded the model tolerance.
	Drifted bool
}

func (d *Distribution) renormalize(tolerance float64) {
	sum := 0.0
	for _, p := range d.probs {
		sum += p
	}
	d.RawSum = sum
	d.Drifted = math.Abs(sum-1) > tolerance
	if sum == 0 {
		return
	}
	for i := range d.probs {
		d.probs[i] /= sum
	}
}

// Drift returns the absolute pre-normalization drift
func (d *Distribution) Drift() float64 {
	return math.Abs(d.RawSum - 1)
}

// All enumerates every trifecta and its probability in lexicographic order.
// The sequence is finite and may be ranged over any number of times.
func (d *Distribution) All() iter.Seq2[models.Trifecta, float64] {
	return func(yield func(models.Trifecta, float64) bool) {
		for i, t := range permutations {
			if !yield(t, d.probs[i]) {
				return
			}
		}
	}
}

// Probability returns P(t), 0 for an invalid combination
func (d *Distribution) Probability(t models.Trifecta) float64 {
	i, ok := permIndex[t]
	if !ok {
		return 0
	}
	return d.probs[i]
}

// Len returns the number of combinations
func (d *Distribution) Len() int {
	return Combinations
}

// Sum returns the total probability mass
func (d *Distribution) Sum() float64 {
	s := 0.0
	for _, p := range d.probs {
		s += p
	}
	return s
}

// TopK returns the k most likely trifectas, most likely first.
// Equal probabilities keep lexicographic order.
func (d *Distribution) TopK(k int) []Outcome {
	if k <= 0 {
		return nil
	}
	if k > Combinations {
		k = Combinations
	}
	out := make([]Outcome, 0, Combinations)
	for t, p := range d.All() {
		out = append(out, Outcome{Combination: t, Probability: p})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	return out[:k]
}

// WinProbabilities returns the marginal P(1st = lane), indexed by lane - 1
func (d *Distribution) WinProbabilities() [models.Lanes]float64 {
	var out [models.Lanes]float64
	for t, p := range d.All() {
		out[t.First-1] += p
	}
	return out
}

// Exacta returns the marginal probability of each ordered top-2 finish
func (d *Distribution) Exacta() map[Exacta]float64 {
	out := make(map[Exacta]float64, models.Lanes*(models.Lanes-1))
	for t, p := range d.All() {
		out[Exacta{First: t.First, Second: t.Second}] += p
	}
	return out
}
