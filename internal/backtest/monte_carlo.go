package backtest

import (
	"math/rand"
	"sort"

	"github.com/yourusername/boatrace-edge/internal/models"
)

// MonteCarloResult is the bankroll distribution from re-drawing race outcomes under the model
type MonteCarloResult struct {
	Iterations          int       `json:"iterations"`
	MeanReturn          float64   `json:"mean_return"`
	Percentile5         float64   `json:"p5_return"`
	Percentile95        float64   `json:"p95_return"`
	ProbabilityOfProfit float64   `json:"probability_of_profit"`
	Distribution        []float64 `json:"-"`
}

// RunMonteCarlo re-draws each race's outcome from the model probabilities of
// its bets. Combinations in one race are mutually exclusive, so at most one
// bet per race wins in each draw.
func RunMonteCarlo(bets []*models.BettingDecision, initialBankroll float64, iterations int, seed int64) MonteCarloResult {
	if iterations <= 0 {
		iterations = 1000
	}

	byRace := make(map[string][]*models.BettingDecision)
	order := make([]string, 0)
	for _, b := range bets {
		if _, ok := byRace[b.RaceID]; !ok {
			order = append(order, b.RaceID)
		}
		byRace[b.RaceID] = append(byRace[b.RaceID], b)
	}

	rng := rand.New(rand.NewSource(seed))
	distribution := make([]float64, iterations)
	for i := range distribution {
		bankroll := initialBankroll
		for _, raceID := range order {
			u := rng.Float64()
			cum := 0.0
			for _, b := range byRace[raceID] {
				won := u >= cum && u < cum+b.Probability
				cum += b.Probability
				if won {
					bankroll += (b.Odds - 1) * b.Stake
				} else {
					bankroll -= b.Stake
				}
			}
		}
		distribution[i] = bankroll
	}

	sorted := append([]float64(nil), distribution...)
	sort.Float64s(sorted)

	result := MonteCarloResult{Iterations: iterations, Distribution: distribution}
	profitable, sum := 0, 0.0
	for _, v := range distribution {
		sum += v
		if v > initialBankroll {
			profitable++
		}
	}
	toReturn := func(v float64) float64 { return (v - initialBankroll) / initialBankroll }
	result.MeanReturn = toReturn(sum / float64(iterations))
	result.Percentile5 = toReturn(percentile(sorted, 0.05))
	result.Percentile95 = toReturn(percentile(sorted, 0.95))
	result.ProbabilityOfProfit = float64(profitable) / float64(iterations)
	return result
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
