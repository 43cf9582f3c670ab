package lanes

import (
	"sort"

	"github.com/yourusername/boatrace-edge/internal/models"
)

// Assignment is one consistent lane permutation for a race.
type Assignment struct {
	// ActualLanes is indexed by assigned lane - 1
	ActualLanes [models.Lanes]int `json:"actual_lanes"`
	Instability int               `json:"instability"`
}

// Reconcile turns independent marginals into a single permutation.
//
// Entries most likely to leave their drawn lane choose first, ties broken by
// drawn lane. Each takes its most probable lane that is still free, lower lane
// first on equal probability. Instability counts entries whose reconciled lane
// differs from the drawn one.
func Reconcile(preds [models.Lanes]models.EntryPositionPrediction) Assignment {
	order := make([]int, models.Lanes)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		da := deviation(preds[order[a]], order[a]+1)
		db := deviation(preds[order[b]], order[b]+1)
		if da != db {
			return da > db
		}
		return order[a] < order[b]
	})

	var out Assignment
	var taken [models.Lanes]bool
	for _, idx := range order {
		dist := preds[idx].Distribution
		best := -1
		for l := 0; l < models.Lanes; l++ {
			if taken[l] {
				continue
			}
			if best < 0 || dist[l] > dist[best] {
				best = l
			}
		}
		taken[best] = true
		out.ActualLanes[idx] = best + 1
		if best != idx {
			out.Instability++
		}
	}
	return out
}

func deviation(p models.EntryPositionPrediction, assigned int) float64 {
	return 1 - p.Distribution.P(assigned)
}

// ExpectedLanes returns the expected actual lane per entry, indexed by assigned lane - 1
func ExpectedLanes(preds [models.Lanes]models.EntryPositionPrediction) [models.Lanes]float64 {
	var out [models.Lanes]float64
	for i, p := range preds {
		if p.Distribution.Sum() == 0 {
			out[i] = float64(i + 1)
			continue
		}
		out[i] = p.Distribution.Expected()
	}
	return out
}
