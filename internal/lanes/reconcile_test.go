package lanes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/boatrace-edge/internal/models"
)

func stayer(lane int, stay float64) models.EntryPositionPrediction {
	var d models.LaneDistribution
	for i := range d {
		d[i] = (1 - stay) / (models.Lanes - 1)
	}
	d[lane-1] = stay
	return models.EntryPositionPrediction{AssignedLane: lane, Distribution: d}
}

func TestReconcileAllStay(t *testing.T) {
	var preds [models.Lanes]models.EntryPositionPrediction
	for i := range preds {
		preds[i] = stayer(i+1, 0.9)
	}

	a := Reconcile(preds)
	assert.Equal(t, [models.Lanes]int{1, 2, 3, 4, 5, 6}, a.ActualLanes)
	assert.Equal(t, 0, a.Instability)
}

func TestReconcileMoverTakesInnerLane(t *testing.T) {
	var preds [models.Lanes]models.EntryPositionPrediction
	for i := range preds {
		preds[i] = stayer(i+1, 0.9)
	}
	// lane 5 entry usually moves to lane 1
	preds[4].Distribution = models.LaneDistribution{0.6, 0.05, 0.05, 0.05, 0.2, 0.05}

	a := Reconcile(preds)

	// inner entries are pushed one lane outward
	assert.Equal(t, [models.Lanes]int{2, 3, 4, 5, 1, 6}, a.ActualLanes)
	assert.Equal(t, 5, a.Instability)
	assertPermutation(t, a.ActualLanes)
}

func TestReconcileZeroPredictionsStillPermutation(t *testing.T) {
	var preds [models.Lanes]models.EntryPositionPrediction
	a := Reconcile(preds)
	assertPermutation(t, a.ActualLanes)
}

func TestExpectedLanes(t *testing.T) {
	var preds [models.Lanes]models.EntryPositionPrediction
	preds[0] = stayer(1, 1.0)
	exp := ExpectedLanes(preds)
	assert.InDelta(t, 1.0, exp[0], 1e-12)
	assert.Equal(t, 2.0, exp[1])
}

func assertPermutation(t *testing.T, lanes [models.Lanes]int) {
	t.Helper()
	seen := map[int]bool{}
	for _, l := range lanes {
		assert.GreaterOrEqual(t, l, 1)
		assert.LessOrEqual(t, l, models.Lanes)
		assert.False(t, seen[l], "lane %d used twice", l)
		seen[l] = true
	}
}
