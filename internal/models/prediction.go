package models

// LaneDistribution is a probability distribution over actual starting lanes 1..6 (index 0 = lane 1)
type LaneDistribution [Lanes]float64

// P returns the probability of starting from lane
func (d LaneDistribution) P(lane int) float64 {
	if lane < 1 || lane > Lanes {
		return 0
	}
	return d[lane-1]
}

// Expected returns the expected actual lane
func (d LaneDistribution) Expected() float64 {
	e := 0.0
	for i, p := range d {
		e += float64(i+1) * p
	}
	return e
}

// MostLikely returns the lane with the highest probability, lowest lane on ties
func (d LaneDistribution) MostLikely() int {
	best := 0
	for i := 1; i < Lanes; i++ {
		if d[i] > d[best] {
			best = i
		}
	}
	return best + 1
}

// Sum returns the total probability mass
func (d LaneDistribution) Sum() float64 {
	s := 0.0
	for _, p := range d {
		s += p
	}
	return s
}

// EntryPositionPrediction is the actual-lane distribution for one entry
type EntryPositionPrediction struct {
	CompetitorID  string           `json:"competitor_id"`
	AssignedLane  int              `json:"assigned_lane"`
	Distribution  LaneDistribution `json:"distribution"`
	SettledRaces  int              `json:"settled_races"`
	UsedColdStart bool             `json:"used_cold_start"`
}

// DeviationProbability is the probability of not starting from the drawn lane
func (p EntryPositionPrediction) DeviationProbability() float64 {
	return 1 - p.Distribution.P(p.AssignedLane)
}

// DataQuality summarises how informative race-day signals are for one race
type DataQuality struct {
	ExhibitionVariance  float64 `json:"exhibition_variance"`
	StartTimingVariance float64 `json:"start_timing_variance"`
	InstabilityCount    int     `json:"instability_count"`
}
