package scoring

import (
	"math"
	"sort"

	"github.com/yourusername/boatrace-edge/internal/models"
)

// LaneEmphasis selects which side of the course weighs start timing most.
type LaneEmphasis string

const (
	// EmphasisInner weighs lane 1 at 1.3 down to lane 6 at 0.8.
	EmphasisInner LaneEmphasis = "inner"
	// EmphasisOuter weighs lane 6 at 1.3 down to lane 1 at 0.8.
	EmphasisOuter LaneEmphasis = "outer"
)

// Start timing buckets, in seconds after the start signal.
const (
	stBestUpper = 0.15
	stGoodUpper = 0.20
	stFairUpper = 0.25
)

// Tilt constants, in degrees and wind speed units.
const (
	tiltBaseSlope        = 0.1
	tiltExtensionBoost   = 0.15
	tiltComfortBoost     = 0.2
	tiltSynergyThreshold = 0.5
	headwindSynergySpeed = 3.0
	tiltSynergyBonus     = 0.1
)

// ExhibitionScore ranks the entry's exhibition time against the rest of the race.
// The fastest time scores 1 and the slowest 0; tied times share the mean rank.
func ExhibitionScore(ctx Context) float64 {
	own, ok := models.Finite(ctx.Entry.ExhibitionTime)
	if !ok {
		return Neutral
	}
	times := ctx.Race.ExhibitionTimes()
	if len(times) < 2 {
		return Neutral
	}
	sort.Float64s(times)

	first, last := -1, -1
	for i, t := range times {
		if t == own {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	meanRank := float64(first+last) / 2
	return 1 - meanRank/float64(len(times)-1)
}

// StartTimingScore buckets the start timing and scales it by lane importance.
func StartTimingScore(emphasis LaneEmphasis) SubScoreFunc {
	return func(ctx Context) float64 {
		bucket := Neutral
		if st, ok := models.Finite(ctx.Entry.StartTiming); ok {
			bucket = startTimingBucket(st)
		}
		return bucket * LaneImportance(emphasis, ctx.Lane)
	}
}

func startTimingBucket(st float64) float64 {
	switch {
	case st < 0:
		// flying start
		return 0
	case st <= stBestUpper:
		return 1.0
	case st <= stGoodUpper:
		return 0.7
	case st <= stFairUpper:
		return 0.4
	default:
		return 0.1
	}
}

// LaneImportance returns the start-timing multiplier for lane, in [0.8, 1.3]
func LaneImportance(emphasis LaneEmphasis, lane int) float64 {
	if lane < 1 {
		lane = 1
	}
	if lane > 6 {
		lane = 6
	}
	if emphasis == EmphasisOuter {
		return 0.8 + float64(lane-1)*0.1
	}
	return 0.8 + float64(6-lane)*0.1
}

// TiltScore rewards extension tilt from outer lanes and comfort tilt from inner lanes.
func TiltScore(ctx Context) float64 {
	tilt, ok := models.Finite(ctx.Entry.Tilt)
	if !ok {
		return Neutral
	}
	score := clip01(Neutral + tiltBaseSlope*tilt)

	switch {
	case ctx.Lane >= 4 && tilt > 0:
		score += tiltExtensionBoost * tilt
	case ctx.Lane <= 3 && tilt < 0:
		score += tiltComfortBoost * math.Abs(tilt)
	}

	if tilt >= tiltSynergyThreshold && ctx.Race.Wind.HeadwindSpeed() >= headwindSynergySpeed {
		score += tiltSynergyBonus
	}
	return clip01(score)
}
