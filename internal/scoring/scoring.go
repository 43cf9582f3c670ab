// Package scoring turns race-day pre-start signals into a per-entry race-day score.
package scoring

import (
	"github.com/yourusername/boatrace-edge/internal/config"
	"github.com/yourusername/boatrace-edge/internal/models"
)

// Sub-score names, in evaluation order.
const (
	SubScoreExhibition  = "exhibition"
	SubScoreStartTiming = "start_timing"
	SubScoreTilt        = "tilt"
)

// Neutral is substituted for any sub-score whose input was not captured.
const Neutral = 0.5

// Context is what a sub-scorer sees for one entry.
// Lane is the lane the entry is expected to actually start from.
type Context struct {
	AssignedLane int
	Lane         int
	Entry        models.EntrySignals
	Race         *models.RaceSignals
}

// SubScoreFunc is a pure sub-score over one entry's context.
type SubScoreFunc func(Context) float64

// SubScorer is one weighted stage of the scoring pipeline.
type SubScorer struct {
	Name   string
	Weight float64
	Score  SubScoreFunc
}

// SubScore is one evaluated stage for an entry.
type SubScore struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// Breakdown is the explainable race-day score of one entry.
type Breakdown struct {
	AssignedLane int        `json:"assigned_lane"`
	ScoringLane  int        `json:"scoring_lane"`
	SubScores    []SubScore `json:"sub_scores"`
	Total        float64    `json:"total"`
}

// Get returns the named sub-score value
func (b Breakdown) Get(name string) (float64, bool) {
	for _, s := range b.SubScores {
		if s.Name == name {
			return s.Value, true
		}
	}
	return 0, false
}

// Scorer evaluates an ordered list of sub-scorers.
type Scorer struct {
	stages []SubScorer
}

// NewScorer builds the exhibition, start-timing and tilt pipeline from configuration
func NewScorer(cfg config.ScoringConfig) *Scorer {
	return NewScorerWithStages(
		SubScorer{Name: SubScoreExhibition, Weight: cfg.ExhibitionWeight, Score: ExhibitionScore},
		SubScorer{Name: SubScoreStartTiming, Weight: cfg.StartTimingWeight, Score: StartTimingScore(LaneEmphasis(cfg.StartTimingLaneEmphasis))},
		SubScorer{Name: SubScoreTilt, Weight: cfg.TiltWeight, Score: TiltScore},
	)
}

// NewScorerWithStages builds a scorer from explicit stages
func NewScorerWithStages(stages ...SubScorer) *Scorer {
	s := make([]SubScorer, len(stages))
	copy(s, stages)
	return &Scorer{stages: s}
}

// Score computes the breakdown for the entry drawn into assignedLane.
// scoringLane is the lane used for lane-dependent effects; pass assignedLane when no prediction exists.
// Score never fails: missing signals degrade to Neutral.
func (s *Scorer) Score(signals *models.RaceSignals, assignedLane, scoringLane int) Breakdown {
	if signals == nil {
		signals = &models.RaceSignals{}
	}
	if scoringLane < 1 || scoringLane > models.Lanes {
		scoringLane = assignedLane
	}
	ctx := Context{
		AssignedLane: assignedLane,
		Lane:         scoringLane,
		Entry:        signals.ForLane(assignedLane),
		Race:         signals,
	}

	b := Breakdown{
		AssignedLane: assignedLane,
		ScoringLane:  scoringLane,
		SubScores:    make([]SubScore, 0, len(s.stages)),
	}
	for _, stage := range s.stages {
		v := stage.Score(ctx)
		b.SubScores = append(b.SubScores, SubScore{Name: stage.Name, Value: v, Weight: stage.Weight})
		b.Total += stage.Weight * v
	}
	return b
}

// ScoreRace scores all six entries. scoringLanes is indexed by assigned lane - 1.
func (s *Scorer) ScoreRace(signals *models.RaceSignals, scoringLanes [models.Lanes]int) [models.Lanes]Breakdown {
	var out [models.Lanes]Breakdown
	for i := range out {
		out[i] = s.Score(signals, i+1, scoringLanes[i])
	}
	return out
}

// Totals extracts the race-day score per assigned lane
func Totals(b [models.Lanes]Breakdown) [models.Lanes]float64 {
	var out [models.Lanes]float64
	for i := range b {
		out[i] = b[i].Total
	}
	return out
}

// AssignedLanes is the identity lane mapping, for scoring without lane predictions
func AssignedLanes() [models.Lanes]int {
	var out [models.Lanes]int
	for i := range out {
		out[i] = i + 1
	}
	return out
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
