package betting

import (
	"iter"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/boatrace-edge/internal/config"
	"github.com/yourusername/boatrace-edge/internal/models"
)

// ProbabilitySource enumerates combinations with their model probability.
type ProbabilitySource interface {
	All() iter.Seq2[models.Trifecta, float64]
}

// Book is the set of decisions for one race.
type Book struct {
	RaceID    string                    `json:"race_id"`
	Decisions []*models.BettingDecision `json:"decisions"`
	// RequestedStake is the go stake before the race exposure cap.
	RequestedStake float64 `json:"requested_stake"`
	ExposureLimit  float64 `json:"exposure_limit"`
	// Scale is the factor applied to go stakes, 1 when the cap was not reached.
	Scale float64 `json:"scale"`
}

// GoDecisions returns the decisions recommended for wagering
func (b *Book) GoDecisions() []*models.BettingDecision {
	var out []*models.BettingDecision
	for _, d := range b.Decisions {
		if d.Go {
			out = append(out, d)
		}
	}
	return out
}

// TotalStake returns the stake across go decisions
func (b *Book) TotalStake() float64 {
	total := 0.0
	for _, d := range b.Decisions {
		if d.Go {
			total += d.Stake
		}
	}
	return total
}

// Capped reports whether the race exposure cap scaled stakes down
func (b *Book) Capped() bool {
	return b.Scale < 1
}

// Engine turns an outcome distribution and market odds into betting decisions.
type Engine struct {
	cfg config.BettingConfig
	now func() time.Time
}

// NewEngine creates a betting engine from configuration
func NewEngine(cfg config.BettingConfig) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// Decide evaluates every combination of dist against odds.
//
// Combinations without a quote are skipped, never fatal. Those passing the
// expected-value filter are ranked by EV; at most MaxBetsPerRace stay go and
// their stakes are scaled down together if they exceed the race exposure cap.
func (e *Engine) Decide(raceID string, dist ProbabilitySource, odds *models.MarketOdds, bankroll float64) *Book {
	now := e.now()
	book := &Book{
		RaceID:        raceID,
		ExposureLimit: bankroll * e.cfg.MaxRaceExposureFraction,
		Scale:         1,
	}

	var candidates []*models.BettingDecision
	for combo, p := range dist.All() {
		d := &models.BettingDecision{
			ID:          uuid.New(),
			RaceID:      raceID,
			Combination: combo,
			Probability: p,
			DecidedAt:   now,
		}
		book.Decisions = append(book.Decisions, d)

		price, ok := odds.Get(combo)
		if !ok {
			d.Status = models.DecisionSkipped
			d.Reason = models.ReasonOddsUnavailable
			continue
		}
		d.Odds = price

		s := Size(p, price, bankroll, e.cfg.KellyMultiplier, e.cfg.MaxBetFraction)
		d.ExpectedValue = s.ExpectedValue
		d.KellyFraction = s.KellyFraction

		switch {
		case s.ExpectedValue < e.cfg.MinExpectedValue:
			d.Status = models.DecisionRejected
			d.Reason = models.ReasonBelowEVThreshold
		case s.AdjustedFraction <= 0:
			d.Status = models.DecisionRejected
			d.Reason = models.ReasonNonPositiveKelly
		default:
			d.AdjustedFraction = s.AdjustedFraction
			d.Stake = s.Stake
			d.Status = models.DecisionRecommended
			d.Go = true
			candidates = append(candidates, d)
		}
	}

	e.applyRaceLimits(book, candidates, bankroll)
	return book
}

// Skip marks every combination of dist as skipped with reason, for races whose betting step was cancelled.
func (e *Engine) Skip(raceID string, dist ProbabilitySource, reason string) *Book {
	now := e.now()
	book := &Book{RaceID: raceID, Scale: 1}
	for combo, p := range dist.All() {
		book.Decisions = append(book.Decisions, &models.BettingDecision{
			ID:          uuid.New(),
			RaceID:      raceID,
			Combination: combo,
			Probability: p,
			Status:      models.DecisionSkipped,
			Reason:      reason,
			DecidedAt:   now,
		})
	}
	return book
}

func (e *Engine) applyRaceLimits(book *Book, candidates []*models.BettingDecision, bankroll float64) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ExpectedValue > candidates[j].ExpectedValue
	})

	if len(candidates) > e.cfg.MaxBetsPerRace {
		for _, d := range candidates[e.cfg.MaxBetsPerRace:] {
			d.Go = false
			d.Status = models.DecisionRejected
			d.Reason = models.ReasonRaceCap
			d.AdjustedFraction = 0
			d.Stake = 0
		}
		candidates = candidates[:e.cfg.MaxBetsPerRace]
	}

	for _, d := range candidates {
		book.RequestedStake += d.Stake
	}
	if book.RequestedStake > book.ExposureLimit && book.RequestedStake > 0 {
		book.Scale = book.ExposureLimit / book.RequestedStake
	}

	for _, d := range candidates {
		d.AdjustedFraction *= book.Scale
		d.Stake = RoundDown(bankroll*d.AdjustedFraction, e.cfg.StakeUnit)
		if d.Stake <= 0 {
			d.Go = false
			d.Status = models.DecisionRejected
			d.Reason = models.ReasonBelowStakeUnit
			d.AdjustedFraction = 0
			d.Stake = 0
		}
	}
}
