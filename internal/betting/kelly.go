// Package betting filters trifectas on expected value and sizes stakes with fractional Kelly.
package betting

import "github.com/shopspring/decimal"

// ExpectedValue returns P*odds - 1, the edge per unit staked
func ExpectedValue(probability, odds float64) float64 {
	return probability*odds - 1.0
}

// KellyFraction returns the full Kelly fraction f = (b*p - q) / b with b = odds - 1.
// Odds at or below evens return 0.
func KellyFraction(probability, odds float64) float64 {
	b := odds - 1.0
	if b <= 0 {
		return 0
	}
	p := probability
	q := 1.0 - p
	return (b*p - q) / b
}

// Sizing is the result of sizing one combination.
type Sizing struct {
	ExpectedValue    float64
	KellyFraction    float64
	AdjustedFraction float64
	Stake            float64
}

// Size applies the fractional multiplier and the per-bet cap to the Kelly fraction
func Size(probability, odds, bankroll, multiplier, maxFraction float64) Sizing {
	s := Sizing{
		ExpectedValue: ExpectedValue(probability, odds),
		KellyFraction: KellyFraction(probability, odds),
	}
	s.AdjustedFraction = clamp(s.KellyFraction*multiplier, 0, maxFraction)
	s.Stake = bankroll * s.AdjustedFraction
	return s
}

// RoundDown floors stake to a multiple of unit. A zero unit leaves the stake unchanged.
func RoundDown(stake, unit float64) float64 {
	if unit <= 0 {
		return stake
	}
	u := decimal.NewFromFloat(unit)
	units := decimal.NewFromFloat(stake).Div(u).Floor()
	rounded, _ := units.Mul(u).Float64()
	return rounded
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
