package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Trifecta is an ordered top-3 finish, identified by lane
type Trifecta struct {
	First  int `json:"first"`
	Second int `json:"second"`
	Third  int `json:"third"`
}

// String renders the combination in the "1-2-3" form used by the odds feed
func (t Trifecta) String() string {
	return fmt.Sprintf("%d-%d-%d", t.First, t.Second, t.Third)
}

// Valid reports whether the combination names three distinct lanes
func (t Trifecta) Valid() bool {
	for _, l := range []int{t.First, t.Second, t.Third} {
		if l < 1 || l > Lanes {
			return false
		}
	}
	return t.First != t.Second && t.First != t.Third && t.Second != t.Third
}

// ParseTrifecta parses a "1-2-3" combination
func ParseTrifecta(s string) (Trifecta, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return Trifecta{}, fmt.Errorf("%w: %q", ErrInvalidTrifecta, s)
	}
	lanes := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Trifecta{}, fmt.Errorf("%w: %q: %v", ErrInvalidTrifecta, s, err)
		}
		lanes[i] = n
	}
	t := Trifecta{First: lanes[0], Second: lanes[1], Third: lanes[2]}
	if !t.Valid() {
		return Trifecta{}, fmt.Errorf("%w: %q", ErrInvalidTrifecta, s)
	}
	return t, nil
}

// MarshalText implements encoding.TextMarshaler so trifectas can key JSON maps
func (t Trifecta) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Trifecta) UnmarshalText(b []byte) error {
	parsed, err := ParseTrifecta(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarketOdds is a point-in-time snapshot of trifecta payout multipliers for a race
type MarketOdds struct {
	RaceID    string               `json:"race_id"`
	FetchedAt time.Time            `json:"fetched_at"`
	Trifecta  map[Trifecta]float64 `json:"trifecta"`
}

// Get returns the payout multiplier for c, if quoted
func (o *MarketOdds) Get(c Trifecta) (float64, bool) {
	if o == nil || o.Trifecta == nil {
		return 0, false
	}
	v, ok := o.Trifecta[c]
	if !ok || v <= 1 {
		return 0, false
	}
	return v, true
}

// Age returns how old the snapshot is at now
func (o *MarketOdds) Age(now time.Time) time.Duration {
	return now.Sub(o.FetchedAt)
}

// GetImpliedProbability returns the market-implied probability for c
func (o *MarketOdds) GetImpliedProbability(c Trifecta) float64 {
	v, ok := o.Get(c)
	if !ok {
		return 0
	}
	return 1.0 / v
}
