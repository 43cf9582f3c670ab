package models

import "math"

// WindDirection is the wind direction relative to the course's home straight
type WindDirection string

const (
	WindUnknown WindDirection = ""
	WindHead    WindDirection = "head"
	WindTail    WindDirection = "tail"
	WindCross   WindDirection = "cross"
	WindCalm    WindDirection = "calm"
)

// Wind is the race-wide wind reading taken before the start
type Wind struct {
	Speed     *float64      `json:"speed"`
	Direction WindDirection `json:"direction"`
}

// HeadwindSpeed returns the wind speed when it blows against the boats, otherwise 0
func (w Wind) HeadwindSpeed() float64 {
	if w.Speed == nil || w.Direction != WindHead {
		return 0
	}
	return *w.Speed
}

// EntrySignals are the pre-start measurements for one entry.
// Nil fields were not captured.
type EntrySignals struct {
	Lane           int      `db:"lane" json:"lane"`
	ExhibitionTime *float64 `db:"exhibition_time" json:"exhibition_time"`
	StartTiming    *float64 `db:"start_timing" json:"start_timing"`
	Tilt           *float64 `db:"tilt" json:"tilt"`
}

// RaceSignals is the immutable capture of race-day signals for a race, indexed by assigned lane
type RaceSignals struct {
	RaceID  string              `json:"race_id"`
	Entries [Lanes]EntrySignals `json:"entries"`
	Wind    Wind                `json:"wind"`
}

// ForLane returns the signals captured for the entry drawn into lane
func (s *RaceSignals) ForLane(lane int) EntrySignals {
	if lane < 1 || lane > Lanes {
		return EntrySignals{Lane: lane}
	}
	sig := s.Entries[lane-1]
	sig.Lane = lane
	return sig
}

// ExhibitionTimes returns the captured exhibition times, skipping missing values
func (s *RaceSignals) ExhibitionTimes() []float64 {
	out := make([]float64, 0, Lanes)
	for _, e := range s.Entries {
		if v, ok := Finite(e.ExhibitionTime); ok {
			out = append(out, v)
		}
	}
	return out
}

// StartTimings returns the captured start timings, skipping missing values
func (s *RaceSignals) StartTimings() []float64 {
	out := make([]float64, 0, Lanes)
	for _, e := range s.Entries {
		if v, ok := Finite(e.StartTiming); ok {
			out = append(out, v)
		}
	}
	return out
}

// Finite dereferences p. NaN and infinities count as missing.
func Finite(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

// Float returns a pointer to v, for building signals in code and tests
func Float(v float64) *float64 {
	return &v
}
