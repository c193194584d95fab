package geo

import "time"

// Fix is a raw position sample as delivered by a position source.
type Fix struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	AltitudeM  float64   `json:"altitude_m"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Accumulator turns a sequence of fixes into incremental distances.
// It keeps only the previously accepted fix and never filters: a fix
// identical to the previous one yields a zero increment, the first fix
// always yields zero. It performs no I/O.
type Accumulator struct {
	prev    Fix
	hasPrev bool
}

// Advance accepts the next fix and returns the distance in meters from
// the previously accepted fix.
func (a *Accumulator) Advance(fix Fix) float64 {
	if !a.hasPrev {
		a.prev = fix
		a.hasPrev = true
		return 0
	}
	inc := HaversineM(a.prev.Lat, a.prev.Lng, fix.Lat, fix.Lng)
	a.prev = fix
	return inc
}

// Last returns the previously accepted fix, if any.
func (a *Accumulator) Last() (Fix, bool) {
	return a.prev, a.hasPrev
}

// Reset seeds the accumulator with a known previous fix. Used when a
// session resumes and the last persisted point must anchor the next
// increment.
func (a *Accumulator) Reset(prev Fix) {
	a.prev = prev
	a.hasPrev = true
}
