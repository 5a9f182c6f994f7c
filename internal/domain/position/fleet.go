package position

import (
	"sync"
	"time"
)

// Clock supplies the reference instant for a batch.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads wall time in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Fleet is an immutable snapshot of the sailings currently on the map.
// A refresh produces a new *Fleet; the pointer is its identity.
type Fleet struct {
	sailings  []Sailing
	fetchedAt time.Time
}

// NewFleet copies sailings into a new snapshot.
func NewFleet(sailings []Sailing, fetchedAt time.Time) *Fleet {
	cp := make([]Sailing, len(sailings))
	copy(cp, sailings)
	return &Fleet{sailings: cp, fetchedAt: fetchedAt}
}

// Len returns the number of sailings in the snapshot.
func (f *Fleet) Len() int {
	if f == nil {
		return 0
	}
	return len(f.sailings)
}

// FetchedAt returns when the snapshot was loaded.
func (f *Fleet) FetchedAt() time.Time {
	if f == nil {
		return time.Time{}
	}
	return f.fetchedAt
}

// WellFormed returns the sailings that arrive after they depart, in order,
// together with the ones that were dropped.
func WellFormed(sailings []Sailing) (kept, dropped []Sailing) {
	kept = make([]Sailing, 0, len(sailings))
	for _, s := range sailings {
		if s.WellFormed() {
			kept = append(kept, s)
			continue
		}
		dropped = append(dropped, s)
	}
	return kept, dropped
}

// Derive computes one sample per sailing, in input order, against a single
// clock reading so every ferry in the batch is placed at the same instant.
func Derive(sailings []Sailing, clock Clock) ([]Sample, error) {
	now := clock.Now()
	samples := make([]Sample, len(sailings))
	for i, s := range sailings {
		sample, err := Compute(s, now)
		if err != nil {
			return nil, err
		}
		samples[i] = sample
	}
	return samples, nil
}

// View memoizes Derive over a fleet snapshot. The batch is recomputed only when
// the fleet identity or the tick changes.
type View struct {
	clock Clock

	mu       sync.Mutex
	fleet    *Fleet
	tick     int64
	samples  []Sample
	computed bool
}

// NewView creates a View reading time from clock.
func NewView(clock Clock) *View {
	return &View{clock: clock}
}

// Samples returns the positions for fleet at tick, placed at the clock reading
// taken when the batch is computed. The returned slice is shared between
// callers of the same (fleet, tick) and must not be modified.
func (v *View) Samples(fleet *Fleet, tick int64) ([]Sample, error) {
	return v.derive(fleet, tick, v.clock)
}

// SamplesAt is Samples with the batch placed at the instant at rather than at a
// clock reading. Callers that key ticks off the clock pass the tick start so
// the batch and the instant it reports agree.
func (v *View) SamplesAt(fleet *Fleet, tick int64, at time.Time) ([]Sample, error) {
	return v.derive(fleet, tick, ClockFunc(func() time.Time { return at }))
}

func (v *View) derive(fleet *Fleet, tick int64, clock Clock) ([]Sample, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.computed && v.fleet == fleet && v.tick == tick {
		return v.samples, nil
	}

	var sailings []Sailing
	if fleet != nil {
		sailings = fleet.sailings
	}
	samples, err := Derive(sailings, clock)
	if err != nil {
		return nil, err
	}

	v.fleet = fleet
	v.tick = tick
	v.samples = samples
	v.computed = true
	return samples, nil
}
