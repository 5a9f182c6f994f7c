// Package position computes where a ferry notionally is along its crossing.
//
// Positions are derived from the schedule only: a sailing moves along a straight
// line between its departure and arrival ports at constant speed. The
// interpolation is planar (latitude and longitude are blended independently),
// which is a known approximation that holds for the short and medium crossings
// the platform operates. It is not a great-circle path.
package position

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedSailing is returned when a sailing does not arrive strictly after it departs.
var ErrMalformedSailing = errors.New("sailing arrival must be after departure")

// Coordinate is a WGS84 point in decimal degrees. Values are not range-checked.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Sailing is a single crossing as seen by the calculator.
type Sailing struct {
	ID            string     `json:"id"`
	DepartureTime time.Time  `json:"departure_time"`
	ArrivalTime   time.Time  `json:"arrival_time"`
	Departure     Coordinate `json:"departure"`
	Arrival       Coordinate `json:"arrival"`
}

// WellFormed reports whether the sailing arrives strictly after it departs.
func (s Sailing) WellFormed() bool {
	return s.ArrivalTime.After(s.DepartureTime)
}

// Sample is the derived position of a sailing at one instant. It is never persisted.
type Sample struct {
	Sailing  Sailing    `json:"sailing"`
	Position Coordinate `json:"position"`
	Heading  float64    `json:"heading"`
	Progress float64    `json:"progress"`
}

// Progress returns the fraction of the crossing completed at now, clamped to [0, 1].
// Before departure the ferry is at the dock (0); at or after arrival it stays pinned
// at the destination (1).
func Progress(departure, arrival, now time.Time) (float64, error) {
	total := arrival.Sub(departure)
	if total <= 0 {
		return 0, ErrMalformedSailing
	}
	if !now.After(departure) {
		return 0, nil
	}
	if !now.Before(arrival) {
		return 1, nil
	}

	p := float64(now.Sub(departure)) / float64(total)
	return math.Min(1, math.Max(0, p)), nil
}

// Interpolate blends latitude and longitude linearly by progress.
func Interpolate(from, to Coordinate, progress float64) Coordinate {
	// Exact endpoints; a*(1-p)+b*p style drift is avoided at the bounds.
	switch progress {
	case 0:
		return from
	case 1:
		return to
	}
	return Coordinate{
		Lat: from.Lat + (to.Lat-from.Lat)*progress,
		Lng: from.Lng + (to.Lng-from.Lng)*progress,
	}
}

// Heading returns the course from one coordinate to another in degrees clockwise
// from north, in [0, 360). It uses the planar delta, so it is constant for the
// whole crossing.
func Heading(from, to Coordinate) float64 {
	deg := math.Atan2(to.Lng-from.Lng, to.Lat-from.Lat) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// Compute derives the sample for s at now.
func Compute(s Sailing, now time.Time) (Sample, error) {
	progress, err := Progress(s.DepartureTime, s.ArrivalTime, now)
	if err != nil {
		return Sample{}, fmt.Errorf("sailing %s: %w", s.ID, err)
	}
	return Sample{
		Sailing:  s,
		Position: Interpolate(s.Departure, s.Arrival, progress),
		Heading:  Heading(s.Departure, s.Arrival),
		Progress: progress,
	}, nil
}
