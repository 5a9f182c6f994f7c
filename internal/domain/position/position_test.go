package position

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tunis     = Coordinate{Lat: 36.80, Lng: 10.18}
	marseille = Coordinate{Lat: 43.31, Lng: 5.37}
	dep       = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	arr       = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
)

func tunisMarseille() Sailing {
	return Sailing{
		ID:            "TUN-MRS",
		DepartureTime: dep,
		ArrivalTime:   arr,
		Departure:     tunis,
		Arrival:       marseille,
	}
}

func TestProgress_Clamping(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want float64
	}{
		{"long before departure", dep.Add(-48 * time.Hour), 0},
		{"one nanosecond before departure", dep.Add(-time.Nanosecond), 0},
		{"at departure", dep, 0},
		{"at arrival", arr, 1},
		{"after arrival", arr.Add(time.Minute), 1},
		{"days after arrival", arr.Add(72 * time.Hour), 1},
		{"quarter", dep.Add(3 * time.Hour), 0.25},
		{"half", dep.Add(6 * time.Hour), 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Progress(dep, arr, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProgress_Monotonic(t *testing.T) {
	prev := -1.0
	for now := dep.Add(-time.Hour); !now.After(arr.Add(time.Hour)); now = now.Add(7 * time.Minute) {
		p, err := Progress(dep, arr, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, prev, "progress decreased at %s", now)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		prev = p
	}
}

func TestProgress_MalformedSailing(t *testing.T) {
	_, err := Progress(arr, dep, dep)
	assert.ErrorIs(t, err, ErrMalformedSailing)

	_, err = Progress(dep, dep, dep)
	assert.ErrorIs(t, err, ErrMalformedSailing)
}

func TestInterpolate_EndpointPinning(t *testing.T) {
	assert.Equal(t, tunis, Interpolate(tunis, marseille, 0))
	assert.Equal(t, marseille, Interpolate(tunis, marseille, 1))
}

func TestInterpolate_Midpoint(t *testing.T) {
	mid := Interpolate(tunis, marseille, 0.5)
	assert.InDelta(t, (tunis.Lat+marseille.Lat)/2, mid.Lat, 1e-12)
	assert.InDelta(t, (tunis.Lng+marseille.Lng)/2, mid.Lng, 1e-12)
}

func TestHeading(t *testing.T) {
	tests := []struct {
		name     string
		from, to Coordinate
		want     float64
	}{
		{"north", Coordinate{0, 0}, Coordinate{1, 0}, 0},
		{"east", Coordinate{0, 0}, Coordinate{0, 1}, 90},
		{"south", Coordinate{0, 0}, Coordinate{-1, 0}, 180},
		{"west", Coordinate{0, 0}, Coordinate{0, -1}, 270},
		{"north east", Coordinate{0, 0}, Coordinate{1, 1}, 45},
		{"north west", Coordinate{0, 0}, Coordinate{1, -1}, 315},
		{"same point", Coordinate{5, 5}, Coordinate{5, 5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Heading(tt.from, tt.to), 1e-9)
		})
	}
}

func TestHeading_Normalized(t *testing.T) {
	for lat1 := -80.0; lat1 <= 80; lat1 += 20 {
		for lng1 := -170.0; lng1 <= 170; lng1 += 34 {
			for lat2 := -85.0; lat2 <= 85; lat2 += 17 {
				for lng2 := -175.0; lng2 <= 175; lng2 += 35 {
					h := Heading(Coordinate{lat1, lng1}, Coordinate{lat2, lng2})
					require.False(t, math.IsNaN(h))
					require.GreaterOrEqual(t, h, 0.0)
					require.Less(t, h, 360.0)
				}
			}
		}
	}
}

func TestCompute_HeadingStableAcrossCrossing(t *testing.T) {
	s := tunisMarseille()
	first, err := Compute(s, dep.Add(-time.Hour))
	require.NoError(t, err)

	for now := dep; !now.After(arr.Add(time.Hour)); now = now.Add(45 * time.Minute) {
		sample, err := Compute(s, now)
		require.NoError(t, err)
		assert.Equal(t, first.Heading, sample.Heading)
	}
}

func TestCompute_TunisMarseilleHalfway(t *testing.T) {
	sample, err := Compute(tunisMarseille(), dep.Add(6*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 0.5, sample.Progress)
	assert.InDelta(t, 40.055, sample.Position.Lat, 1e-9)
	assert.InDelta(t, 7.775, sample.Position.Lng, 1e-9)
	// atan2(-4.81, 6.51) = -36.459 degrees, normalized to 323.541.
	assert.InDelta(t, 323.541, sample.Heading, 0.001)
	assert.Equal(t, "TUN-MRS", sample.Sailing.ID)
}

func TestCompute_PinnedAtDestination(t *testing.T) {
	sample, err := Compute(tunisMarseille(), arr.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1.0, sample.Progress)
	assert.Equal(t, marseille, sample.Position)
}

func TestCompute_Malformed(t *testing.T) {
	s := tunisMarseille()
	s.ArrivalTime = s.DepartureTime

	_, err := Compute(s, dep)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedSailing))
	assert.Contains(t, err.Error(), "TUN-MRS")
}
