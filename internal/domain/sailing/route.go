package sailing

import (
	"math"
	"time"

	"github.com/ferrylink/service-fleet/internal/domain/position"
)

// Port is the snapshot of a harbour stored with a sailing.
type Port struct {
	Code string  `json:"code"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Coordinate returns the port's position.
func (p Port) Coordinate() position.Coordinate {
	return position.Coordinate{Lat: p.Lat, Lng: p.Lng}
}

// RouteSpecification is a value object describing the crossing between two ports.
type RouteSpecification struct {
	DepartureLat         float64 `json:"departure_lat"`
	DepartureLng         float64 `json:"departure_lng"`
	ArrivalLat           float64 `json:"arrival_lat"`
	ArrivalLng           float64 `json:"arrival_lng"`
	DistanceKm           float64 `json:"distance_km"`
	DistanceNm           float64 `json:"distance_nm"`
	EstimatedDurationMin int     `json:"estimated_duration_min"`
	HeadingDeg           float64 `json:"heading_deg"`
}

const kmPerNauticalMile = 1.852

// NewRouteSpecification describes the crossing from dep to arr scheduled to
// take duration.
func NewRouteSpecification(dep, arr Port, duration time.Duration) RouteSpecification {
	km := HaversineDistance(dep.Lat, dep.Lng, arr.Lat, arr.Lng)
	return RouteSpecification{
		DepartureLat:         dep.Lat,
		DepartureLng:         dep.Lng,
		ArrivalLat:           arr.Lat,
		ArrivalLng:           arr.Lng,
		DistanceKm:           math.Round(km*10) / 10,
		DistanceNm:           math.Round(km/kmPerNauticalMile*10) / 10,
		EstimatedDurationMin: int(duration.Minutes()),
		HeadingDeg:           position.Heading(dep.Coordinate(), arr.Coordinate()),
	}
}

// HaversineDistance calculates the great-circle distance between two coordinates in kilometers.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	lat1Rad := degreesToRadians(lat1)
	lat2Rad := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
