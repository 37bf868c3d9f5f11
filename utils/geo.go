// utils/geo.go
package utils

import (
	"math"
)

const (
	// EarthRadiusMiles is the mean Earth radius used by the haversine formula.
	EarthRadiusMiles = 3959.0
	// FeetPerMile for distance conversion.
	FeetPerMile = 5280.0
	// MilesPerDegreeLat: approximate miles per degree of latitude, used by the
	// equirectangular spawn-offset approximation. Only locally accurate for
	// small offsets; degrades near the poles where cos(lat) → 0.
	MilesPerDegreeLat = 69.0
)

// DistanceMiles returns the great-circle distance between two points in
// miles (haversine). Callers must pass finite degree values in
// [-90,90]/[-180,180]; NaN inputs produce NaN out, per standard float rules.
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// DistanceFeet returns the great-circle distance between two points in feet.
func DistanceFeet(lat1, lng1, lat2, lng2 float64) float64 {
	return DistanceMiles(lat1, lng1, lat2, lng2) * FeetPerMile
}

// OffsetLocation displaces (lat, lng) by distMiles along bearing angle
// (radians, counterclockwise from east) using the equirectangular
// approximation:
//
//	dLat = (d/69) * cos(angle)
//	dLng = (d / (69 * cos(lat))) * sin(angle)
//
// Valid for small distances away from the poles.
func OffsetLocation(lat, lng, angle, distMiles float64) (float64, float64) {
	dLat := (distMiles / MilesPerDegreeLat) * math.Cos(angle)
	dLng := (distMiles / (MilesPerDegreeLat * math.Cos(lat*math.Pi/180.0))) * math.Sin(angle)
	return lat + dLat, lng + dLng
}
