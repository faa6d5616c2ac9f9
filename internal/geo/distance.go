// Package geo provides the great-circle distance used to filter and rank job
// search results.
package geo

import (
	"math"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the haversine distance in kilometers between two
// coordinates. Symmetric, non-negative, and zero for identical points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// BoundingBox returns a latitude/longitude window that contains every point
// within radiusKm of (lat, lng). The window over-approximates near the poles
// and the antimeridian; callers re-check with DistanceKm.
func BoundingBox(lat, lng, radiusKm float64) (minLat, maxLat, minLng, maxLng float64) {
	latDelta := radiusKm / 111.0
	cosLat := math.Cos(radians(lat))
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lngDelta := radiusKm / (111.0 * cosLat)

	minLat = math.Max(lat-latDelta, -90)
	maxLat = math.Min(lat+latDelta, 90)
	minLng = math.Max(lng-lngDelta, -180)
	maxLng = math.Min(lng+lngDelta, 180)
	return minLat, maxLat, minLng, maxLng
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
