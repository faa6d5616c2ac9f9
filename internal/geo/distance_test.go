package geo

import (
	"math"
	"testing"
)

func TestDistanceKmZeroForIdenticalPoints(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{37.7749, -122.4194},
		{-33.8688, 151.2093},
		{90, 0},
	}
	for _, p := range points {
		if d := DistanceKm(p[0], p[1], p[0], p[1]); d != 0 {
			t.Fatalf("expected 0 for identical point %v, got %f", p, d)
		}
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	pairs := [][4]float64{
		{37.7749, -122.4194, 34.0522, -118.2437},
		{51.5074, -0.1278, 48.8566, 2.3522},
		{-33.8688, 151.2093, 35.6762, 139.6503},
		{0, 179.9, 0, -179.9},
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("asymmetric distance for %v: %f vs %f", p, ab, ba)
		}
		if ab < 0 {
			t.Fatalf("negative distance for %v: %f", p, ab)
		}
	}
}

func TestDistanceKmKnownPairs(t *testing.T) {
	// San Francisco to Los Angeles is roughly 559 km.
	d := DistanceKm(37.7749, -122.4194, 34.0522, -118.2437)
	if d < 550 || d > 570 {
		t.Fatalf("SF-LA distance out of range: %f", d)
	}

	// San Francisco to Oakland is roughly 13 km.
	d = DistanceKm(37.7749, -122.4194, 37.8044, -122.2711)
	if d < 12 || d > 14 {
		t.Fatalf("SF-Oakland distance out of range: %f", d)
	}
}

func TestRadiusFilterBoundary(t *testing.T) {
	const lat, lng = 37.7749, -122.4194

	la := DistanceKm(lat, lng, 34.0522, -118.2437)
	oakland := DistanceKm(lat, lng, 37.8044, -122.2711)

	if la <= 10 {
		t.Fatalf("LA should be outside a 10km radius, distance %f", la)
	}
	if oakland <= 10 {
		t.Fatalf("Oakland should be outside a 10km radius, distance %f", oakland)
	}
	if oakland > 15 {
		t.Fatalf("Oakland should be inside a 15km radius, distance %f", oakland)
	}
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	const lat, lng, radius = 37.7749, -122.4194, 25.0
	minLat, maxLat, minLng, maxLng := BoundingBox(lat, lng, radius)

	if minLat >= lat || maxLat <= lat || minLng >= lng || maxLng <= lng {
		t.Fatalf("box does not surround the center: [%f %f] [%f %f]", minLat, maxLat, minLng, maxLng)
	}

	// Points on the cardinal edges of the radius must fall inside the box.
	for _, p := range [][2]float64{
		{lat + radius/111.0*0.99, lng},
		{lat - radius/111.0*0.99, lng},
	} {
		if p[0] < minLat || p[0] > maxLat {
			t.Fatalf("latitude %f escaped the box [%f, %f]", p[0], minLat, maxLat)
		}
	}
}

func TestBoundingBoxClampsAtPoles(t *testing.T) {
	minLat, maxLat, _, _ := BoundingBox(89.9, 0, 100)
	if maxLat > 90 {
		t.Fatalf("maxLat exceeded 90: %f", maxLat)
	}
	if minLat >= maxLat {
		t.Fatalf("degenerate box near pole: [%f, %f]", minLat, maxLat)
	}
}
