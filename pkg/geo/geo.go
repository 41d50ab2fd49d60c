// Package geo holds the great-circle helpers used for hub proximity checks.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the coordinate is within WGS84 bounds.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return fmt.Errorf("coordinates must be numbers")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %.6f out of range", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %.6f out of range", p.Lng)
	}
	return nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceMeters returns the haversine distance between a and b.
func DistanceMeters(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	// Rounding can push h marginally above 1 for antipodal points.
	h = math.Min(1, h)

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Within reports whether b lies at most radius meters from a.
func Within(a, b Point, radius float64) bool {
	return DistanceMeters(a, b) <= radius
}

// BoundingBox is a lat/lng rectangle enclosing a circle, used to narrow
// database scans before the exact distance check. When the box crosses the
// antimeridian MinLng is greater than MaxLng and the longitude range wraps.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Box returns the rectangle enclosing the circle of radius meters around p.
// Near the poles the longitude span covers the whole globe.
func Box(p Point, radius float64) BoundingBox {
	latDelta := radius / EarthRadiusMeters * 180 / math.Pi

	box := BoundingBox{
		MinLat: math.Max(-90, p.Lat-latDelta),
		MaxLat: math.Min(90, p.Lat+latDelta),
		MinLng: -180,
		MaxLng: 180,
	}

	angular := radius / EarthRadiusMeters
	ratio := math.Sin(angular) / math.Cos(toRadians(p.Lat))
	if ratio < 1 {
		lngDelta := math.Asin(ratio) * 180 / math.Pi
		box.MinLng = wrapLng(p.Lng - lngDelta)
		box.MaxLng = wrapLng(p.Lng + lngDelta)
	}
	return box
}

// CrossesAntimeridian reports whether the longitude range wraps past ±180.
func (b BoundingBox) CrossesAntimeridian() bool {
	return b.MinLng > b.MaxLng
}

// Contains reports whether p lies inside the box.
func (b BoundingBox) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.CrossesAntimeridian() {
		return p.Lng >= b.MinLng || p.Lng <= b.MaxLng
	}
	return p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// wrapLng maps a longitude into [-180, 180].
func wrapLng(lng float64) float64 {
	switch {
	case lng > 180:
		return lng - 360
	case lng < -180:
		return lng + 360
	}
	return lng
}
