// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geo contains pure great-circle helpers on a spherical Earth.
// Everything here is stateless and safe for concurrent use.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used for all computations.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 position in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Valid reports whether the coordinates are finite and in range.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// DistanceMeters returns the haversine distance between a and b.
func DistanceMeters(a, b Point) float64 {
	φ1, φ2 := radians(a.Lat), radians(b.Lat)
	Δφ := radians(b.Lat - a.Lat)
	Δλ := radians(b.Lon - a.Lon)

	h := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	// Rounding can push h marginally past 1 for antipodal points.
	h = math.Min(1, h)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// BearingDeg returns the initial great-circle bearing from a towards b in
// [0,360). For a == b the result is 0 and carries no meaning.
func BearingDeg(a, b Point) float64 {
	φ1, φ2 := radians(a.Lat), radians(b.Lat)
	Δλ := radians(b.Lon - a.Lon)

	y := math.Sin(Δλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)

	return wrap360(degrees(math.Atan2(y, x)))
}

// Destination returns the point reached by travelling meters from p along
// the great circle with the given initial bearing.
func Destination(p Point, bearingDeg, meters float64) Point {
	δ := meters / EarthRadiusMeters
	θ := radians(bearingDeg)
	φ1, λ1 := radians(p.Lat), radians(p.Lon)

	φ2 := math.Asin(math.Sin(φ1)*math.Cos(δ) + math.Cos(φ1)*math.Sin(δ)*math.Cos(θ))
	λ2 := λ1 + math.Atan2(math.Sin(θ)*math.Sin(δ)*math.Cos(φ1), math.Cos(δ)-math.Sin(φ1)*math.Sin(φ2))

	lon := degrees(λ2)
	if lon > 180 || lon < -180 {
		lon = math.Mod(lon+540, 360) - 180
	}
	return Point{Lat: degrees(φ2), Lon: lon}
}

var compassPoints = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// CompassPoint converts a bearing to one of eight compass directions.
func CompassPoint(bearingDeg float64) string {
	idx := int(math.Floor((wrap360(bearingDeg)+22.5)/45.0)) % len(compassPoints)
	return compassPoints[idx]
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func wrap360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}
