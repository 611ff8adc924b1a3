// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"time"

	"github.com/relabs-tech/geonav/internal/geo"
)

// NMEA RMC validity flags.
const (
	ValidityActive = "A"
	ValidityVoid   = "V"
)

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       time.Time `json:"time"`
	Latitude   float64   `json:"lat"`                  // decimal degrees
	Longitude  float64   `json:"lon"`                  // decimal degrees
	AccuracyM  float64   `json:"accuracy_m,omitempty"` // horizontal, estimated from HDOP
	SpeedKnots float64   `json:"speed_knots,omitempty"`
	CourseDeg  float64   `json:"course_deg,omitempty"`
	Validity   string    `json:"validity,omitempty"` // "A" (valid) / "V" (void); empty when the source has no flag
}

func (f Fix) Point() geo.Point {
	return geo.Point{Lat: f.Latitude, Lon: f.Longitude}
}

// Usable reports whether the fix can drive navigation: coordinates in
// range and not flagged void by the receiver.
func (f Fix) Usable() bool {
	if f.Validity == ValidityVoid {
		return false
	}
	return f.Point().Valid()
}
