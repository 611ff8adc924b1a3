// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"time"

	"github.com/relabs-tech/geonav/internal/orientation"
)

// Sample is a single raw accelerometer or magnetometer reading as
// published on MQTT. Accelerations are in m/s², fields in µT.
type Sample struct {
	Sensor string `json:"sensor"` // "accel" or "mag"

	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	Time time.Time `json:"time"`
}

func NewSample(s orientation.Sample, t time.Time) Sample {
	return Sample{Sensor: s.Kind.String(), X: s.Vec.X, Y: s.Vec.Y, Z: s.Vec.Z, Time: t}
}

// Decode validates the sensor tag and returns the typed sample.
func (s Sample) Decode() (orientation.Sample, error) {
	kind, err := orientation.ParseSensorKind(s.Sensor)
	if err != nil {
		return orientation.Sample{}, err
	}
	return orientation.Sample{Kind: kind, Vec: orientation.Vec3{X: s.X, Y: s.Y, Z: s.Z}}, nil
}

// Rotation carries the current display rotation in degrees (0/90/180/270).
type Rotation struct {
	Degrees int `json:"degrees"`
}
