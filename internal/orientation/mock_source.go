// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"sync"
	"time"
)

// Sample is one raw vector tagged with its sensor.
type Sample struct {
	Kind SensorKind
	Vec  Vec3
}

// Source is anything that can provide raw sensor samples over time.
type Source interface {
	Next() (Sample, error)
}

// Typical mid-latitude field (µT): horizontal and downward components.
const (
	mockFieldHorizontal = 22.0
	mockFieldVertical   = 40.0
)

// SyntheticVectors returns the accelerometer and magnetometer readings of a
// device lying flat, screen up, with its top edge pointing at azimuthDeg.
func SyntheticVectors(azimuthDeg float64) (accel, mag Vec3) {
	rad := azimuthDeg * math.Pi / 180
	accel = Vec3{Z: standardGravity}
	mag = Vec3{
		X: -mockFieldHorizontal * math.Sin(rad),
		Y: mockFieldHorizontal * math.Cos(rad),
		Z: -mockFieldVertical,
	}
	return accel, mag
}

type mockSource struct {
	mu       sync.Mutex
	start    time.Time
	rate     float64 // deg/s
	nextKind SensorKind
	now      func() time.Time
}

// NewMockSource creates a mock source for a device slowly turning
// clockwise at degPerSec. Samples alternate between accelerometer and
// magnetometer.
func NewMockSource(degPerSec float64) Source {
	return &mockSource{start: time.Now(), rate: degPerSec, now: time.Now}
}

func (m *mockSource) Next() (Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := m.now().Sub(m.start).Seconds()
	accel, mag := SyntheticVectors(math.Mod(elapsed*m.rate, 360))

	s := Sample{Kind: m.nextKind, Vec: accel}
	if m.nextKind == Magnetometer {
		s.Vec = mag
		m.nextKind = Accelerometer
	} else {
		m.nextKind = Magnetometer
	}
	return s, nil
}
