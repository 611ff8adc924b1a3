// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sim generates deterministic sensor and location input for bench
// runs without hardware.
package sim

import (
	"math"
	"time"

	"github.com/relabs-tech/geonav/internal/geo"
	"github.com/relabs-tech/geonav/internal/gps"
	"github.com/relabs-tech/geonav/internal/orientation"
)

const (
	defaultSpeedMPS    = 1.4
	defaultSwayPeriod  = 8 * time.Second
	defaultStartMeters = 150.0
	simAccuracyM       = 4.0
)

// Walk is a pedestrian walking a straight great-circle line from Start to
// Target while holding the device flat and sweeping it left and right.
// The zero value of every optional field selects a default.
type Walk struct {
	Start    geo.Point
	Target   geo.Point
	SpeedMPS float64

	// SwayDeg is the amplitude of the heading sweep around the walking
	// direction, SwayPeriod its period.
	SwayDeg    float64
	SwayPeriod time.Duration
}

// DefaultStart is a point southwest of target at a walking distance.
func DefaultStart(target geo.Point) geo.Point {
	return geo.Destination(target, 225, defaultStartMeters)
}

func (w Walk) speed() float64 {
	if w.SpeedMPS <= 0 {
		return defaultSpeedMPS
	}
	return w.SpeedMPS
}

// Length is the walking distance in meters.
func (w Walk) Length() float64 {
	return geo.DistanceMeters(w.Start, w.Target)
}

// Duration is the time needed to reach the target.
func (w Walk) Duration() time.Duration {
	return time.Duration(w.Length() / w.speed() * float64(time.Second))
}

// Course is the constant walking direction.
func (w Walk) Course() float64 {
	return geo.BearingDeg(w.Start, w.Target)
}

// Position returns where the walker is after elapsed. It stops at the
// target.
func (w Walk) Position(elapsed time.Duration) geo.Point {
	if elapsed <= 0 {
		return w.Start
	}
	d := w.speed() * elapsed.Seconds()
	if d >= w.Length() {
		return w.Target
	}
	return geo.Destination(w.Start, w.Course(), d)
}

// Heading returns the device azimuth after elapsed, in [0,360).
func (w Walk) Heading(elapsed time.Duration) float64 {
	h := w.Course()
	if w.SwayDeg != 0 {
		period := w.SwayPeriod
		if period <= 0 {
			period = defaultSwayPeriod
		}
		phase := float64(elapsed%period) / float64(period)
		h += w.SwayDeg * math.Sin(2*math.Pi*phase)
	}
	return orientation.WrapDegrees(h)
}

// Arrived reports whether the walker reached the target.
func (w Walk) Arrived(elapsed time.Duration) bool {
	return elapsed >= w.Duration()
}

// Fix is the receiver output for elapsed, stamped with now.
func (w Walk) Fix(elapsed time.Duration, now time.Time) gps.Fix {
	p := w.Position(elapsed)
	speed := 0.0
	if !w.Arrived(elapsed) {
		speed = w.speed() * 1.9438444924 // m/s to knots
	}
	return gps.Fix{
		Time:       now.UTC(),
		Latitude:   p.Lat,
		Longitude:  p.Lon,
		AccuracyM:  simAccuracyM,
		SpeedKnots: speed,
		CourseDeg:  w.Course(),
		Validity:   gps.ValidityActive,
	}
}

// Samples returns an accelerometer and a magnetometer sample for elapsed.
func (w Walk) Samples(elapsed time.Duration) [2]orientation.Sample {
	accel, mag := orientation.SyntheticVectors(w.Heading(elapsed))
	return [2]orientation.Sample{
		{Kind: orientation.Accelerometer, Vec: accel},
		{Kind: orientation.Magnetometer, Vec: mag},
	}
}
