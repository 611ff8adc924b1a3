// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"math"
	"strings"
)

// Vec3 is a raw 3-axis sensor vector in device coordinates
// (x to the right of the screen, y to the top, z out of the screen).
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// SensorKind tags a raw vector with the sensor that produced it.
type SensorKind int

const (
	Accelerometer SensorKind = iota
	Magnetometer
)

func (k SensorKind) String() string {
	switch k {
	case Accelerometer:
		return "accel"
	case Magnetometer:
		return "mag"
	default:
		return fmt.Sprintf("sensor(%d)", int(k))
	}
}

// ParseSensorKind accepts "accel"/"accelerometer" and "mag"/"magnetometer".
func ParseSensorKind(s string) (SensorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accel", "accelerometer":
		return Accelerometer, nil
	case "mag", "magnetometer":
		return Magnetometer, nil
	}
	return 0, fmt.Errorf("unknown sensor kind %q", s)
}

// DisplayRotation is the rotation of the screen content relative to the
// device's natural orientation.
type DisplayRotation int

const (
	Rotation0 DisplayRotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// Compensation returns the angle added to the azimuth so the heading is
// relative to the visual top of the screen.
func (r DisplayRotation) Compensation() float64 {
	switch r {
	case Rotation90:
		return 90
	case Rotation180:
		return 180
	case Rotation270:
		return 270
	default:
		return 0
	}
}

// ParseDisplayRotation accepts 0, 90, 180 or 270 (degrees).
func ParseDisplayRotation(deg int) (DisplayRotation, error) {
	switch deg {
	case 0:
		return Rotation0, nil
	case 90:
		return Rotation90, nil
	case 180:
		return Rotation180, nil
	case 270:
		return Rotation270, nil
	}
	return Rotation0, fmt.Errorf("display rotation must be 0, 90, 180 or 270, got %d", deg)
}

// Pose is the canonical representation of orientation for the app.
// Yaw is the compass azimuth in degrees [0,360).
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// standardGravity is used only to detect free fall.
const standardGravity = 9.80665

// Below these the fusion is considered degenerate.
const (
	freeFallGravitySquared = 0.01 * standardGravity * standardGravity
	minHorizontalField     = 0.1
)

// Rotation is a row-major 3x3 rotation matrix transforming device
// coordinates to world coordinates (east, north, up).
type Rotation [9]float64

// RotationMatrix solves the device rotation from a gravity vector and a
// geomagnetic vector. It reports false when the input is degenerate: the
// device is in free fall, or gravity and the magnetic field are (nearly)
// parallel so the horizontal field direction is undefined. Inputs whose
// norms are not finite are degenerate too.
//
//	H = E × A   (east)
//	M = A × H   (magnetic north)
func RotationMatrix(gravity, geomag Vec3) (Rotation, bool) {
	normsqA := gravity.X*gravity.X + gravity.Y*gravity.Y + gravity.Z*gravity.Z
	if !finite(normsqA) || normsqA < freeFallGravitySquared {
		return Rotation{}, false
	}

	h := geomag.Cross(gravity)
	normH := h.Norm()
	if !finite(normH) || normH < minHorizontalField {
		return Rotation{}, false
	}

	h = h.Scale(1 / normH)
	a := gravity.Scale(1 / math.Sqrt(normsqA))
	m := a.Cross(h)

	r := Rotation{
		h.X, h.Y, h.Z,
		m.X, m.Y, m.Z,
		a.X, a.Y, a.Z,
	}
	for _, v := range r {
		if !finite(v) {
			return Rotation{}, false
		}
	}
	return r, true
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Azimuth is the heading of the device's y axis in degrees [0,360),
// 0 = magnetic north, clockwise.
func (r Rotation) Azimuth() float64 {
	return WrapDegrees(toDegrees(math.Atan2(r[1], r[4])))
}

// Pose decomposes the rotation into azimuth, pitch and roll.
func (r Rotation) Pose() Pose {
	return Pose{
		Roll:  toDegrees(math.Atan2(-r[6], r[8])),
		Pitch: toDegrees(math.Asin(-clamp(r[7], -1, 1))),
		Yaw:   r.Azimuth(),
	}
}

// ComputePoseFromAccel computes roll and pitch from the gravity vector alone.
// Yaw is left at 0 since there is no magnetic reference.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(a Vec3) Pose {
	return Pose{
		Roll:  toDegrees(math.Atan2(a.Y, a.Z)),
		Pitch: toDegrees(math.Atan2(-a.X, math.Sqrt(a.Y*a.Y+a.Z*a.Z))),
	}
}

// Tilt is the larger of |roll| and |pitch|.
func (p Pose) Tilt() float64 {
	return math.Max(math.Abs(p.Roll), math.Abs(p.Pitch))
}

// WrapDegrees maps any angle into [0,360).
func WrapDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -0 and tiny negatives round to 360 after the add.
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

func toDegrees(rad float64) float64 { return rad * 180.0 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
