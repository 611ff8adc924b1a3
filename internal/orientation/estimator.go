// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"sync"
)

// Estimator turns accelerometer and magnetometer vectors into a compass
// azimuth. Only the latest vector of each kind is kept.
type Estimator struct {
	mu sync.Mutex

	running bool

	gravity     Vec3
	geomag      Vec3
	haveGravity bool
	haveGeomag  bool

	rotation      DisplayRotation
	roundToDegree bool

	last     float64
	lastPose Pose
	haveLast bool
}

func NewEstimator() *Estimator {
	return &Estimator{}
}

// Start clears both vectors and begins accepting samples.
func (e *Estimator) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = true
	e.haveGravity = false
	e.haveGeomag = false
}

// Stop makes further updates no-ops. The last azimuth stays readable.
func (e *Estimator) Stop() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

func (e *Estimator) SetDisplayRotation(r DisplayRotation) {
	e.mu.Lock()
	e.rotation = r
	e.mu.Unlock()
}

// SetRoundToDegree rounds emitted azimuths to whole degrees.
func (e *Estimator) SetRoundToDegree(on bool) {
	e.mu.Lock()
	e.roundToDegree = on
	e.mu.Unlock()
}

// Update stores v as the latest vector for kind and returns a new azimuth
// when both vectors are known and the fusion is not degenerate. On a
// degenerate solve the previous azimuth is retained and false is returned.
func (e *Estimator) Update(v Vec3, kind SensorKind) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return 0, false
	}

	switch kind {
	case Accelerometer:
		e.gravity = v
		e.haveGravity = true
	case Magnetometer:
		e.geomag = v
		e.haveGeomag = true
	default:
		return 0, false
	}

	if !e.haveGravity || !e.haveGeomag {
		return 0, false
	}

	r, ok := RotationMatrix(e.gravity, e.geomag)
	if !ok {
		return 0, false
	}

	pose := r.Pose()
	az := WrapDegrees(pose.Yaw + e.rotation.Compensation())
	if e.roundToDegree {
		az = WrapDegrees(math.Round(az))
	}
	pose.Yaw = az

	e.last = az
	e.lastPose = pose
	e.haveLast = true
	return az, true
}

// Last returns the most recent azimuth, if any was produced.
func (e *Estimator) Last() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.haveLast
}

// Pose returns the full orientation behind the most recent azimuth.
func (e *Estimator) Pose() (Pose, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPose, e.haveLast
}

// Tilt returns roll and pitch from the latest accelerometer vector. It is
// available before the first azimuth, which also needs the magnetometer.
func (e *Estimator) Tilt() (Pose, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.haveGravity {
		return Pose{}, false
	}
	p := ComputePoseFromAccel(e.gravity)
	if !finite(p.Roll) || !finite(p.Pitch) {
		return Pose{}, false
	}
	return p, true
}
