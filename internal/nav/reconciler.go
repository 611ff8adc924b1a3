// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package nav combines the device azimuth and the bearing to a fixed target
// into a signed turn-delta.
package nav

import (
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/geonav/internal/geo"
	"github.com/relabs-tech/geonav/internal/gps"
)

// State is the latest navigation aggregate. DistanceMeters and
// BearingToTargetDeg are meaningful only when HasFix is set.
type State struct {
	DistanceMeters     float64   `json:"distance_m"`
	BearingToTargetDeg float64   `json:"bearing_deg"`
	TurnDeltaDeg       float64   `json:"turn_delta_deg"`
	DeviceAzimuthDeg   float64   `json:"azimuth_deg"`
	Position           geo.Point `json:"position"`
	HasFix             bool      `json:"has_fix"`
	HasAzimuth         bool      `json:"has_azimuth"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Reconciler holds the latest azimuth and position for one navigation
// session. The target is fixed at construction.
type Reconciler struct {
	target geo.Point
	now    func() time.Time

	mu    sync.RWMutex
	state State
}

func NewReconciler(target geo.Point) *Reconciler {
	return &Reconciler{target: target, now: time.Now}
}

// OnAzimuth records a new device heading and recomputes only the
// turn-delta against the last known bearing.
func (r *Reconciler) OnAzimuth(az float64) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.DeviceAzimuthDeg = az
	r.state.HasAzimuth = true
	r.state.TurnDeltaDeg = NormalizeDelta(r.state.BearingToTargetDeg - az)
	r.state.UpdatedAt = r.now()
	return r.state
}

// OnLocationFix recomputes distance, bearing and turn-delta for a new
// position. Fixes that are void or out of range leave the state untouched.
func (r *Reconciler) OnLocationFix(fix gps.Fix) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !fix.Usable() {
		return r.state
	}

	pos := fix.Point()
	r.state.Position = pos
	r.state.DistanceMeters = geo.DistanceMeters(pos, r.target)
	r.state.BearingToTargetDeg = geo.BearingDeg(pos, r.target)
	r.state.TurnDeltaDeg = NormalizeDelta(r.state.BearingToTargetDeg - r.state.DeviceAzimuthDeg)
	r.state.HasFix = true
	r.state.UpdatedAt = r.now()
	return r.state
}

// Current returns the latest state. It reports false until the first
// usable fix arrived; "no state yet" is not the same as distance 0.
func (r *Reconciler) Current() (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state, r.state.HasFix
}

// NormalizeDelta maps an angle difference into (-180,180].
func NormalizeDelta(delta float64) float64 {
	if delta > -180 && delta <= 180 {
		return delta
	}
	d := math.Mod(math.Mod(delta+180, 360)+360, 360) - 180
	if d <= -180 {
		d += 360
	}
	return d
}
