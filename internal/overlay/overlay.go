// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package overlay maps a navigation state to what a renderer needs: a
// rotation and labels for a 2D indicator, or a position and yaw for an
// indicator anchored in a 3D scene.
package overlay

import (
	"fmt"
	"math"

	"github.com/relabs-tech/geonav/internal/nav"
	"github.com/relabs-tech/geonav/internal/orientation"
)

// Pose2D drives a flat, screen-space indicator. RotationDeg is clockwise.
type Pose2D struct {
	RotationDeg   float64 `json:"rotation_deg"`
	DistanceLabel string  `json:"distance_label"`
	TurnLabel     string  `json:"turn_label"`
}

// Pose3D places an indicator in a right-handed, Y-up viewer frame looking
// down -Z. YawDeg is a counter-clockwise rotation about +Y.
type Pose3D struct {
	LocalPosition orientation.Vec3 `json:"local_position"`
	YawDeg        float64          `json:"yaw_deg"`
}

// DefaultAnchor is 1 m ahead of the viewer and slightly below eye level.
var DefaultAnchor = orientation.Vec3{X: 0, Y: -0.1, Z: -1}

func Project2D(st nav.State) Pose2D {
	return Pose2D{
		RotationDeg:   st.TurnDeltaDeg,
		DistanceLabel: FormatDistance(st.DistanceMeters),
		TurnLabel:     FormatTurn(st.TurnDeltaDeg),
	}
}

func Project3D(st nav.State) Pose3D {
	return Project3DAt(st, DefaultAnchor)
}

// Project3DAt is Project3D with a custom anchor.
//
// Navigation angles grow clockwise seen from above while a yaw about +Y
// grows counter-clockwise, so the yaw is the negated turn-delta. A positive
// turn-delta therefore points the indicator to the viewer's right.
func Project3DAt(st nav.State, anchor orientation.Vec3) Pose3D {
	yaw := -st.TurnDeltaDeg
	if yaw == 0 {
		yaw = 0 // no -0 in payloads
	}
	return Pose3D{LocalPosition: anchor, YawDeg: yaw}
}

// Forward is the unit direction the indicator points at in the viewer frame.
func (p Pose3D) Forward() orientation.Vec3 {
	rad := p.YawDeg * math.Pi / 180
	return orientation.Vec3{X: -math.Sin(rad), Y: 0, Z: -math.Cos(rad)}
}

// FormatDistance renders whole meters below 1 km and kilometers with two
// decimals from there on: "412 m", "1.42 km".
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(meters))
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// FormatTurn renders the direction and whole degrees to turn: "→ 12°".
func FormatTurn(delta float64) string {
	arrow := "→"
	if delta < 0 {
		arrow = "←"
	}
	return fmt.Sprintf("%s %d°", arrow, int(math.Abs(delta)))
}
