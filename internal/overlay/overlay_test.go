// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package overlay

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/relabs-tech/geonav/internal/nav"
)

func TestFormatDistance(t *testing.T) {
	cases := map[float64]string{
		0:       "0 m",
		412.9:   "412 m",
		999.99:  "999 m",
		1000:    "1.00 km",
		1420:    "1.42 km",
		12345.6: "12.35 km",
	}
	for in, want := range cases {
		if got := FormatDistance(in); got != want {
			t.Fatalf("FormatDistance(%v)=%q want %q", in, got, want)
		}
	}
}

func TestFormatTurn(t *testing.T) {
	cases := map[float64]string{
		12.7:  "→ 12°",
		0:     "→ 0°",
		-30.2: "← 30°",
		180:   "→ 180°",
	}
	for in, want := range cases {
		if got := FormatTurn(in); got != want {
			t.Fatalf("FormatTurn(%v)=%q want %q", in, got, want)
		}
	}
}

func TestProject2D(t *testing.T) {
	p := Project2D(nav.State{DistanceMeters: 1420, TurnDeltaDeg: -35})
	if p.RotationDeg != -35 || p.DistanceLabel != "1.42 km" || p.TurnLabel != "← 35°" {
		t.Fatalf("pose=%+v", p)
	}
}

func TestProject3DSignConvention(t *testing.T) {
	right := Project3D(nav.State{TurnDeltaDeg: 30})
	if right.YawDeg != -30 {
		t.Fatalf("yaw=%v want -30", right.YawDeg)
	}
	if f := right.Forward(); f.X <= 0 {
		t.Fatalf("positive turn-delta must point right, forward=%+v", f)
	}

	left := Project3D(nav.State{TurnDeltaDeg: -100})
	if f := left.Forward(); f.X >= 0 {
		t.Fatalf("negative turn-delta must point left, forward=%+v", f)
	}

	ahead := Project3D(nav.State{TurnDeltaDeg: 0})
	f := ahead.Forward()
	if math.Abs(f.X) > 1e-12 || f.Z >= 0 {
		t.Fatalf("zero turn-delta must point ahead, forward=%+v", f)
	}
	if math.Signbit(ahead.YawDeg) {
		t.Fatalf("yaw should be +0, got -0")
	}
	if ahead.LocalPosition != DefaultAnchor {
		t.Fatalf("position=%+v want %+v", ahead.LocalPosition, DefaultAnchor)
	}
}

func litBounds(img *image.Gray, area image.Rectangle) (image.Rectangle, int) {
	var r image.Rectangle
	n := 0
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if img.GrayAt(x, y).Y == 0 {
				continue
			}
			p := image.Rect(x, y, x+1, y+1)
			if n == 0 {
				r = p
			} else {
				r = r.Union(p)
			}
			n++
		}
	}
	return r, n
}

func TestRenderRotatesIndicator(t *testing.T) {
	square := image.Rect(0, 0, 64, 64)

	up := image.NewGray(image.Rect(0, 0, 128, 64))
	Render(up, color.White, Pose2D{RotationDeg: 0, DistanceLabel: "412 m"})
	ub, n := litBounds(up, square)
	if n == 0 {
		t.Fatalf("nothing drawn")
	}
	if ub.Dy() <= ub.Dx() {
		t.Fatalf("upright stack should be taller than wide: %v", ub)
	}

	side := image.NewGray(image.Rect(0, 0, 128, 64))
	Render(side, color.White, Pose2D{RotationDeg: 90, DistanceLabel: "412 m"})
	sb, _ := litBounds(side, square)
	if sb.Dx() <= sb.Dy() {
		t.Fatalf("rotated stack should be wider than tall: %v", sb)
	}

	// Labels land right of the indicator square.
	if _, n := litBounds(up, image.Rect(64, 0, 128, 64)); n == 0 {
		t.Fatalf("expected label pixels")
	}
}
