// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// chevron outline pointing up, in units of the chevron size, apex at the
// origin's top. Vertical thickness is chevronThickness.
const (
	chevronHalfWidth = 0.6
	chevronThickness = 0.28
	chevronGap       = 0.3
)

// Render draws the 2D indicator into dst: three stacked chevrons rotated
// by p.RotationDeg in a square on the left, labels to the right (or on top
// when the image is too narrow). dst is not cleared first.
func Render(dst draw.Image, fg color.Color, p Pose2D) {
	b := dst.Bounds()
	side := b.Dy()
	if b.Dx() < side {
		side = b.Dx()
	}

	drawChevrons(dst, fg, float64(side), p.RotationDeg)

	face := basicfont.Face7x13
	lineH := face.Metrics().Height.Ceil()
	x := side + 2
	if b.Dx()-x < 7*6 {
		x = 2
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(fg), Face: face}
	for i, line := range []string{p.DistanceLabel, asciiTurn(p.RotationDeg)} {
		d.Dot = fixed.P(b.Min.X+x, b.Min.Y+lineH*(i+1))
		d.DrawString(line)
	}
}

func drawChevrons(dst draw.Image, fg color.Color, side, rotationDeg float64) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over

	size := side * 0.22
	step := size * (1 + chevronGap)
	cx, cy := side/2, side/2
	// Stack spans from the lowest chevron's bottom edge to the top apex.
	stackH := 2*step + size + size*chevronThickness
	baseY := cy + stackH/2 - size*chevronThickness

	rad := rotationDeg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	pt := func(x, y float64) (float32, float32) {
		// Clockwise rotation about (cx,cy) with y pointing down.
		dx, dy := x-cx, y-cy
		return float32(cx + dx*cos - dy*sin), float32(cy + dx*sin + dy*cos)
	}

	for i := 0; i < 3; i++ {
		by := baseY - float64(i)*step
		half := size * chevronHalfWidth
		t := size * chevronThickness
		outline := [][2]float64{
			{cx - half, by},
			{cx, by - size},
			{cx + half, by},
			{cx + half, by + t},
			{cx, by - size + t},
			{cx - half, by + t},
		}
		for j, v := range outline {
			x, y := pt(v[0], v[1])
			if j == 0 {
				z.MoveTo(x, y)
			} else {
				z.LineTo(x, y)
			}
		}
		z.ClosePath()
	}
	z.Draw(dst, b, image.NewUniform(fg), image.Point{})
}

// asciiTurn is FormatTurn for fonts without arrows or a degree sign.
func asciiTurn(delta float64) string {
	dir := "R"
	if delta < 0 {
		dir = "L"
	}
	return fmt.Sprintf("%s %d", dir, int(math.Abs(delta)))
}
