// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/geonav/internal/config"
	"github.com/relabs-tech/geonav/internal/overlay"
	"github.com/relabs-tech/geonav/internal/proximity"
	"github.com/relabs-tech/geonav/internal/session"
	"github.com/relabs-tech/geonav/internal/transport"
)

// displayData holds the latest snapshot received over MQTT.
type displayData struct {
	mu   sync.RWMutex
	snap session.Snapshot
	have bool
}

func (d *displayData) set(snap session.Snapshot) {
	d.mu.Lock()
	d.snap, d.have = snap, true
	d.mu.Unlock()
}

func (d *displayData) get() (session.Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap, d.have
}

// RunDisplay draws the 2D indicator on an SSD1306 OLED (128x64, I2C).
func RunDisplay(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus %q: %w", cfg.DisplayI2CBus, err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	logger.Info("display initialized", zap.String("bus", cfg.DisplayI2CBus))

	img := image1bit.NewVerticalLSB(dev.Bounds())
	drawSplash(img, image1bit.On)
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		logger.Warn("error showing splash", zap.Error(err))
	}

	mq, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, logger.Named("mqtt"))
	if err != nil {
		return err
	}
	defer mq.Close()

	data := &displayData{}
	if err := transport.Subscribe(mq, cfg.TopicNavState, data.set); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		snap, have := data.get()
		if have && snap.Seq == lastSeq {
			continue
		}
		lastSeq = snap.Seq

		img = image1bit.NewVerticalLSB(dev.Bounds())
		drawFrame(img, image1bit.On, snap, have)
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			logger.Warn("error updating display", zap.Error(err))
		}
	}
}

func drawSplash(dst draw.Image, fg color.Color) {
	drawLines(dst, fg, 0, "geonav", "", "Waiting...")
}

// drawFrame renders one display frame for snap into a cleared dst.
func drawFrame(dst draw.Image, fg color.Color, snap session.Snapshot, have bool) {
	switch {
	case !have:
		drawLines(dst, fg, 0, "No data", "", "Waiting...")
	case !snap.HasState:
		drawLines(dst, fg, 0, "Target:", truncate(snap.TargetName, 18), "No GPS fix", tiltLine(snap))
	default:
		overlay.Render(dst, fg, snap.Overlay2D)
		side := dst.Bounds().Dy()
		status := proximityLine(snap)
		if status == "" {
			status = tiltLine(snap)
		}
		drawLines(dst, fg, side+2, "", "", status, pointsLine(snap))
	}
}

// maxTiltDeg is how far the device may lean before the heading is flagged
// as unreliable.
const maxTiltDeg = 60.0

func tiltLine(snap session.Snapshot) string {
	if !snap.HasTilt || snap.Tilt.Tilt() <= maxTiltDeg {
		return ""
	}
	return "TILT"
}

func proximityLine(snap session.Snapshot) string {
	switch snap.Proximity {
	case proximity.Near:
		return "NEAR!"
	case proximity.Collected:
		return "GOT IT"
	default:
		return ""
	}
}

func pointsLine(snap session.Snapshot) string {
	if snap.Points == 0 {
		return ""
	}
	return fmt.Sprintf("+%d", snap.Points)
}

// drawLines writes up to four 13px lines starting at column x. Empty
// strings skip a line.
func drawLines(dst draw.Image, fg color.Color, x int, lines ...string) {
	b := dst.Bounds()
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{fg},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if line == "" {
			continue
		}
		drawer.Dot = fixed.P(b.Min.X+x, b.Min.Y+13*(i+1))
		drawer.DrawString(line)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
