// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/relabs-tech/geonav/internal/config"
	"github.com/relabs-tech/geonav/internal/geo"
	"github.com/relabs-tech/geonav/internal/gps"
	"github.com/relabs-tech/geonav/internal/session"
	"github.com/relabs-tech/geonav/internal/transport"
)

// RunConsole prints navigation snapshots, proximity events and raw fixes
// as they arrive on MQTT.
func RunConsole(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	bus, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole, logger.Named("mqtt"))
	if err != nil {
		return err
	}
	defer bus.Close()

	if err := transport.Subscribe(bus, cfg.TopicNavState, func(snap session.Snapshot) {
		fmt.Println(formatSnapshot(snap))
	}); err != nil {
		return err
	}
	if err := transport.Subscribe(bus, cfg.TopicProximity, func(ev session.Event) {
		fmt.Println(formatEvent(ev))
	}); err != nil {
		return err
	}
	if err := transport.Subscribe(bus, cfg.TopicGPS, func(f gps.Fix) {
		fmt.Println(formatFix(f, time.Now()))
	}); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("console shutting down")
	return nil
}

func formatSnapshot(snap session.Snapshot) string {
	if !snap.HasState {
		if snap.State.HasAzimuth {
			return fmt.Sprintf("[NAV ] #%d  AZ=%6.1f  waiting for fix", snap.Seq, snap.State.DeviceAzimuthDeg)
		}
		return fmt.Sprintf("[NAV ] #%d  waiting for sensors", snap.Seq)
	}
	st := snap.State
	return fmt.Sprintf(
		"[NAV ] #%d  DIST=%s  BRG=%5.1f %-2s  AZ=%5.1f  TURN=%6.1f  %s  %s",
		snap.Seq,
		humanize.SIWithDigits(st.DistanceMeters, 1, "m"),
		st.BearingToTargetDeg, geo.CompassPoint(st.BearingToTargetDeg),
		st.DeviceAzimuthDeg,
		st.TurnDeltaDeg,
		snap.Overlay2D.TurnLabel,
		snap.Proximity,
	)
}

func formatEvent(ev session.Event) string {
	line := fmt.Sprintf("[PROX] %s -> %s at %.1f m", ev.Signal, ev.State, ev.Snapshot.State.DistanceMeters)
	if ev.Snapshot.Points > 0 {
		line += fmt.Sprintf("  points=%s", humanize.Comma(int64(ev.Snapshot.Points)))
	}
	return line
}

func formatFix(f gps.Fix, now time.Time) string {
	return fmt.Sprintf(
		"[GPS ] lat=%.6f lon=%.6f acc=%.1fm speed=%.1fkn course=%.1f validity=%s (%s)",
		f.Latitude, f.Longitude, f.AccuracyM, f.SpeedKnots, f.CourseDeg, f.Validity,
		humanize.RelTime(f.Time, now, "ago", "from now"),
	)
}
