// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/geonav/internal/config"
	"github.com/relabs-tech/geonav/internal/geo"
	"github.com/relabs-tech/geonav/internal/imu"
	"github.com/relabs-tech/geonav/internal/orientation"
	"github.com/relabs-tech/geonav/internal/sim"
	"github.com/relabs-tech/geonav/internal/transport"
)

// SimOptions tunes the simulated walk.
type SimOptions struct {
	SwayDeg     float64
	AutoCollect bool // publish a collect trigger once the target is reached

	// SpinDegPerSec > 0 replaces the walking heading with a device turning
	// in place at that rate. Fixes still follow the walk.
	SpinDegPerSec float64
}

// NewWalk builds the simulated walk towards the configured target.
func NewWalk(cfg *config.Config, opts SimOptions) (sim.Walk, string, error) {
	name, target, err := ResolveTarget(cfg)
	if err != nil {
		return sim.Walk{}, "", err
	}
	start := sim.DefaultStart(target)
	if cfg.HasSimStart {
		start = geo.Point{Lat: cfg.SimStartLat, Lon: cfg.SimStartLon}
	}
	return sim.Walk{
		Start:    start,
		Target:   target,
		SpeedMPS: cfg.SimSpeedMPS,
		SwayDeg:  opts.SwayDeg,
	}, name, nil
}

// RunSimulator publishes accelerometer, magnetometer and GPS data for a
// pedestrian walking to the target, in place of the hardware producers.
func RunSimulator(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts SimOptions) error {
	walk, name, err := NewWalk(cfg, opts)
	if err != nil {
		return err
	}

	bus, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDSimulator, logger.Named("mqtt"))
	if err != nil {
		return err
	}
	defer bus.Close()

	logger.Info("simulated walk started",
		zap.String("target", name),
		zap.Stringer("start", walk.Start),
		zap.Float64("length_m", walk.Length()),
		zap.Duration("duration", walk.Duration()),
	)

	sampleTicker := time.NewTicker(time.Duration(cfg.SimSampleInterval) * time.Millisecond)
	defer sampleTicker.Stop()
	fixTicker := time.NewTicker(time.Duration(cfg.SimFixInterval) * time.Millisecond)
	defer fixTicker.Stop()

	samples := func(elapsed time.Duration) []orientation.Sample {
		s := walk.Samples(elapsed)
		return s[:]
	}
	if opts.SpinDegPerSec > 0 {
		samples = spinSampler(orientation.NewMockSource(opts.SpinDegPerSec), logger)
	}

	began := time.Now()
	collected := false
	for {
		var now time.Time
		select {
		case <-ctx.Done():
			return nil
		case now = <-sampleTicker.C:
			publishSamples(bus, cfg, samples(now.Sub(began)), now, logger)
		case now = <-fixTicker.C:
			elapsed := now.Sub(began)
			publishFix(bus, cfg, walk, elapsed, now, logger)
			if opts.AutoCollect && !collected && walk.Arrived(elapsed) {
				collected = true
				if err := bus.PublishJSON(cfg.TopicCollect, false, CollectRequest{Source: "simulator"}); err != nil {
					logger.Warn("collect publish error", zap.Error(err))
				} else {
					logger.Info("arrived at target, collect requested")
				}
			}
		}
	}
}

// spinSampler reads one accelerometer and one magnetometer sample per tick
// from src.
func spinSampler(src orientation.Source, logger *zap.Logger) func(time.Duration) []orientation.Sample {
	return func(time.Duration) []orientation.Sample {
		out := make([]orientation.Sample, 0, 2)
		for range 2 {
			s, err := src.Next()
			if err != nil {
				logger.Warn("mock source error", zap.Error(err))
				continue
			}
			out = append(out, s)
		}
		return out
	}
}

func publishSamples(pub transport.Publisher, cfg *config.Config, samples []orientation.Sample, now time.Time, logger *zap.Logger) {
	for _, s := range samples {
		topic := cfg.TopicAccel
		if s.Kind == orientation.Magnetometer {
			topic = cfg.TopicMag
		}
		if err := pub.PublishJSON(topic, false, imu.NewSample(s, now)); err != nil {
			logger.Warn("sample publish error", zap.String("topic", topic), zap.Error(err))
		}
	}
}

func publishFix(pub transport.Publisher, cfg *config.Config, walk sim.Walk, elapsed time.Duration, now time.Time, logger *zap.Logger) {
	if err := pub.PublishJSON(cfg.TopicGPS, true, walk.Fix(elapsed, now)); err != nil {
		logger.Warn("fix publish error", zap.Error(err))
	}
}
