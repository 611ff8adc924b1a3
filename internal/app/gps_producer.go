// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/relabs-tech/geonav/internal/config"
	"github.com/relabs-tech/geonav/internal/gps"
	"github.com/relabs-tech/geonav/internal/transport"
)

// RunGPSProducer reads NMEA sentences from the GPS serial port, or from
// replayFile when set, and publishes every RMC fix as JSON to the GPS topic.
func RunGPSProducer(ctx context.Context, cfg *config.Config, logger *zap.Logger, replayFile string) error {
	bus, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDGPS, logger.Named("mqtt"))
	if err != nil {
		return err
	}
	defer bus.Close()

	var src io.ReadCloser
	if replayFile != "" {
		f, err := os.Open(replayFile)
		if err != nil {
			return err
		}
		src = f
		logger.Info("replaying NMEA file", zap.String("path", replayFile))
	} else {
		port, err := gps.OpenSerial(cfg.GPSSerialPort, cfg.GPSBaudRate)
		if err != nil {
			return err
		}
		src = port
		logger.Info("GPS serial port opened", zap.String("port", cfg.GPSSerialPort), zap.Uint("baud", cfg.GPSBaudRate))
	}
	defer src.Close()

	// Reads block on the port; closing it unblocks Scan on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = src.Close() })
	defer stop()

	err = publishFixes(ctx, src, bus, cfg.TopicGPS, logger)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func publishFixes(ctx context.Context, r io.Reader, pub transport.Publisher, topic string, logger *zap.Logger) error {
	var published int
	err := gps.Scan(ctx, r, func(fix gps.Fix) {
		if err := pub.PublishJSON(topic, true, fix); err != nil {
			logger.Warn("GPS publish error", zap.Error(err))
			return
		}
		published++
		logger.Debug("published GPS fix",
			zap.Float64("lat", fix.Latitude),
			zap.Float64("lon", fix.Longitude),
			zap.String("validity", fix.Validity),
			zap.Float64("accuracy_m", fix.AccuracyM),
		)
	})
	logger.Info("GPS stream ended", zap.Int("fixes", published))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
