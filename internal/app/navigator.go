// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/geonav/internal/config"
	"github.com/relabs-tech/geonav/internal/gps"
	"github.com/relabs-tech/geonav/internal/imu"
	"github.com/relabs-tech/geonav/internal/journal"
	"github.com/relabs-tech/geonav/internal/metrics"
	"github.com/relabs-tech/geonav/internal/orientation"
	"github.com/relabs-tech/geonav/internal/session"
	"github.com/relabs-tech/geonav/internal/sink"
	"github.com/relabs-tech/geonav/internal/transport"
	"github.com/relabs-tech/geonav/internal/web"
)

// CollectRequest is the payload of the collect topic.
type CollectRequest struct {
	Source string `json:"source,omitempty"`
}

// SessionConfig maps the configuration onto a session for target.
func SessionConfig(cfg *config.Config, name string) (session.Config, error) {
	rot, err := orientation.ParseDisplayRotation(cfg.DisplayRotation)
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		TargetName:      name,
		NearThreshold:   cfg.NearThresholdM,
		CollectPoints:   cfg.CollectPoints,
		DisplayRotation: rot,
		RoundAzimuth:    cfg.RoundAzimuth,
	}, nil
}

// RunNavigator consumes sensor samples, fixes and collect triggers from
// MQTT, runs one navigation session and publishes its state to MQTT,
// Redis, the web API and the journal.
func RunNavigator(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	name, target, err := ResolveTarget(cfg)
	if err != nil {
		return fmt.Errorf("resolve target: %w", err)
	}
	scfg, err := SessionConfig(cfg, name)
	if err != nil {
		return err
	}
	scfg.Target = target

	sess := session.New(scfg, logger.Named("session"), metrics.Observer{})

	bus, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDNavigator, logger.Named("mqtt"))
	if err != nil {
		return err
	}
	defer bus.Close()

	sinks := []sink.Sink{sink.NewMQTT(bus, sink.Topics{
		State:     cfg.TopicNavState,
		Overlay:   cfg.TopicOverlay,
		Proximity: cfg.TopicProximity,
	})}

	if cfg.RedisAddr != "" {
		r, err := sink.NewRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisKey, cfg.RedisTTL)
		if err != nil {
			return err
		}
		defer r.Close()
		logger.Info("mirroring snapshots to redis", zap.String("addr", cfg.RedisAddr), zap.String("key", cfg.RedisKey))
		sinks = append(sinks, r)
	}

	var (
		jr        *journal.Journal
		sessionID int64
	)
	if cfg.JournalPath != "" {
		jr = journal.New(cfg.JournalPath)
		defer jr.Close()
		sessionID, err = jr.StartSession(ctx, time.Now(), name, target)
		if err != nil {
			return fmt.Errorf("start journal session: %w", err)
		}
		sinks = append(sinks, &journalSink{j: jr, sessionID: sessionID})
		logger.Info("journaling session", zap.String("path", cfg.JournalPath), zap.Int64("session_id", sessionID))
	}

	dispatcher := sink.NewDispatcher(logger.Named("sink"), sinks...)
	srv := web.New(sess, logger.Named("web"), cfg.WebStaticDir)

	sess.OnUpdate(func(snap session.Snapshot) {
		dispatcher.Update(snap)
		srv.Broadcast(snap)
	})
	sess.OnEvent(func(ev session.Event) {
		dispatcher.Event(ev)
		srv.BroadcastEvent(ev)
	})

	if err := subscribeInputs(bus, cfg, sess, logger); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error {
		return srv.ListenAndServe(gctx, fmt.Sprintf(":%d", cfg.WebServerPort))
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if jr != nil {
		endCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if jErr := jr.EndSession(endCtx, sessionID, time.Now(), sess.Snapshot().Points); jErr != nil {
			logger.Warn("failed to close journal session", zap.Error(jErr))
		}
	}
	return err
}

func subscribeInputs(bus *transport.Bus, cfg *config.Config, sess *session.Session, logger *zap.Logger) error {
	sample := func(s imu.Sample) {
		decoded, err := s.Decode()
		if err != nil {
			logger.Warn("dropping sensor sample", zap.Error(err))
			return
		}
		sess.PushSample(decoded.Kind, decoded.Vec)
	}
	if err := transport.Subscribe(bus, cfg.TopicAccel, sample); err != nil {
		return err
	}
	if cfg.TopicMag != cfg.TopicAccel {
		if err := transport.Subscribe(bus, cfg.TopicMag, sample); err != nil {
			return err
		}
	}

	if err := transport.Subscribe(bus, cfg.TopicGPS, func(fix gps.Fix) {
		if !fix.Usable() {
			logger.Debug("void fix", zap.String("validity", fix.Validity))
		}
		sess.PushFix(fix)
	}); err != nil {
		return err
	}

	if err := transport.Subscribe(bus, cfg.TopicRotation, func(r imu.Rotation) {
		rot, err := orientation.ParseDisplayRotation(r.Degrees)
		if err != nil {
			logger.Warn("ignoring display rotation", zap.Error(err))
			return
		}
		sess.SetDisplayRotation(rot)
	}); err != nil {
		return err
	}

	return transport.Subscribe(bus, cfg.TopicCollect, func(req CollectRequest) {
		logger.Debug("collect requested", zap.String("source", req.Source))
		sess.Collect()
	})
}
