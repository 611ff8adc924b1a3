// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session owns the state of one navigation session: the orientation
// estimator, the reconciler and the proximity machine. Sensor samples, fixes
// and collect triggers arrive on independent, non-blocking ports and are
// applied by a single goroutine.
package session

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/geonav/internal/geo"
	"github.com/relabs-tech/geonav/internal/gps"
	"github.com/relabs-tech/geonav/internal/nav"
	"github.com/relabs-tech/geonav/internal/orientation"
	"github.com/relabs-tech/geonav/internal/overlay"
	"github.com/relabs-tech/geonav/internal/proximity"
)

type Config struct {
	Target          geo.Point
	TargetName      string
	NearThreshold   float64
	CollectPoints   int
	DisplayRotation orientation.DisplayRotation
	RoundAzimuth    bool
}

// Snapshot is a consistent copy of everything a renderer polls.
type Snapshot struct {
	Seq        uint64          `json:"seq"`
	Target     geo.Point       `json:"target"`
	TargetName string          `json:"target_name,omitempty"`
	HasState   bool            `json:"has_state"`
	State      nav.State       `json:"state"`
	Overlay2D  overlay.Pose2D  `json:"overlay_2d"`
	Overlay3D  overlay.Pose3D  `json:"overlay_3d"`
	Proximity  proximity.State `json:"proximity"`
	Points     int             `json:"points"`

	// Tilt is roll and pitch from the accelerometer alone.
	Tilt    orientation.Pose `json:"tilt"`
	HasTilt bool             `json:"has_tilt"`
}

// Event is a proximity edge together with the snapshot that caused it.
type Event struct {
	Signal   proximity.Signal `json:"signal"`
	State    proximity.State  `json:"state"`
	Time     time.Time        `json:"time"`
	Snapshot Snapshot         `json:"snapshot"`
}

// Observer receives processing statistics. All methods are called from the
// session goroutine.
type Observer interface {
	SampleProcessed(kind orientation.SensorKind, producedAzimuth bool)
	FixProcessed(accepted bool)
	SignalEmitted(sig proximity.Signal)
	UpdateApplied(d time.Duration)
}

type noopObserver struct{}

func (noopObserver) SampleProcessed(orientation.SensorKind, bool) {}
func (noopObserver) FixProcessed(bool)                            {}
func (noopObserver) SignalEmitted(proximity.Signal)               {}
func (noopObserver) UpdateApplied(time.Duration)                  {}

type Session struct {
	cfg    Config
	logger *zap.Logger
	obs    Observer

	est  *orientation.Estimator
	rec  *nav.Reconciler
	prox *proximity.Machine

	accel    slot[orientation.Vec3]
	mag      slot[orientation.Vec3]
	fix      slot[gps.Fix]
	rotation slot[orientation.DisplayRotation]
	collect  atomic.Bool
	wake     chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}

	mu   sync.RWMutex
	snap Snapshot

	subMu    sync.Mutex
	onUpdate []func(Snapshot)
	onEvent  []func(Event)

	pending []Event
}

func New(cfg Config, logger *zap.Logger, obs Observer) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if obs == nil {
		obs = noopObserver{}
	}

	est := orientation.NewEstimator()
	est.SetDisplayRotation(cfg.DisplayRotation)
	est.SetRoundToDegree(cfg.RoundAzimuth)
	est.Start()

	prox := proximity.New(cfg.NearThreshold)
	if cfg.CollectPoints > 0 {
		prox.SetPoints(cfg.CollectPoints)
	}

	s := &Session{
		cfg:    cfg,
		logger: logger,
		obs:    obs,
		est:    est,
		rec:    nav.NewReconciler(cfg.Target),
		prox:   prox,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	prox.OnSignal(func(sig proximity.Signal, st proximity.State) {
		// Runs on the session goroutine; delivered after the snapshot is
		// published.
		s.pending = append(s.pending, Event{Signal: sig, State: st})
	})
	s.snap = Snapshot{Target: cfg.Target, TargetName: cfg.TargetName, Proximity: proximity.Far}
	return s
}

// OnUpdate registers fn to be called with every new snapshot.
func (s *Session) OnUpdate(fn func(Snapshot)) {
	s.subMu.Lock()
	s.onUpdate = append(s.onUpdate, fn)
	s.subMu.Unlock()
}

// OnEvent registers fn to be called with every proximity edge.
func (s *Session) OnEvent(fn func(Event)) {
	s.subMu.Lock()
	s.onEvent = append(s.onEvent, fn)
	s.subMu.Unlock()
}

// PushSample stores the latest vector of one sensor kind. It never blocks.
func (s *Session) PushSample(kind orientation.SensorKind, v orientation.Vec3) {
	if s.closed.Load() {
		return
	}
	switch kind {
	case orientation.Accelerometer:
		s.accel.put(v)
	case orientation.Magnetometer:
		s.mag.put(v)
	default:
		return
	}
	s.signal()
}

// PushFix stores the latest location fix. It never blocks.
func (s *Session) PushFix(fix gps.Fix) {
	if s.closed.Load() {
		return
	}
	s.fix.put(fix)
	s.signal()
}

// SetDisplayRotation changes the screen rotation compensation.
func (s *Session) SetDisplayRotation(r orientation.DisplayRotation) {
	if s.closed.Load() {
		return
	}
	s.rotation.put(r)
	s.signal()
}

// Collect forwards the external collect trigger (e.g. a tap on the object).
func (s *Session) Collect() {
	if s.closed.Load() {
		return
	}
	s.collect.Store(true)
	s.signal()
}

// Snapshot returns the latest published snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Run applies pushed inputs until ctx is cancelled or Close is called.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("navigation session started",
		zap.String("target", s.cfg.Target.String()),
		zap.String("target_name", s.cfg.TargetName),
		zap.Float64("near_threshold_m", s.prox.Threshold()),
	)
	defer s.logger.Info("navigation session stopped")
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		case <-s.done:
			return nil
		case <-s.wake:
			s.drain()
		}
	}
}

// Close ends the session. Later pushes are ignored.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.est.Stop()
		close(s.done)
	})
}

func (s *Session) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// drain applies every pending input once. Only the session goroutine (or a
// test driving it directly) calls it.
func (s *Session) drain() {
	if s.closed.Load() {
		return
	}
	start := time.Now()
	changed := false

	if r, ok := s.rotation.take(); ok {
		s.est.SetDisplayRotation(r)
	}
	for _, in := range []struct {
		kind orientation.SensorKind
		slot *slot[orientation.Vec3]
	}{
		{orientation.Accelerometer, &s.accel},
		{orientation.Magnetometer, &s.mag},
	} {
		v, ok := in.slot.take()
		if !ok {
			continue
		}
		az, produced := s.est.Update(v, in.kind)
		s.obs.SampleProcessed(in.kind, produced)
		if produced {
			s.rec.OnAzimuth(az)
		}
		changed = changed || produced || in.kind == orientation.Accelerometer
	}

	// A tap is judged against the proximity the user saw when tapping, so
	// it goes before any fix coalesced into the same drain.
	if s.collect.Swap(false) {
		if _, ok := s.prox.Collect(); ok {
			changed = true
		} else {
			s.logger.Debug("collect ignored", zap.Stringer("proximity", s.prox.State()))
		}
	}

	if fix, ok := s.fix.take(); ok {
		accepted := fix.Usable()
		s.obs.FixProcessed(accepted)
		if accepted {
			st := s.rec.OnLocationFix(fix)
			s.prox.OnDistance(st.DistanceMeters)
			changed = true
		} else {
			s.logger.Debug("dropping unusable fix",
				zap.Float64("lat", fix.Latitude),
				zap.Float64("lon", fix.Longitude),
				zap.String("validity", fix.Validity),
			)
		}
	}

	if !changed && len(s.pending) == 0 {
		return
	}

	snap := s.publish()
	s.obs.UpdateApplied(time.Since(start))
	s.notify(snap)
}

func (s *Session) publish() Snapshot {
	// Before the first fix the state still carries the azimuth.
	st, ok := s.rec.Current()

	s.mu.Lock()
	s.snap.Seq++
	s.snap.HasState = ok
	s.snap.State = st
	if ok {
		s.snap.Overlay2D = overlay.Project2D(st)
		s.snap.Overlay3D = overlay.Project3D(st)
	}
	s.snap.Proximity = s.prox.State()
	s.snap.Points = s.prox.Points()
	s.snap.Tilt, s.snap.HasTilt = s.est.Tilt()
	snap := s.snap
	s.mu.Unlock()
	return snap
}

func (s *Session) notify(snap Snapshot) {
	events := s.pending
	s.pending = nil

	s.subMu.Lock()
	updates := slices.Clone(s.onUpdate)
	handlers := slices.Clone(s.onEvent)
	s.subMu.Unlock()

	for _, fn := range updates {
		fn(snap)
	}
	now := time.Now()
	for _, ev := range events {
		ev.Time = now
		ev.Snapshot = snap
		s.obs.SignalEmitted(ev.Signal)
		s.logger.Info("proximity changed",
			zap.Stringer("signal", ev.Signal),
			zap.Stringer("state", ev.State),
			zap.Float64("distance_m", snap.State.DistanceMeters),
		)
		for _, fn := range handlers {
			fn(ev)
		}
	}
}

// slot is a one-value mailbox: the newest put replaces an untaken value.
type slot[T any] struct {
	mu  sync.Mutex
	v   T
	set bool
}

func (sl *slot[T]) put(v T) {
	sl.mu.Lock()
	sl.v, sl.set = v, true
	sl.mu.Unlock()
}

func (sl *slot[T]) take() (T, bool) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	v, ok := sl.v, sl.set
	var zero T
	sl.v, sl.set = zero, false
	return v, ok
}
