// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/geonav/internal/config"
	"github.com/relabs-tech/geonav/internal/geo"
	"github.com/relabs-tech/geonav/internal/gps"
	"github.com/relabs-tech/geonav/internal/imu"
	"github.com/relabs-tech/geonav/internal/journal"
	"github.com/relabs-tech/geonav/internal/nav"
	"github.com/relabs-tech/geonav/internal/orientation"
	"github.com/relabs-tech/geonav/internal/overlay"
	"github.com/relabs-tech/geonav/internal/places"
	"github.com/relabs-tech/geonav/internal/proximity"
	"github.com/relabs-tech/geonav/internal/session"
)

type published struct {
	topic    string
	retained bool
	v        any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakePublisher) PublishJSON(topic string, retained bool, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic, retained, v})
	return nil
}

func TestResolveTarget(t *testing.T) {
	cfg := config.Default()
	if _, _, err := ResolveTarget(cfg); !errors.Is(err, config.ErrMissingKey) {
		t.Fatalf("err=%v want ErrMissingKey", err)
	}

	cfg.TargetName = "yemekhane"
	name, p, err := ResolveTarget(cfg)
	if err != nil {
		t.Fatalf("ResolveTarget: %v", err)
	}
	if name != "Yemekhane" || p.Lat != 35.248266908314214 {
		t.Fatalf("name=%q p=%v", name, p)
	}

	cfg.TargetName = "Nowhere"
	if _, _, err := ResolveTarget(cfg); !errors.Is(err, places.ErrUnknownPlace) {
		t.Fatalf("err=%v want ErrUnknownPlace", err)
	}

	cfg.HasTargetCoords = true
	cfg.TargetLat, cfg.TargetLon = 35.2490, 33.0230
	if _, p, err := ResolveTarget(cfg); err != nil || p != (geo.Point{Lat: 35.2490, Lon: 33.0230}) {
		t.Fatalf("explicit target p=%v err=%v", p, err)
	}
}

func TestSessionConfigRejectsRotation(t *testing.T) {
	cfg := config.Default()
	cfg.DisplayRotation = 45
	if _, err := SessionConfig(cfg, "x"); err == nil {
		t.Fatalf("expected error for rotation 45")
	}
}

const replay = `$GPGGA,123519,3514.880,N,03301.320,E,1,08,0.9,545.4,M,46.9,M,,*46
garbage line
$GPRMC,123519,A,3514.880,N,03301.320,E,001.5,054.7,171026,003.1,E*7B
`

func TestPublishFixesFromReplay(t *testing.T) {
	pub := &fakePublisher{}
	if err := publishFixes(context.Background(), strings.NewReader(replay), pub, "geonav/gps", zap.NewNop()); err != nil {
		t.Fatalf("publishFixes: %v", err)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("published=%d want 1", len(pub.msgs))
	}
	fix, ok := pub.msgs[0].v.(gps.Fix)
	if !ok || !fix.Usable() || !pub.msgs[0].retained {
		t.Fatalf("msg=%+v", pub.msgs[0])
	}
	if fix.AccuracyM <= 0 {
		t.Fatalf("expected accuracy from GGA, got %v", fix.AccuracyM)
	}
}

func TestSimulatorPublishing(t *testing.T) {
	cfg := config.Default()
	cfg.HasTargetCoords = true
	cfg.TargetLat, cfg.TargetLon = 35.2490, 33.0230
	walk, _, err := NewWalk(cfg, SimOptions{SwayDeg: 10})
	if err != nil {
		t.Fatalf("NewWalk: %v", err)
	}

	pub := &fakePublisher{}
	now := time.Now()
	samples := walk.Samples(time.Second)
	publishSamples(pub, cfg, samples[:], now, zap.NewNop())
	publishFix(pub, cfg, walk, time.Second, now, zap.NewNop())

	if len(pub.msgs) != 3 {
		t.Fatalf("published=%d want 3", len(pub.msgs))
	}
	if pub.msgs[0].topic != cfg.TopicAccel || pub.msgs[1].topic != cfg.TopicMag || pub.msgs[2].topic != cfg.TopicGPS {
		t.Fatalf("topics=%s,%s,%s", pub.msgs[0].topic, pub.msgs[1].topic, pub.msgs[2].topic)
	}
	s, ok := pub.msgs[1].v.(imu.Sample)
	if !ok || s.Sensor != "mag" {
		t.Fatalf("mag sample=%+v", pub.msgs[1].v)
	}
}

func TestSpinSamplerAlternatesSensors(t *testing.T) {
	next := spinSampler(orientation.NewMockSource(90), zap.NewNop())
	for i := 0; i < 3; i++ {
		got := next(0)
		if len(got) != 2 {
			t.Fatalf("tick %d: samples=%d want 2", i, len(got))
		}
		if got[0].Kind != orientation.Accelerometer || got[1].Kind != orientation.Magnetometer {
			t.Fatalf("tick %d: kinds=%v,%v", i, got[0].Kind, got[1].Kind)
		}
	}
}

// TestSimulatedWalkCollects drives a session with simulator output, the
// same data the navigator receives over MQTT.
func TestSimulatedWalkCollects(t *testing.T) {
	cfg := config.Default()
	cfg.HasTargetCoords = true
	cfg.TargetLat, cfg.TargetLon = 35.2490, 33.0230
	walk, _, err := NewWalk(cfg, SimOptions{SwayDeg: 20})
	if err != nil {
		t.Fatalf("NewWalk: %v", err)
	}
	scfg, err := SessionConfig(cfg, "test")
	if err != nil {
		t.Fatalf("SessionConfig: %v", err)
	}
	scfg.Target = walk.Target
	sess := session.New(scfg, nil, nil)

	var mu sync.Mutex
	var signals []proximity.Signal
	sess.OnEvent(func(ev session.Event) {
		mu.Lock()
		signals = append(signals, ev.Signal)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sess.Run(ctx) }()

	now := time.Now()
	for elapsed := time.Duration(0); elapsed <= walk.Duration()+2*time.Second; elapsed += time.Second {
		for _, s := range walk.Samples(elapsed) {
			sess.PushSample(s.Kind, s.Vec)
		}
		sess.PushFix(walk.Fix(elapsed, now.Add(elapsed)))
		waitFor(t, func() bool {
			snap := sess.Snapshot()
			return snap.HasState && geo.DistanceMeters(snap.State.Position, walk.Position(elapsed)) < 1e-6
		})
	}
	if got := sess.Snapshot().Proximity; got != proximity.Near {
		t.Fatalf("proximity=%v at target, want near", got)
	}
	sess.Collect()
	waitFor(t, func() bool { return sess.Snapshot().Proximity == proximity.Collected })

	mu.Lock()
	defer mu.Unlock()
	if len(signals) != 2 || signals[0] != proximity.Revealed || signals[1] != proximity.CollectedSignal {
		t.Fatalf("signals=%v", signals)
	}
	if sess.Snapshot().Points != proximity.DefaultCollectPoints {
		t.Fatalf("points=%d", sess.Snapshot().Points)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestJournalSink(t *testing.T) {
	ctx := context.Background()
	j := journal.New(filepath.Join(t.TempDir(), "j.db"))
	defer j.Close()
	id, err := j.StartSession(ctx, time.Now(), "Kütüphane", geo.Point{Lat: 35.2492, Lon: 33.0241})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	js := &journalSink{j: j, sessionID: id}

	if err := js.PublishSnapshot(ctx, session.Snapshot{}); err != nil {
		t.Fatalf("PublishSnapshot: %v", err)
	}
	snap := session.Snapshot{Points: 100, State: nav.State{DistanceMeters: 12.5}}
	if err := js.PublishEvent(ctx, session.Event{Signal: proximity.CollectedSignal, State: proximity.Collected, Time: time.Now(), Snapshot: snap}); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}
	events, err := j.Events(ctx, id)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 || events[0].Signal != "collected" || events[0].Points != 100 || events[0].DistanceM != 12.5 {
		t.Fatalf("events=%+v", events)
	}
}

func TestConsoleFormatting(t *testing.T) {
	if got := formatSnapshot(session.Snapshot{Seq: 1}); !strings.Contains(got, "waiting for sensors") {
		t.Fatalf("got %q", got)
	}
	st := nav.State{DistanceMeters: 143.5, BearingToTargetDeg: 39.2, TurnDeltaDeg: -5.8, DeviceAzimuthDeg: 45, HasFix: true, HasAzimuth: true}
	line := formatSnapshot(session.Snapshot{Seq: 2, HasState: true, State: st, Overlay2D: overlay.Project2D(st)})
	for _, want := range []string{"143.5 m", "NE", "far"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}

	ev := formatEvent(session.Event{Signal: proximity.CollectedSignal, State: proximity.Collected, Snapshot: session.Snapshot{Points: 1000}})
	if !strings.Contains(ev, "collected -> collected") || !strings.Contains(ev, "points=1,000") {
		t.Fatalf("event line %q", ev)
	}

	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	fix := formatFix(gps.Fix{Time: now.Add(-3 * time.Second), Latitude: 35.248, Longitude: 33.022, Validity: "A"}, now)
	if !strings.Contains(fix, "3 seconds ago") {
		t.Fatalf("fix line %q", fix)
	}
}

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestDrawFrame(t *testing.T) {
	rect := image.Rect(0, 0, 128, 64)

	empty := image1bit.NewVerticalLSB(rect)
	drawFrame(empty, image1bit.On, session.Snapshot{}, false)
	waiting := litPixels(empty)
	if waiting == 0 {
		t.Fatalf("expected waiting text")
	}

	st := nav.State{DistanceMeters: 10, TurnDeltaDeg: 30, HasFix: true}
	snap := session.Snapshot{HasState: true, State: st, Overlay2D: overlay.Project2D(st), Proximity: proximity.Near}
	img := image1bit.NewVerticalLSB(rect)
	drawFrame(img, image1bit.On, snap, true)

	// Chevrons live in the left square.
	left := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if img.BitAt(x, y) == image1bit.On {
				left++
			}
		}
	}
	if left == 0 {
		t.Fatalf("expected indicator in the left square")
	}
	if litPixels(img) <= left {
		t.Fatalf("expected labels right of the indicator")
	}
}

func TestTiltLine(t *testing.T) {
	level := session.Snapshot{HasTilt: true, Tilt: orientation.ComputePoseFromAccel(orientation.Vec3{Z: 9.81})}
	if got := tiltLine(level); got != "" {
		t.Fatalf("level device: %q", got)
	}
	upright := session.Snapshot{HasTilt: true, Tilt: orientation.ComputePoseFromAccel(orientation.Vec3{Y: 9.81})}
	if got := tiltLine(upright); got != "TILT" {
		t.Fatalf("upright device: %q want TILT", got)
	}
	if got := tiltLine(session.Snapshot{}); got != "" {
		t.Fatalf("no accelerometer yet: %q", got)
	}
}
