// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

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

var topics = Topics{State: "nav/state", Overlay: "nav/overlay", Proximity: "nav/proximity"}

func TestMQTTSnapshotWithoutStateSkipsOverlay(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMQTT(pub, topics)
	if err := m.PublishSnapshot(context.Background(), session.Snapshot{Seq: 1}); err != nil {
		t.Fatalf("PublishSnapshot: %v", err)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].topic != "nav/state" || !pub.msgs[0].retained {
		t.Fatalf("msgs=%+v", pub.msgs)
	}
}

func TestMQTTSnapshotAndEvent(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMQTT(pub, topics)
	snap := session.Snapshot{Seq: 7, HasState: true, Proximity: proximity.Near}
	if err := m.PublishSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("PublishSnapshot: %v", err)
	}
	if err := m.PublishEvent(context.Background(), session.Event{Signal: proximity.Revealed}); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}
	if len(pub.msgs) != 3 {
		t.Fatalf("msgs=%d want 3", len(pub.msgs))
	}
	ov, ok := pub.msgs[1].v.(OverlayMessage)
	if !ok || ov.Seq != 7 || ov.Proximity != proximity.Near {
		t.Fatalf("overlay=%+v", pub.msgs[1].v)
	}
	if pub.msgs[2].topic != "nav/proximity" || pub.msgs[2].retained {
		t.Fatalf("event published as %+v", pub.msgs[2])
	}
}

type recordingSink struct {
	mu     sync.Mutex
	snaps  []uint64
	events []proximity.Signal
	fail   bool
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) PublishSnapshot(_ context.Context, s session.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s.Seq)
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *recordingSink) PublishEvent(_ context.Context, ev session.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev.Signal)
	return nil
}

func (r *recordingSink) lastSnap() (uint64, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return 0, 0
	}
	return r.snaps[len(r.snaps)-1], len(r.events)
}

func TestDispatcherDeliversLatest(t *testing.T) {
	rec := &recordingSink{fail: true}
	d := NewDispatcher(nil, rec)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	for seq := uint64(1); seq <= 50; seq++ {
		d.Update(session.Snapshot{Seq: seq})
	}
	d.Event(session.Event{Signal: proximity.Revealed})

	deadline := time.Now().Add(2 * time.Second)
	for {
		last, events := rec.lastSnap()
		if last == 50 && events == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("last=%d events=%d", last, events)
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec.mu.Lock()
	for i := 1; i < len(rec.snaps); i++ {
		if rec.snaps[i] <= rec.snaps[i-1] {
			t.Fatalf("snapshots out of order: %v", rec.snaps)
		}
	}
	rec.mu.Unlock()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestDispatcherFlushesOnCancel(t *testing.T) {
	rec := &recordingSink{}
	d := NewDispatcher(nil, rec)
	d.Event(session.Event{Signal: proximity.Revealed})
	d.Event(session.Event{Signal: proximity.CollectedSignal})
	d.Update(session.Snapshot{Seq: 7})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 2 || rec.events[1] != proximity.CollectedSignal {
		t.Fatalf("events=%v want revealed, collected", rec.events)
	}
	if len(rec.snaps) != 1 || rec.snaps[0] != 7 {
		t.Fatalf("snaps=%v want [7]", rec.snaps)
	}
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("GEONAV_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GEONAV_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, addr, 0, "geonav:test:snapshot", time.Minute)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer r.Close()

	if err := r.PublishSnapshot(ctx, session.Snapshot{Seq: 3, Proximity: proximity.Collected, Points: 100}); err != nil {
		t.Fatalf("PublishSnapshot: %v", err)
	}
	snap, ok, err := r.Latest(ctx)
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if snap.Seq != 3 || snap.Proximity != proximity.Collected || snap.Points != 100 {
		t.Fatalf("snap=%+v", snap)
	}
	if err := r.PublishEvent(ctx, session.Event{Signal: proximity.CollectedSignal}); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}
}
