// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sink mirrors session snapshots and proximity events to outside
// consumers.
package sink

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/geonav/internal/metrics"
	"github.com/relabs-tech/geonav/internal/session"
)

// Sink receives snapshots and events from the Dispatcher goroutine.
type Sink interface {
	Name() string
	PublishSnapshot(ctx context.Context, snap session.Snapshot) error
	PublishEvent(ctx context.Context, ev session.Event) error
}

const (
	eventBacklog = 64
	drainTimeout = 2 * time.Second
)

// Dispatcher decouples the session goroutine from sink I/O. Snapshots are
// coalesced so a slow sink only ever sees the latest one; events are queued.
type Dispatcher struct {
	sinks  []Sink
	logger *zap.Logger

	mu     sync.Mutex
	latest session.Snapshot
	have   bool
	wake   chan struct{}
	events chan session.Event
}

func NewDispatcher(logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sinks:  sinks,
		logger: logger,
		wake:   make(chan struct{}, 1),
		events: make(chan session.Event, eventBacklog),
	}
}

// Update stores snap for publishing. It never blocks.
func (d *Dispatcher) Update(snap session.Snapshot) {
	d.mu.Lock()
	d.latest, d.have = snap, true
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Event queues ev for publishing. Events are dropped when the backlog is
// full.
func (d *Dispatcher) Event(ev session.Event) {
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("sink backlog full, dropping proximity event", zap.Stringer("signal", ev.Signal))
	}
}

// Run publishes until ctx is cancelled. Queued events and the last
// snapshot are then flushed within drainTimeout.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.flush(ctx)
			return nil
		case ev := <-d.events:
			d.publishEvent(ctx, ev)
		case <-d.wake:
			d.publishLatest(ctx)
		}
	}
}

func (d *Dispatcher) flush(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), drainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-d.events:
			d.publishEvent(ctx, ev)
		default:
			d.publishLatest(ctx)
			return
		}
	}
}

func (d *Dispatcher) publishEvent(ctx context.Context, ev session.Event) {
	for _, s := range d.sinks {
		if err := s.PublishEvent(ctx, ev); err != nil {
			d.fail(s, err)
		}
	}
}

func (d *Dispatcher) publishLatest(ctx context.Context) {
	d.mu.Lock()
	snap, ok := d.latest, d.have
	d.have = false
	d.mu.Unlock()
	if !ok {
		return
	}
	for _, s := range d.sinks {
		if err := s.PublishSnapshot(ctx, snap); err != nil {
			d.fail(s, err)
		}
	}
}

func (d *Dispatcher) fail(s Sink, err error) {
	metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
	d.logger.Warn("sink publish failed", zap.String("sink", s.Name()), zap.Error(err))
}
