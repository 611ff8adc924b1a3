// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"

	"github.com/relabs-tech/geonav/internal/journal"
	"github.com/relabs-tech/geonav/internal/proximity"
	"github.com/relabs-tech/geonav/internal/session"
)

// journalSink records proximity events of one session. Snapshots are not
// journaled.
type journalSink struct {
	j         *journal.Journal
	sessionID int64
}

func (s *journalSink) Name() string { return "journal" }

func (s *journalSink) PublishSnapshot(context.Context, session.Snapshot) error { return nil }

func (s *journalSink) PublishEvent(ctx context.Context, ev session.Event) error {
	rec := journal.EventRecord{
		SessionID: s.sessionID,
		At:        ev.Time,
		Signal:    ev.Signal.String(),
		State:     ev.State.String(),
		DistanceM: ev.Snapshot.State.DistanceMeters,
		Position:  ev.Snapshot.State.Position,
	}
	if ev.Signal == proximity.CollectedSignal {
		rec.Points = ev.Snapshot.Points
	}
	return s.j.RecordEvent(ctx, rec)
}
