// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package journal records navigation sessions and their proximity events in
// a sqlite database.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/relabs-tech/geonav/internal/geo"
)

//go:embed schema.sql
var schemaSQL string

// SessionRecord is one navigation session as stored.
type SessionRecord struct {
	ID         int64
	StartedAt  time.Time
	EndedAt    time.Time // zero while the session is open
	TargetName string
	Target     geo.Point
	Points     int
	Events     int
}

// EventRecord is one proximity edge as stored.
type EventRecord struct {
	SessionID int64
	At        time.Time
	Signal    string
	State     string
	DistanceM float64
	Position  geo.Point
	Points    int
}

// Journal is safe for concurrent use. The database is opened on first use.
type Journal struct {
	path string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	closeOnce sync.Once
	closeErr  error
}

func New(path string) *Journal {
	return &Journal{path: path}
}

func (j *Journal) getDB() (*sql.DB, error) {
	j.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", j.path, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			j.dbErr = fmt.Errorf("opening journal: %w", err)
			return
		}
		// sqlite allows a single writer.
		db.SetMaxOpenConns(1)

		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			j.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}
		j.db = db
	})
	return j.db, j.dbErr
}

const insertSessionSQL = `
INSERT INTO sessions (started_at, target_name, target_lat, target_lon)
VALUES (?, ?, ?, ?)`

// StartSession opens a session record and returns its ID.
func (j *Journal) StartSession(ctx context.Context, at time.Time, name string, target geo.Point) (id int64, err error) {
	db, err := j.getDB()
	if err != nil {
		return 0, err
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	res, err := stmt.ExecContext(ctx, at.UnixMilli(), name, target.Lat, target.Lon)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}
	return res.LastInsertId()
}

const updateSessionEndSQL = `UPDATE sessions SET ended_at = ?, points = ? WHERE id = ?`

// EndSession stamps the end time and final points of a session.
func (j *Journal) EndSession(ctx context.Context, id int64, at time.Time, points int) error {
	db, err := j.getDB()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, updateSessionEndSQL, at.UnixMilli(), points, id)
	if err != nil {
		return fmt.Errorf("ending session %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ending session %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

const insertEventSQL = `
INSERT INTO events (session_id, at, signal, state, distance_m, lat, lon, points)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// RecordEvent appends a proximity edge to a session.
func (j *Journal) RecordEvent(ctx context.Context, ev EventRecord) (err error) {
	db, err := j.getDB()
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, insertEventSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	_, err = stmt.ExecContext(ctx,
		ev.SessionID,
		ev.At.UnixMilli(),
		ev.Signal,
		ev.State,
		ev.DistanceM,
		ev.Position.Lat,
		ev.Position.Lon,
		ev.Points,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

const selectSessionsSQL = `
SELECT
    s.id,
    s.started_at,
    s.ended_at,
    s.target_name,
    s.target_lat,
    s.target_lon,
    s.points,
    (SELECT COUNT(*) FROM events e WHERE e.session_id = s.id)
FROM sessions s
ORDER BY s.id DESC
LIMIT ?`

// Sessions returns the most recent sessions, newest first.
func (j *Journal) Sessions(ctx context.Context, limit int) (out []SessionRecord, err error) {
	db, err := j.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var (
			rec     SessionRecord
			started int64
			ended   sql.NullInt64
		)
		if err = rows.Scan(&rec.ID, &started, &ended, &rec.TargetName,
			&rec.Target.Lat, &rec.Target.Lon, &rec.Points, &rec.Events); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		rec.StartedAt = time.UnixMilli(started)
		if ended.Valid {
			rec.EndedAt = time.UnixMilli(ended.Int64)
		}
		out = append(out, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return out, nil
}

const selectEventsSQL = `
SELECT session_id, at, signal, state, distance_m, lat, lon, points
FROM events
WHERE session_id = ?
ORDER BY at, id`

// Events returns the proximity edges of one session in order.
func (j *Journal) Events(ctx context.Context, sessionID int64) (out []EventRecord, err error) {
	db, err := j.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectEventsSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var (
			ev EventRecord
			at int64
		)
		if err = rows.Scan(&ev.SessionID, &at, &ev.Signal, &ev.State, &ev.DistanceM,
			&ev.Position.Lat, &ev.Position.Lon, &ev.Points); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.At = time.UnixMilli(at)
		out = append(out, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return out, nil
}

// Close releases the database. It is safe to call more than once.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() {
		if j.db != nil {
			j.closeErr = j.db.Close()
		}
	})
	return j.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
