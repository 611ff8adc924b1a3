// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relabs-tech/geonav/internal/session"
)

// maxEvents bounds the event list kept next to the snapshot key.
const maxEvents = 100

// Redis stores the latest snapshot under key with a TTL, and the most
// recent proximity events in the list key+":events".
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, addr string, db int, key string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", addr, err)
	}
	return &Redis{client: client, key: key, ttl: ttl}, nil
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) EventsKey() string { return r.key + ":events" }

func (r *Redis) PublishSnapshot(ctx context.Context, snap session.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", r.key, err)
	}
	return nil
}

func (r *Redis) PublishEvent(ctx context.Context, ev session.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	key := r.EventsKey()
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, -maxEvents, -1)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis RPUSH %s: %w", key, err)
	}
	return nil
}

// Latest reads the stored snapshot back; ok is false when the key expired.
func (r *Redis) Latest(ctx context.Context) (snap session.Snapshot, ok bool, err error) {
	val, err := r.client.Get(ctx, r.key).Bytes()
	if err == redis.Nil {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, fmt.Errorf("redis GET %s: %w", r.key, err)
	}
	if err := json.Unmarshal(val, &snap); err != nil {
		return snap, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
