// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"

	"github.com/relabs-tech/geonav/internal/overlay"
	"github.com/relabs-tech/geonav/internal/proximity"
	"github.com/relabs-tech/geonav/internal/session"
	"github.com/relabs-tech/geonav/internal/transport"
)

// Topics names the MQTT outputs.
type Topics struct {
	State     string
	Overlay   string
	Proximity string
}

// OverlayMessage is the renderer-facing subset of a snapshot.
type OverlayMessage struct {
	Seq       uint64          `json:"seq"`
	Overlay2D overlay.Pose2D  `json:"overlay_2d"`
	Overlay3D overlay.Pose3D  `json:"overlay_3d"`
	Proximity proximity.State `json:"proximity"`
}

// MQTT publishes the state and overlay retained, so late subscribers get
// the latest value, and proximity events unretained.
type MQTT struct {
	pub    transport.Publisher
	topics Topics
}

func NewMQTT(pub transport.Publisher, topics Topics) *MQTT {
	return &MQTT{pub: pub, topics: topics}
}

func (m *MQTT) Name() string { return "mqtt" }

func (m *MQTT) PublishSnapshot(_ context.Context, snap session.Snapshot) error {
	if err := m.pub.PublishJSON(m.topics.State, true, snap); err != nil {
		return err
	}
	if !snap.HasState {
		return nil
	}
	return m.pub.PublishJSON(m.topics.Overlay, true, OverlayMessage{
		Seq:       snap.Seq,
		Overlay2D: snap.Overlay2D,
		Overlay3D: snap.Overlay3D,
		Proximity: snap.Proximity,
	})
}

func (m *MQTT) PublishEvent(_ context.Context, ev session.Event) error {
	return m.pub.PublishJSON(m.topics.Proximity, false, ev)
}
