// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/relabs-tech/geonav/internal/gps"
	"github.com/relabs-tech/geonav/internal/metrics"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestJSONHandlerDecodes(t *testing.T) {
	var got []gps.Fix
	h := JSONHandler("test/gps", zap.NewNop(), func(f gps.Fix) { got = append(got, f) })

	h(nil, fakeMessage{topic: "test/gps", payload: []byte(`{"lat":35.248,"lon":33.022,"validity":"A"}`)})
	if len(got) != 1 || got[0].Latitude != 35.248 || got[0].Validity != "A" {
		t.Fatalf("got=%+v", got)
	}
}

func TestJSONHandlerDropsBadPayload(t *testing.T) {
	calls := 0
	h := JSONHandler("test/bad", zap.NewNop(), func(gps.Fix) { calls++ })

	before := testutil.ToFloat64(metrics.DecodeErrors.WithLabelValues("test/bad"))
	h(nil, fakeMessage{topic: "test/bad", payload: []byte(`{not json`)})
	if calls != 0 {
		t.Fatalf("handler called for invalid payload")
	}
	if got := testutil.ToFloat64(metrics.DecodeErrors.WithLabelValues("test/bad")) - before; got != 1 {
		t.Fatalf("decode errors delta=%v want 1", got)
	}
}
