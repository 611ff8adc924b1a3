// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/geonav/internal/nav"
	"github.com/relabs-tech/geonav/internal/orientation"
	"github.com/relabs-tech/geonav/internal/overlay"
	"github.com/relabs-tech/geonav/internal/proximity"
	"github.com/relabs-tech/geonav/internal/session"
)

type fakeSource struct {
	mu       sync.Mutex
	snap     session.Snapshot
	collects int
	rotation orientation.DisplayRotation
}

func (f *fakeSource) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) Collect() {
	f.mu.Lock()
	f.collects++
	f.mu.Unlock()
}

func (f *fakeSource) SetDisplayRotation(r orientation.DisplayRotation) {
	f.mu.Lock()
	f.rotation = r
	f.mu.Unlock()
}

func (f *fakeSource) counts() (int, orientation.DisplayRotation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collects, f.rotation
}

func withState() *fakeSource {
	st := nav.State{DistanceMeters: 143.5, BearingToTargetDeg: 39.2, TurnDeltaDeg: -5.8, DeviceAzimuthDeg: 45, HasFix: true, HasAzimuth: true}
	return &fakeSource{snap: session.Snapshot{
		Seq:       4,
		HasState:  true,
		State:     st,
		Overlay2D: overlay.Project2D(st),
		Overlay3D: overlay.Project3D(st),
		Proximity: proximity.Far,
	}}
}

func TestNavigationNoDataYet(t *testing.T) {
	srv := httptest.NewServer(New(&fakeSource{}, nil, "").Handler())
	defer srv.Close()

	for _, path := range []string{"/api/navigation", "/api/overlay"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("%s status=%d want 503", path, resp.StatusCode)
		}
	}
}

func TestNavigationAndOverlay(t *testing.T) {
	srv := httptest.NewServer(New(withState(), nil, "").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/navigation")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var st nav.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if st.DistanceMeters != 143.5 || st.TurnDeltaDeg != -5.8 {
		t.Fatalf("state=%+v", st)
	}

	resp, err = http.Get(srv.URL + "/api/overlay")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var ov OverlayResponse
	if err := json.NewDecoder(resp.Body).Decode(&ov); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if ov.Overlay2D.DistanceLabel != "143 m" || ov.Overlay3D.YawDeg != 5.8 {
		t.Fatalf("overlay=%+v", ov)
	}
}

func TestProximityEndpoint(t *testing.T) {
	src := withState()
	src.snap.Proximity = proximity.Collected
	src.snap.Points = 100
	srv := httptest.NewServer(New(src, nil, "").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/proximity")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var pr ProximityResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pr.State != proximity.Collected || pr.Points != 100 || !pr.HasFix {
		t.Fatalf("proximity=%+v", pr)
	}
}

func TestCollectMethod(t *testing.T) {
	src := &fakeSource{}
	srv := httptest.NewServer(New(src, nil, "").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/collect")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET status=%d want 405", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/collect", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST status=%d want 202", resp.StatusCode)
	}
	if n, _ := src.counts(); n != 1 {
		t.Fatalf("collects=%d want 1", n)
	}
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(New(&fakeSource{}, nil, "").Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestWebsocketPushAndActions(t *testing.T) {
	src := withState()
	s := New(src, nil, "")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialWS(t, srv)

	var first WSResponse
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if first.Type != "snapshot" || first.Snapshot == nil || first.Snapshot.Seq != 4 {
		t.Fatalf("initial=%+v", first)
	}

	// Wait until the hub registered the client before broadcasting.
	deadline := time.Now().Add(time.Second)
	for s.hub.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.BroadcastEvent(session.Event{Signal: proximity.Revealed, State: proximity.Near})
	var ev WSResponse
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != "event" || ev.Event == nil || ev.Event.Signal != proximity.Revealed {
		t.Fatalf("event=%+v", ev)
	}

	if err := conn.WriteJSON(WSMessage{Action: "rotation", Degrees: 45}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var errMsg WSResponse
	if err := conn.ReadJSON(&errMsg); err != nil {
		t.Fatalf("read error reply: %v", err)
	}
	if errMsg.Type != "error" {
		t.Fatalf("reply=%+v want error", errMsg)
	}

	if err := conn.WriteJSON(WSMessage{Action: "rotation", Degrees: 90}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(WSMessage{Action: "collect"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	deadline = time.Now().Add(time.Second)
	for {
		n, rot := src.counts()
		if n == 1 && rot == orientation.Rotation90 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("collects=%d rotation=%v", n, rot)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebsocketRefusedAfterShutdown(t *testing.T) {
	s := New(withState(), nil, "")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	s.hub.closeAll()
	conn := dialWS(t, srv)

	var msg WSResponse
	err := conn.ReadJSON(&msg)
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("read err=%v msg=%+v want going-away close", err, msg)
	}
	if n := s.hub.count(); n != 0 {
		t.Fatalf("clients=%d after shutdown", n)
	}
}
