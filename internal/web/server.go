// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package web serves the navigation state over HTTP and pushes snapshots
// to websocket clients.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/geonav/internal/metrics"
	"github.com/relabs-tech/geonav/internal/orientation"
	"github.com/relabs-tech/geonav/internal/overlay"
	"github.com/relabs-tech/geonav/internal/proximity"
	"github.com/relabs-tech/geonav/internal/session"
)

// Source is the running navigation session.
type Source interface {
	Snapshot() session.Snapshot
	Collect()
	SetDisplayRotation(orientation.DisplayRotation)
}

type OverlayResponse struct {
	Seq       uint64         `json:"seq"`
	Overlay2D overlay.Pose2D `json:"overlay_2d"`
	Overlay3D overlay.Pose3D `json:"overlay_3d"`
}

type ProximityResponse struct {
	State     proximity.State `json:"state"`
	Points    int             `json:"points"`
	HasFix    bool            `json:"has_fix"`
	DistanceM float64         `json:"distance_m"`
}

type Server struct {
	src       Source
	logger    *zap.Logger
	hub       *Hub
	staticDir string
}

// New builds a server. staticDir is served at / when it exists.
func New(src Source, logger *zap.Logger, staticDir string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		src:       src,
		logger:    logger,
		hub:       newHub(src, logger),
		staticDir: staticDir,
	}
}

// Broadcast pushes snap to every websocket client.
func (s *Server) Broadcast(snap session.Snapshot) {
	s.hub.broadcast(WSResponse{Type: "snapshot", Snapshot: &snap})
}

// BroadcastEvent pushes a proximity edge to every websocket client.
func (s *Server) BroadcastEvent(ev session.Event) {
	s.hub.broadcast(WSResponse{Type: "event", Event: &ev})
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/navigation", s.handleNavigation)
	mux.HandleFunc("GET /api/overlay", s.handleOverlay)
	mux.HandleFunc("GET /api/proximity", s.handleProximity)
	mux.HandleFunc("POST /api/collect", s.handleCollect)
	mux.HandleFunc("/ws", s.hub.serveWS)
	metrics.Register(mux)

	if s.staticDir != "" {
		if fi, err := os.Stat(s.staticDir); err == nil && fi.IsDir() {
			mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
		}
	}
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.src.Snapshot())
}

func (s *Server) handleNavigation(w http.ResponseWriter, _ *http.Request) {
	snap := s.src.Snapshot()
	if !snap.HasState {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, snap.State)
}

func (s *Server) handleOverlay(w http.ResponseWriter, _ *http.Request) {
	snap := s.src.Snapshot()
	if !snap.HasState {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, OverlayResponse{
		Seq:       snap.Seq,
		Overlay2D: snap.Overlay2D,
		Overlay3D: snap.Overlay3D,
	})
}

func (s *Server) handleProximity(w http.ResponseWriter, _ *http.Request) {
	snap := s.src.Snapshot()
	s.writeJSON(w, http.StatusOK, ProximityResponse{
		State:     snap.Proximity,
		Points:    snap.Points,
		HasFix:    snap.HasState,
		DistanceM: snap.State.DistanceMeters,
	})
}

// handleCollect forwards the trigger; whether it is honoured depends on
// the proximity state when the session applies it.
func (s *Server) handleCollect(w http.ResponseWriter, _ *http.Request) {
	s.src.Collect()
	s.writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("json encode error", zap.Error(err))
	}
}
