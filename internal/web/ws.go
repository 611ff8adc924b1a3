// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/geonav/internal/orientation"
	"github.com/relabs-tech/geonav/internal/session"
)

const (
	sendBuffer = 16
	writeWait  = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is sent by clients.
type WSMessage struct {
	Action  string `json:"action"` // collect, rotation
	Degrees int    `json:"degrees,omitempty"`
}

// WSResponse is pushed to clients.
type WSResponse struct {
	Type     string            `json:"type"` // snapshot, event, error
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Event    *session.Event    `json:"event,omitempty"`
	Message  string            `json:"message,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan WSResponse
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans snapshots out to websocket clients. Each client has its own
// writer goroutine; a client that falls behind loses messages.
type Hub struct {
	src    Source
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

func newHub(src Source, logger *zap.Logger) *Hub {
	return &Hub{src: src, logger: logger, clients: make(map[*wsClient]struct{})}
}

func (h *Hub) broadcast(msg WSResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("websocket client behind, dropping message", zap.String("type", msg.Type))
		}
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// closeAll disconnects every client and refuses later ones.
func (h *Hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

func (h *Hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	c := &wsClient{conn: conn, send: make(chan WSResponse, sendBuffer)}
	snap := h.src.Snapshot()
	c.send <- WSResponse{Type: "snapshot", Snapshot: &snap}

	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.logger.Debug("websocket client connected", zap.String("remote", r.RemoteAddr))

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			h.logger.Debug("websocket write error", zap.Error(err))
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readLoop handles client actions until the connection closes.
func (h *Hub) readLoop(c *wsClient) {
	defer h.remove(c)
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			h.logger.Debug("websocket read error", zap.Error(err))
			return
		}

		switch msg.Action {
		case "collect":
			h.src.Collect()
		case "rotation":
			rot, err := orientation.ParseDisplayRotation(msg.Degrees)
			if err != nil {
				h.reply(c, WSResponse{Type: "error", Message: err.Error()})
				continue
			}
			h.src.SetDisplayRotation(rot)
		default:
			h.reply(c, WSResponse{Type: "error", Message: "unknown action " + msg.Action})
		}
	}
}

func (h *Hub) reply(c *wsClient, msg WSResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
