// Package ws implements the WebSocket adapter for live dashboard updates.
// Clients see their request status change without polling; consultants see
// new requests arrive.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn wraps a single WebSocket connection. userID is empty for
// unauthenticated connections, which only receive broadcast messages.
type conn struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
	userID string
}

// UserIDFunc extracts the authenticated user ID from an upgrade request.
// Returning "" admits the connection without a user scope.
type UserIDFunc func(r *http.Request) string

// Hub manages all active WebSocket connections and routes messages either to
// every connection or to the connections of a single user.
type Hub struct {
	userID UserIDFunc

	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// NewHub creates a WebSocket hub. userID may be nil, in which case no
// connection is user-scoped.
func NewHub(userID UserIDFunc) *Hub {
	return &Hub{
		userID: userID,
		conns:  make(map[*conn]struct{}),
	}
}

// HandleWS upgrades the connection to WebSocket and registers it with the hub.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	var uid string
	if h.userID != nil {
		uid = h.userID(r)
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{ws: ws, cancel: cancel, userID: uid}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr, "user_id", uid)

	// Read loop (to detect disconnects and consume pings)
	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			_, _, err := ws.Read(ctx)
			if err != nil {
				return
			}
		}
	}()
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}
	h.write(ctx, data, func(*conn) bool { return true })
}

// SendToUser sends a message to every connection belonging to userID.
func (h *Hub) SendToUser(ctx context.Context, userID string, msg Message) {
	if userID == "" {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}
	h.write(ctx, data, func(c *conn) bool { return c.userID == userID })
}

func (h *Hub) write(ctx context.Context, data []byte, match func(*conn) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if !match(c) {
			continue
		}
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket write failed", "error", err)
			go h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected", "user_id", c.userID)
	}
}
