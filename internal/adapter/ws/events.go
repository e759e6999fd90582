package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/sparkier-io/sparkier/internal/port/broadcast"
)

var _ broadcast.Broadcaster = (*Hub)(nil)

// Event type constants for WebSocket messages.
const (
	EventRequestCreated = "request.created"
	EventRequestStatus  = "request.status"
	EventSparkUpdated   = "spark.updated"
)

// RequestCreatedEvent is sent to a consultant when a client opens a request
// for one of their sparks.
type RequestCreatedEvent struct {
	RequestID string `json:"request_id"`
	SparkID   string `json:"spark_id"`
	SparkSlug string `json:"spark_slug"`
	ClientID  string `json:"client_id"`
}

// RequestStatusEvent is sent to the client (and consultant) when a request
// transitions between statuses.
type RequestStatusEvent struct {
	RequestID string `json:"request_id"`
	SparkID   string `json:"spark_id"`
	Status    string `json:"status"`
}

// SparkUpdatedEvent is broadcast when a spark's catalog entry changes.
type SparkUpdatedEvent struct {
	SparkID string `json:"spark_id"`
	Slug    string `json:"slug"`
}

// BroadcastEvent marshals a typed event and broadcasts it to all connections.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

// SendEventToUser marshals a typed event and delivers it to one user's
// connections only.
func (h *Hub) SendEventToUser(ctx context.Context, userID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.SendToUser(ctx, userID, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
