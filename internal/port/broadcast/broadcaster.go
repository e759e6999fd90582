// Package broadcast defines the port for pushing real-time events to
// connected dashboards.
package broadcast

import "context"

// Broadcaster delivers typed events over live connections.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)

	// SendEventToUser sends a typed event to one user's connections only.
	SendEventToUser(ctx context.Context, userID, eventType string, payload any)
}
