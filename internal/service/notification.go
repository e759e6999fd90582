package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sparkier-io/sparkier/internal/port/broadcast"
	"github.com/sparkier-io/sparkier/internal/port/database"
	"github.com/sparkier-io/sparkier/internal/port/messagequeue"
	"github.com/sparkier-io/sparkier/internal/port/notifier"
	"github.com/sparkier-io/sparkier/internal/resilience"
)

// WebSocket event types pushed to dashboards. These mirror the notifier
// Source values so a recipient can correlate mail and live updates.
const (
	eventRequestCreated = "request.created"
	eventRequestStatus  = "request.status"
)

// NotificationService consumes request lifecycle events from the queue and
// fans them out: email to the affected consultant or client, and live
// events to their dashboards. Email delivery runs behind a circuit breaker
// so a dead SMTP relay cannot pile up consumer retries.
type NotificationService struct {
	store       database.Store
	queue       messagequeue.Queue
	notifiers   []notifier.Notifier
	breaker     *resilience.Breaker
	broadcaster broadcast.Broadcaster

	// demoConsultantID marks platform-owned marketing sparks; requests for
	// those have no consultant inbox to mail.
	demoConsultantID string

	// sendPool caps concurrent outbound sends across all subscriptions.
	sendPool *resilience.Pool

	cancels []func()
}

// maxConcurrentSends bounds simultaneous SMTP/webhook connections.
const maxConcurrentSends = 8

// NewNotificationService creates a notification service. broadcaster and
// notifiers may be empty; delivery is then limited to what is configured.
func NewNotificationService(store database.Store, q messagequeue.Queue, notifiers []notifier.Notifier, b *resilience.Breaker, bc broadcast.Broadcaster, demoConsultantID string) *NotificationService {
	return &NotificationService{
		store:            store,
		queue:            q,
		notifiers:        notifiers,
		breaker:          b,
		broadcaster:      bc,
		demoConsultantID: demoConsultantID,
		sendPool:         resilience.NewPool(maxConcurrentSends),
	}
}

// Start subscribes to the request lifecycle subjects. Call Stop to cancel
// the subscriptions.
func (s *NotificationService) Start(ctx context.Context) error {
	cancelCreated, err := s.queue.Subscribe(ctx, messagequeue.SubjectRequestCreated, s.handleCreated)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", messagequeue.SubjectRequestCreated, err)
	}
	s.cancels = append(s.cancels, cancelCreated)

	cancelStatus, err := s.queue.Subscribe(ctx, messagequeue.SubjectRequestStatus, s.handleStatus)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", messagequeue.SubjectRequestStatus, err)
	}
	s.cancels = append(s.cancels, cancelStatus)

	return nil
}

// Stop cancels all subscriptions.
func (s *NotificationService) Stop() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

// handleCreated notifies the consultant that a client opened a request.
func (s *NotificationService) handleCreated(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.RequestCreatedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("unmarshal request created: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.SendEventToUser(ctx, p.ConsultantID, eventRequestCreated, p)
	}

	// Demo sparks have no consultant to notify.
	if p.ConsultantID == "" || (s.demoConsultantID != "" && p.ConsultantID == s.demoConsultantID) {
		return nil
	}

	consultant, err := s.store.GetUser(ctx, p.ConsultantID)
	if err != nil {
		return fmt.Errorf("get consultant: %w", err)
	}

	s.deliver(ctx, notifier.Notification{
		To:      consultant.Email,
		Title:   fmt.Sprintf("New request for %s", p.SparkTitle),
		Message: "A client wants to book this spark. Review the request in your dashboard.",
		Level:   "info",
		Source:  eventRequestCreated,
	})
	return nil
}

// handleStatus notifies the client that their request moved, and mirrors the
// event to both dashboards.
func (s *NotificationService) handleStatus(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.RequestStatusPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("unmarshal request status: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.SendEventToUser(ctx, p.ClientID, eventRequestStatus, p)
		if p.ConsultantID != "" {
			s.broadcaster.SendEventToUser(ctx, p.ConsultantID, eventRequestStatus, p)
		}
	}

	client, err := s.store.GetUser(ctx, p.ClientID)
	if err != nil {
		return fmt.Errorf("get client: %w", err)
	}

	level := "info"
	switch p.NewStatus {
	case "accepted":
		level = "success"
	case "rejected":
		level = "warning"
	}

	s.deliver(ctx, notifier.Notification{
		To:      client.Email,
		Title:   fmt.Sprintf("Your request is now %s", p.NewStatus),
		Message: fmt.Sprintf("Status changed from %s to %s.", p.OldStatus, p.NewStatus),
		Level:   level,
		Source:  eventRequestStatus,
	})
	return nil
}

// deliver sends the notification through every configured notifier.
// Failures are logged, not returned: a broken mail relay must not nak the
// queue message and replay the dashboard event.
func (s *NotificationService) deliver(ctx context.Context, n notifier.Notification) {
	for _, nt := range s.notifiers {
		err := s.sendPool.Run(ctx, func() error {
			return s.breaker.Execute(func() error {
				return nt.Send(ctx, n)
			})
		})
		if err != nil {
			if errors.Is(err, resilience.ErrCircuitOpen) {
				slog.Warn("notifier circuit open, skipping delivery", "provider", nt.Name(), "to", n.To)
				continue
			}
			slog.Error("notification delivery failed", "provider", nt.Name(), "to", n.To, "error", err)
		}
	}
}
