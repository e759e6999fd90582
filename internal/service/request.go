package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sparkier-io/sparkier/internal/domain"
	"github.com/sparkier-io/sparkier/internal/domain/request"
	"github.com/sparkier-io/sparkier/internal/domain/user"
	"github.com/sparkier-io/sparkier/internal/port/database"
	"github.com/sparkier-io/sparkier/internal/port/messagequeue"
)

// ErrNotAllowed is returned when a user acts on a request they neither own
// nor manage.
var ErrNotAllowed = errors.New("not allowed")

// RequestService manages the lifecycle of client requests after intake has
// opened them: listing, inspection, and consultant-driven status
// transitions.
type RequestService struct {
	store database.Store
	queue messagequeue.Queue
}

// NewRequestService creates a request service. queue may be nil in tests.
func NewRequestService(store database.Store, q messagequeue.Queue) *RequestService {
	return &RequestService{store: store, queue: q}
}

// ListForClient returns the requests a client has opened.
func (s *RequestService) ListForClient(ctx context.Context, clientID string) ([]request.ClientRequest, error) {
	return s.store.ListRequestsByClient(ctx, clientID)
}

// ListForConsultant returns the requests targeting a consultant's sparks.
func (s *RequestService) ListForConsultant(ctx context.Context, consultantID string) ([]request.ClientRequest, error) {
	return s.store.ListRequestsByConsultant(ctx, consultantID)
}

// Get returns a request if the caller is its client, the consultant who owns
// the targeted spark, or an admin.
func (s *RequestService) Get(ctx context.Context, id string, caller *user.User) (*request.ClientRequest, error) {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, r, caller); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateStatus applies a consultant or admin status transition. Illegal
// transitions (completing a pending request, reopening a rejected one) fail
// with domain.ErrValidation.
func (s *RequestService) UpdateStatus(ctx context.Context, id string, to request.Status, caller *user.User) (*request.ClientRequest, error) {
	upd := request.UpdateStatusRequest{Status: to}
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	sp, err := s.store.GetSpark(ctx, r.SparkID)
	if err != nil {
		return nil, fmt.Errorf("get spark: %w", err)
	}

	if caller == nil || !(caller.HasRole(user.RoleAdmin) || (caller.HasRole(user.RoleConsultant) && sp.ConsultantID == caller.ID)) {
		return nil, ErrNotAllowed
	}

	if !r.CanTransition(to) {
		return nil, fmt.Errorf("%w: cannot transition from %s to %s", domain.ErrValidation, r.Status, to)
	}

	if err := s.store.UpdateRequestStatus(ctx, id, to); err != nil {
		return nil, err
	}

	old := r.Status
	r.Status = to
	s.publishStatus(ctx, r, sp.ConsultantID, old)
	return r, nil
}

// authorize checks read access: the request's client, the spark's
// consultant, or an admin.
func (s *RequestService) authorize(ctx context.Context, r *request.ClientRequest, caller *user.User) error {
	if caller == nil {
		return ErrNotAllowed
	}
	if caller.HasRole(user.RoleAdmin) || r.ClientID == caller.ID {
		return nil
	}
	if caller.HasRole(user.RoleConsultant) {
		sp, err := s.store.GetSpark(ctx, r.SparkID)
		if err != nil {
			return fmt.Errorf("get spark: %w", err)
		}
		if sp.ConsultantID == caller.ID {
			return nil
		}
	}
	return ErrNotAllowed
}

func (s *RequestService) publishStatus(ctx context.Context, r *request.ClientRequest, consultantID string, old request.Status) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(messagequeue.RequestStatusPayload{
		RequestID:    r.ID,
		SparkID:      r.SparkID,
		ClientID:     r.ClientID,
		ConsultantID: consultantID,
		OldStatus:    string(old),
		NewStatus:    string(r.Status),
	})
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectRequestStatus, data); err != nil {
		slog.Warn("failed to publish request status", "request_id", r.ID, "error", err)
	}
}
