// Package request defines the client booking request domain model.
package request

import (
	"fmt"
	"time"

	"github.com/sparkier-io/sparkier/internal/domain"
)

// Status represents the lifecycle state of a client request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// ValidStatuses is the set of all valid request statuses.
var ValidStatuses = map[Status]bool{
	StatusPending:   true,
	StatusAccepted:  true,
	StatusRejected:  true,
	StatusCompleted: true,
}

// transitions lists the allowed status changes, driven by consultant action.
var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusCompleted},
}

// ClientRequest is a client's intent to engage with a spark. At most one
// in-flight request may exist per (client, spark) pair.
type ClientRequest struct {
	ID        string    `json:"id"`
	SparkID   string    `json:"spark_id"`
	ClientID  string    `json:"client_id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InFlight reports whether the request blocks a new booking for the same
// spark. Rejected and completed requests deliberately do not: a client who
// was turned down or already finished a session may book again.
func (r *ClientRequest) InFlight() bool {
	return r.Status == StatusPending || r.Status == StatusAccepted
}

// CanTransition reports whether the request may move from its current status
// to the target status.
func (r *ClientRequest) CanTransition(to Status) bool {
	for _, next := range transitions[r.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// CreateRequest is the input for opening a new client request.
type CreateRequest struct {
	SparkID  string `json:"spark_id"`
	ClientID string `json:"client_id"`
	Message  string `json:"message,omitempty"`
}

// Validate checks that the CreateRequest has all required references.
func (r *CreateRequest) Validate() error {
	if r.SparkID == "" {
		return fmt.Errorf("%w: spark_id is required", domain.ErrValidation)
	}
	if r.ClientID == "" {
		return fmt.Errorf("%w: client_id is required", domain.ErrValidation)
	}
	if len(r.Message) > 4096 {
		return fmt.Errorf("%w: message too long (max 4096 chars)", domain.ErrValidation)
	}
	return nil
}

// UpdateStatusRequest is the input for a consultant/admin status transition.
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// Validate checks that the target status is a known value.
func (r *UpdateStatusRequest) Validate() error {
	if !ValidStatuses[r.Status] {
		return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, r.Status)
	}
	return nil
}
