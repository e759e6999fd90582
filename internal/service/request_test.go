package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sparkier-io/sparkier/internal/domain"
	"github.com/sparkier-io/sparkier/internal/domain/request"
	"github.com/sparkier-io/sparkier/internal/domain/spark"
	"github.com/sparkier-io/sparkier/internal/domain/user"
	"github.com/sparkier-io/sparkier/internal/port/messagequeue"
)

func consultantUser() *user.User {
	return &user.User{ID: "cons1", Email: "consultant@example.com", Roles: []user.Role{user.RoleConsultant}, Enabled: true}
}

func adminUser() *user.User {
	return &user.User{ID: "adm1", Email: "admin@example.com", Roles: []user.Role{user.RoleAdmin}, Enabled: true}
}

func requestFixtureStore() *mockStore {
	return &mockStore{
		sparks: []spark.Spark{growthAuditSpark()},
		requests: []request.ClientRequest{
			{ID: "r1", SparkID: "sp1", ClientID: "cl1", Status: request.StatusPending},
		},
	}
}

func TestRequestGetAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		caller  *user.User
		wantErr error
	}{
		{"owning client", clientUser(), nil},
		{"owning consultant", consultantUser(), nil},
		{"admin", adminUser(), nil},
		{"anonymous", nil, ErrNotAllowed},
		{
			"other client",
			&user.User{ID: "cl2", Roles: []user.Role{user.RoleClient}},
			ErrNotAllowed,
		},
		{
			"other consultant",
			&user.User{ID: "cons2", Roles: []user.Role{user.RoleConsultant}},
			ErrNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRequestService(requestFixtureStore(), nil)

			r, err := svc.Get(context.Background(), "r1", tt.caller)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if r.ID != "r1" {
				t.Errorf("ID = %q, want r1", r.ID)
			}
		})
	}
}

func TestRequestGetNotFound(t *testing.T) {
	svc := NewRequestService(&mockStore{}, nil)

	_, err := svc.Get(context.Background(), "missing", adminUser())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    request.Status
		to      request.Status
		wantErr error
	}{
		{"accept pending", request.StatusPending, request.StatusAccepted, nil},
		{"reject pending", request.StatusPending, request.StatusRejected, nil},
		{"complete accepted", request.StatusAccepted, request.StatusCompleted, nil},
		{"complete pending", request.StatusPending, request.StatusCompleted, domain.ErrValidation},
		{"reopen rejected", request.StatusRejected, request.StatusAccepted, domain.ErrValidation},
		{"reopen completed", request.StatusCompleted, request.StatusPending, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{
				sparks: []spark.Spark{growthAuditSpark()},
				requests: []request.ClientRequest{
					{ID: "r1", SparkID: "sp1", ClientID: "cl1", Status: tt.from},
				},
			}
			svc := NewRequestService(store, nil)

			r, err := svc.UpdateStatus(context.Background(), "r1", tt.to, consultantUser())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if store.requests[0].Status != tt.from {
					t.Errorf("status = %q, illegal transition must not persist", store.requests[0].Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
			if r.Status != tt.to {
				t.Errorf("status = %q, want %q", r.Status, tt.to)
			}
			if store.requests[0].Status != tt.to {
				t.Errorf("stored status = %q, want %q", store.requests[0].Status, tt.to)
			}
		})
	}
}

func TestUpdateStatusAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		caller  *user.User
		wantErr error
	}{
		{"owning consultant", consultantUser(), nil},
		{"admin", adminUser(), nil},
		{"the client", clientUser(), ErrNotAllowed},
		{"anonymous", nil, ErrNotAllowed},
		{
			"other consultant",
			&user.User{ID: "cons2", Roles: []user.Role{user.RoleConsultant}},
			ErrNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRequestService(requestFixtureStore(), nil)

			_, err := svc.UpdateStatus(context.Background(), "r1", request.StatusAccepted, tt.caller)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
		})
	}
}

func TestUpdateStatusInvalidStatus(t *testing.T) {
	svc := NewRequestService(requestFixtureStore(), nil)

	_, err := svc.UpdateStatus(context.Background(), "r1", request.Status("archived"), adminUser())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestUpdateStatusPublishesEvent(t *testing.T) {
	store := requestFixtureStore()
	queue := &mockQueue{}
	svc := NewRequestService(store, queue)

	if _, err := svc.UpdateStatus(context.Background(), "r1", request.StatusAccepted, consultantUser()); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if len(queue.published) != 1 || queue.published[0].subject != messagequeue.SubjectRequestStatus {
		t.Fatalf("expected one %s event, got %v", messagequeue.SubjectRequestStatus, queue.published)
	}

	var p messagequeue.RequestStatusPayload
	if err := json.Unmarshal(queue.published[0].data, &p); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if p.OldStatus != "pending" || p.NewStatus != "accepted" {
		t.Errorf("event statuses = %s -> %s, want pending -> accepted", p.OldStatus, p.NewStatus)
	}
	if p.ClientID != "cl1" || p.ConsultantID != "cons1" {
		t.Errorf("event recipients = client %q consultant %q", p.ClientID, p.ConsultantID)
	}
}

func TestListForClientAndConsultant(t *testing.T) {
	store := &mockStore{
		sparks: []spark.Spark{
			growthAuditSpark(),
			{ID: "sp2", Slug: "seo-teardown", Title: "SEO Teardown", ConsultantID: "cons2"},
		},
		requests: []request.ClientRequest{
			{ID: "r1", SparkID: "sp1", ClientID: "cl1", Status: request.StatusPending},
			{ID: "r2", SparkID: "sp2", ClientID: "cl1", Status: request.StatusAccepted},
			{ID: "r3", SparkID: "sp1", ClientID: "cl2", Status: request.StatusPending},
		},
	}
	svc := NewRequestService(store, nil)

	byClient, err := svc.ListForClient(context.Background(), "cl1")
	if err != nil {
		t.Fatalf("ListForClient: %v", err)
	}
	if len(byClient) != 2 {
		t.Errorf("client requests = %d, want 2", len(byClient))
	}

	byConsultant, err := svc.ListForConsultant(context.Background(), "cons1")
	if err != nil {
		t.Fatalf("ListForConsultant: %v", err)
	}
	if len(byConsultant) != 2 {
		t.Errorf("consultant requests = %d, want 2", len(byConsultant))
	}
}
