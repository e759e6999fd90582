package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sparkier-io/sparkier/internal/domain"
	"github.com/sparkier-io/sparkier/internal/domain/intake"
	"github.com/sparkier-io/sparkier/internal/domain/request"
	"github.com/sparkier-io/sparkier/internal/domain/spark"
	"github.com/sparkier-io/sparkier/internal/domain/user"
	"github.com/sparkier-io/sparkier/internal/port/database"
	"github.com/sparkier-io/sparkier/internal/port/messagequeue"
)

// IntakeService resolves a visitor's "book this spark" click into exactly
// one outcome: sign-up required, resume an existing request, or a freshly
// created one. It is the only writer of new client requests.
type IntakeService struct {
	store   database.Store
	catalog *CatalogService
	intents *IntentHolder
	queue   messagequeue.Queue
}

// NewIntakeService creates an intake service. queue may be nil in tests.
func NewIntakeService(store database.Store, catalog *CatalogService, intents *IntentHolder, q messagequeue.Queue) *IntakeService {
	return &IntakeService{store: store, catalog: catalog, intents: intents, queue: q}
}

// Resolve handles a booking click for the spark at slug.
//
// Anonymous callers (client == nil) get RequiresSignUp and the slug is
// remembered against their session so the booking resumes after account
// creation. Authenticated callers either resume their in-flight request for
// this spark or open a new pending one. An unknown slug fails with
// intake.ErrSparkNotFound before any request is read or written.
func (s *IntakeService) Resolve(ctx context.Context, slug, sessionID string, client *user.User, message string) (intake.Outcome, error) {
	sp, err := s.catalog.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// A remembered intent pointing at a dead slug is useless;
			// drop it so the next resume does not hit the same wall.
			s.clearIntent(ctx, sessionID)
			return nil, intake.ErrSparkNotFound
		}
		return nil, fmt.Errorf("get spark by slug: %w", err)
	}

	if client == nil {
		if sessionID != "" {
			if err := s.intents.Remember(ctx, sessionID, slug); err != nil {
				return nil, err
			}
		}
		return intake.RequiresSignUp{SparkSlug: slug}, nil
	}

	// The intent is consumed by this resolution either way, so clearing it
	// runs concurrently with the duplicate check. The clear is best-effort
	// and must not be cancelled when the duplicate check fails, so it runs
	// on a context detached from the group's.
	var existing *request.ClientRequest
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reqs, err := s.store.ListRequestsByClient(gctx, client.ID)
		if err != nil {
			return fmt.Errorf("list client requests: %w", err)
		}
		for i := range reqs {
			if reqs[i].SparkID == sp.ID && reqs[i].InFlight() {
				existing = &reqs[i]
				return nil
			}
		}
		return nil
	})
	if sessionID != "" {
		clearCtx := context.WithoutCancel(ctx)
		g.Go(func() error {
			s.clearIntent(clearCtx, sessionID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if existing != nil {
		return intake.ResumeExisting{RequestID: existing.ID}, nil
	}

	return s.create(ctx, sp, client, message)
}

// ResumeAfterSignIn completes the booking a visitor started before they had
// an account. It recalls the remembered slug for the session and resolves it
// with the now-authenticated user.
func (s *IntakeService) ResumeAfterSignIn(ctx context.Context, sessionID string, client *user.User) (intake.Outcome, error) {
	if client == nil {
		return nil, errors.New("resume requires an authenticated user")
	}

	slug, ok, err := s.intents.Recall(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, intake.ErrNoSparkRemembered
	}

	// The recalled slug is spent by this attempt whether or not it resolves;
	// a failed resolution must not leave it behind to replay on the next
	// sign-in. The detached context keeps the clear alive even when the
	// resolution failed on a cancelled or expired one.
	defer s.clearIntent(context.WithoutCancel(ctx), sessionID)

	return s.Resolve(ctx, slug, sessionID, client, "")
}

// create opens a new pending request. The store's uniqueness guarantee on
// in-flight (client, spark) pairs turns a concurrent duplicate into
// domain.ErrConflict, which resolves to ResumeExisting: two clicks, one
// request, no error shown to the client.
func (s *IntakeService) create(ctx context.Context, sp *spark.Spark, client *user.User, message string) (intake.Outcome, error) {
	req := request.CreateRequest{SparkID: sp.ID, ClientID: client.ID, Message: message}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	r := &request.ClientRequest{
		ID:       generateID(),
		SparkID:  sp.ID,
		ClientID: client.ID,
		Status:   request.StatusPending,
		Message:  message,
	}

	if err := s.store.CreateRequest(ctx, r); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the race to a concurrent intake; find the winner.
			reqs, listErr := s.store.ListRequestsByClient(ctx, client.ID)
			if listErr != nil {
				return nil, fmt.Errorf("list after conflict: %w", listErr)
			}
			for i := range reqs {
				if reqs[i].SparkID == sp.ID && reqs[i].InFlight() {
					return intake.ResumeExisting{RequestID: reqs[i].ID}, nil
				}
			}
			// Winner already transitioned out of flight between the
			// conflict and the list; surface the conflict as-is.
			return nil, fmt.Errorf("create request: %w", err)
		}
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.publishCreated(ctx, r, sp)
	return intake.Created{RequestID: r.ID}, nil
}

func (s *IntakeService) clearIntent(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.intents.Clear(ctx, sessionID); err != nil {
		slog.Warn("failed to clear booking intent", "error", err)
	}
}

func (s *IntakeService) publishCreated(ctx context.Context, r *request.ClientRequest, sp *spark.Spark) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(messagequeue.RequestCreatedPayload{
		RequestID:    r.ID,
		SparkID:      sp.ID,
		SparkSlug:    sp.Slug,
		SparkTitle:   sp.Title,
		ClientID:     r.ClientID,
		ConsultantID: sp.ConsultantID,
	})
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectRequestCreated, data); err != nil {
		slog.Warn("failed to publish request created", "request_id", r.ID, "error", err)
	}
}
