package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sparkier-io/sparkier/internal/domain"
	"github.com/sparkier-io/sparkier/internal/domain/request"
	"github.com/sparkier-io/sparkier/internal/domain/spark"
	"github.com/sparkier-io/sparkier/internal/domain/user"
	"github.com/sparkier-io/sparkier/internal/port/database"
	"github.com/sparkier-io/sparkier/internal/port/messagequeue"
)

// mockStore implements database.Store backed by slices.
type mockStore struct {
	sparks        []spark.Spark
	requests      []request.ClientRequest
	users         []user.User
	refreshTokens []user.RefreshToken

	// forceCreateConflict makes the next CreateRequest fail with
	// domain.ErrConflict, simulating a concurrent duplicate insert. When
	// conflictWinner is set it lands in the store at that moment, the way
	// the concurrent winner's row would.
	forceCreateConflict bool
	conflictWinner      *request.ClientRequest

	getSparkBySlugErr error
	listRequestsErr   error
	createErr         error

	createRequestCalls int
	listRequestCalls   int
}

var _ database.Store = (*mockStore)(nil)

func (m *mockStore) ListSparks(_ context.Context) ([]spark.Spark, error) {
	return m.sparks, nil
}

func (m *mockStore) ListSparksByConsultant(_ context.Context, consultantID string) ([]spark.Spark, error) {
	var out []spark.Spark
	for _, sp := range m.sparks {
		if sp.ConsultantID == consultantID {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (m *mockStore) GetSpark(_ context.Context, id string) (*spark.Spark, error) {
	for i := range m.sparks {
		if m.sparks[i].ID == id {
			return &m.sparks[i], nil
		}
	}
	return nil, fmt.Errorf("get spark %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) GetSparkBySlug(_ context.Context, slug string) (*spark.Spark, error) {
	if m.getSparkBySlugErr != nil {
		return nil, m.getSparkBySlugErr
	}
	for i := range m.sparks {
		if m.sparks[i].Slug == slug {
			return &m.sparks[i], nil
		}
	}
	return nil, fmt.Errorf("get spark by slug %s: %w", slug, domain.ErrNotFound)
}

func (m *mockStore) CreateSpark(_ context.Context, sp *spark.Spark) error {
	for i := range m.sparks {
		if m.sparks[i].Slug == sp.Slug {
			return fmt.Errorf("create spark %s: %w", sp.Slug, domain.ErrConflict)
		}
	}
	m.sparks = append(m.sparks, *sp)
	return nil
}

func (m *mockStore) UpdateSpark(_ context.Context, sp *spark.Spark) error {
	for i := range m.sparks {
		if m.sparks[i].ID == sp.ID {
			m.sparks[i] = *sp
			return nil
		}
	}
	return fmt.Errorf("update spark %s: %w", sp.ID, domain.ErrNotFound)
}

func (m *mockStore) DeleteSpark(_ context.Context, id string) error {
	for i := range m.sparks {
		if m.sparks[i].ID == id {
			m.sparks = append(m.sparks[:i], m.sparks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete spark %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) ListRequestsByClient(_ context.Context, clientID string) ([]request.ClientRequest, error) {
	m.listRequestCalls++
	if m.listRequestsErr != nil {
		return nil, m.listRequestsErr
	}
	var out []request.ClientRequest
	for _, r := range m.requests {
		if r.ClientID == clientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) ListRequestsByConsultant(_ context.Context, consultantID string) ([]request.ClientRequest, error) {
	byID := make(map[string]spark.Spark)
	for _, sp := range m.sparks {
		byID[sp.ID] = sp
	}
	var out []request.ClientRequest
	for _, r := range m.requests {
		if sp, ok := byID[r.SparkID]; ok && sp.ConsultantID == consultantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) GetRequest(_ context.Context, id string) (*request.ClientRequest, error) {
	for i := range m.requests {
		if m.requests[i].ID == id {
			// Return a copy, as the real store does; aliasing the slice
			// would let later store updates mutate the caller's snapshot.
			r := m.requests[i]
			return &r, nil
		}
	}
	return nil, fmt.Errorf("get request %s: %w", id, domain.ErrNotFound)
}

// CreateRequest mirrors the store's uniqueness guarantee: at most one
// in-flight request per (client, spark) pair.
func (m *mockStore) CreateRequest(_ context.Context, r *request.ClientRequest) error {
	m.createRequestCalls++
	if m.createErr != nil {
		return m.createErr
	}
	if m.forceCreateConflict {
		m.forceCreateConflict = false
		if m.conflictWinner != nil {
			m.requests = append(m.requests, *m.conflictWinner)
		}
		return fmt.Errorf("create request: %w", domain.ErrConflict)
	}
	for _, existing := range m.requests {
		if existing.ClientID == r.ClientID && existing.SparkID == r.SparkID && existing.InFlight() {
			return fmt.Errorf("create request: %w", domain.ErrConflict)
		}
	}
	m.requests = append(m.requests, *r)
	return nil
}

func (m *mockStore) UpdateRequestStatus(_ context.Context, id string, status request.Status) error {
	for i := range m.requests {
		if m.requests[i].ID == id {
			m.requests[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("update request %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) CreateUser(_ context.Context, u *user.User) error {
	for i := range m.users {
		if m.users[i].Email == u.Email {
			return fmt.Errorf("create user %s: %w", u.Email, domain.ErrConflict)
		}
	}
	m.users = append(m.users, *u)
	return nil
}

func (m *mockStore) GetUser(_ context.Context, id string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			return &m.users[i], nil
		}
	}
	return nil, fmt.Errorf("get user %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].Email == email {
			return &m.users[i], nil
		}
	}
	return nil, fmt.Errorf("get user by email %s: %w", email, domain.ErrNotFound)
}

func (m *mockStore) ListUsers(_ context.Context) ([]user.User, error) {
	return m.users, nil
}

func (m *mockStore) UpdateUser(_ context.Context, u *user.User) error {
	for i := range m.users {
		if m.users[i].ID == u.ID {
			m.users[i] = *u
			return nil
		}
	}
	return fmt.Errorf("update user %s: %w", u.ID, domain.ErrNotFound)
}

func (m *mockStore) DeleteUser(_ context.Context, id string) error {
	for i := range m.users {
		if m.users[i].ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete user %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) CreateRefreshToken(_ context.Context, rt *user.RefreshToken) error {
	m.refreshTokens = append(m.refreshTokens, *rt)
	return nil
}

func (m *mockStore) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*user.RefreshToken, error) {
	for i := range m.refreshTokens {
		if m.refreshTokens[i].TokenHash == tokenHash {
			return &m.refreshTokens[i], nil
		}
	}
	return nil, fmt.Errorf("get refresh token: %w", domain.ErrNotFound)
}

func (m *mockStore) RotateRefreshToken(ctx context.Context, oldID string, newToken *user.RefreshToken) error {
	if err := m.DeleteRefreshToken(ctx, oldID); err != nil {
		return err
	}
	return m.CreateRefreshToken(ctx, newToken)
}

func (m *mockStore) DeleteRefreshToken(_ context.Context, id string) error {
	for i := range m.refreshTokens {
		if m.refreshTokens[i].ID == id {
			m.refreshTokens = append(m.refreshTokens[:i], m.refreshTokens[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete refresh token %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) DeleteRefreshTokensByUser(_ context.Context, userID string) error {
	kept := m.refreshTokens[:0]
	for _, rt := range m.refreshTokens {
		if rt.UserID != userID {
			kept = append(kept, rt)
		}
	}
	m.refreshTokens = kept
	return nil
}

func (m *mockStore) DeleteExpiredRefreshTokens(_ context.Context) (int64, error) {
	var n int64
	kept := m.refreshTokens[:0]
	now := time.Now()
	for _, rt := range m.refreshTokens {
		if rt.ExpiresAt.After(now) {
			kept = append(kept, rt)
		} else {
			n++
		}
	}
	m.refreshTokens = kept
	return n, nil
}

// mockQueue implements messagequeue.Queue for testing.
type mockQueue struct {
	published []struct {
		subject string
		data    []byte
	}
	publishErr error
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, struct {
		subject string
		data    []byte
	}{subject, data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

// mockCache implements cache.Cache with a plain map.
type mockCache struct {
	data map[string][]byte

	getErr error
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = value
	return nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}
