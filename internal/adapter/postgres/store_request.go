package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/sparkier-io/sparkier/internal/domain/request"
)

const requestColumns = `id, spark_id, client_id, status, message, created_at, updated_at`

func scanRequest(row interface{ Scan(...any) error }) (*request.ClientRequest, error) {
	var r request.ClientRequest
	err := row.Scan(&r.ID, &r.SparkID, &r.ClientID, &r.Status, &r.Message, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListRequestsByClient(ctx context.Context, clientID string) ([]request.ClientRequest, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+requestColumns+` FROM client_requests WHERE client_id = $1 ORDER BY created_at DESC`,
		clientID)
	if err != nil {
		return nil, fmt.Errorf("list requests by client: %w", err)
	}
	defer rows.Close()

	var requests []request.ClientRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func (s *Store) ListRequestsByConsultant(ctx context.Context, consultantID string) ([]request.ClientRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.spark_id, r.client_id, r.status, r.message, r.created_at, r.updated_at
		FROM client_requests r
		JOIN sparks sp ON sp.id = r.spark_id
		WHERE sp.consultant_id = $1
		ORDER BY r.created_at DESC`,
		consultantID)
	if err != nil {
		return nil, fmt.Errorf("list requests by consultant: %w", err)
	}
	defer rows.Close()

	var requests []request.ClientRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func (s *Store) GetRequest(ctx context.Context, id string) (*request.ClientRequest, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM client_requests WHERE id = $1`, id)

	r, err := scanRequest(row)
	if err != nil {
		return nil, notFoundWrap(err, "get request %s", id)
	}
	return r, nil
}

// CreateRequest inserts a new client request. The partial unique index on
// (client_id, spark_id) for in-flight statuses makes concurrent duplicate
// bookings surface as domain.ErrConflict; callers treat that as the
// resume-existing signal rather than a failure.
func (s *Store) CreateRequest(ctx context.Context, r *request.ClientRequest) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO client_requests (id, spark_id, client_id, status, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.SparkID, r.ClientID, r.Status, r.Message, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return conflictWrap(err, "create request for spark %s", r.SparkID)
	}
	return nil
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id string, status request.Status) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE client_requests SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC(),
	)
	return execExpectOne(tag, err, "update request status %s", id)
}
