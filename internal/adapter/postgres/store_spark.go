package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/sparkier-io/sparkier/internal/domain/spark"
)

const sparkColumns = `id, slug, title, summary, description, price, duration, consultant_id, created_at, updated_at`

func (s *Store) scanSpark(row interface{ Scan(...any) error }) (*spark.Spark, error) {
	var sp spark.Spark
	var consultantID *string
	err := row.Scan(&sp.ID, &sp.Slug, &sp.Title, &sp.Summary, &sp.Description,
		&sp.Price, &sp.Duration, &consultantID, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if consultantID != nil {
		sp.ConsultantID = *consultantID
	}
	return &sp, nil
}

func (s *Store) ListSparks(ctx context.Context) ([]spark.Spark, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sparkColumns+` FROM sparks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sparks: %w", err)
	}
	defer rows.Close()

	var sparks []spark.Spark
	for rows.Next() {
		sp, err := s.scanSpark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan spark: %w", err)
		}
		sparks = append(sparks, *sp)
	}
	return sparks, rows.Err()
}

func (s *Store) ListSparksByConsultant(ctx context.Context, consultantID string) ([]spark.Spark, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sparkColumns+` FROM sparks WHERE consultant_id = $1 ORDER BY created_at DESC`,
		consultantID)
	if err != nil {
		return nil, fmt.Errorf("list sparks by consultant: %w", err)
	}
	defer rows.Close()

	var sparks []spark.Spark
	for rows.Next() {
		sp, err := s.scanSpark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan spark: %w", err)
		}
		sparks = append(sparks, *sp)
	}
	return sparks, rows.Err()
}

func (s *Store) GetSpark(ctx context.Context, id string) (*spark.Spark, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sparkColumns+` FROM sparks WHERE id = $1`, id)

	sp, err := s.scanSpark(row)
	if err != nil {
		return nil, notFoundWrap(err, "get spark %s", id)
	}
	return sp, nil
}

func (s *Store) GetSparkBySlug(ctx context.Context, slug string) (*spark.Spark, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sparkColumns+` FROM sparks WHERE slug = $1`, slug)

	sp, err := s.scanSpark(row)
	if err != nil {
		return nil, notFoundWrap(err, "get spark by slug %s", slug)
	}
	return sp, nil
}

func (s *Store) CreateSpark(ctx context.Context, sp *spark.Spark) error {
	now := time.Now().UTC()
	sp.CreatedAt = now
	sp.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sparks (id, slug, title, summary, description, price, duration, consultant_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sp.ID, sp.Slug, sp.Title, sp.Summary, sp.Description, sp.Price, sp.Duration,
		nullIfEmpty(sp.ConsultantID), sp.CreatedAt, sp.UpdatedAt,
	)
	if err != nil {
		return conflictWrap(err, "create spark %s", sp.Slug)
	}
	return nil
}

func (s *Store) UpdateSpark(ctx context.Context, sp *spark.Spark) error {
	sp.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE sparks SET title = $2, summary = $3, description = $4, price = $5, duration = $6, updated_at = $7
		WHERE id = $1`,
		sp.ID, sp.Title, sp.Summary, sp.Description, sp.Price, sp.Duration, sp.UpdatedAt,
	)
	return execExpectOne(tag, err, "update spark %s", sp.ID)
}

func (s *Store) DeleteSpark(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sparks WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete spark %s", id)
}
