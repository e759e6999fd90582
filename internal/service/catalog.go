package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sparkier-io/sparkier/internal/domain/spark"
	"github.com/sparkier-io/sparkier/internal/port/cache"
	"github.com/sparkier-io/sparkier/internal/port/database"
	"github.com/sparkier-io/sparkier/internal/port/messagequeue"
)

const sparkSlugKeyPrefix = "spark.slug."

// CatalogService manages the public spark catalog. Slug lookups are cached:
// they sit on the hot path of every marketing page view and every intake.
type CatalogService struct {
	store    database.Store
	cache    cache.Cache
	queue    messagequeue.Queue
	cacheTTL time.Duration
}

// NewCatalogService creates a catalog service. cache and queue may be nil in
// tests; lookups then go straight to the store and events are skipped.
func NewCatalogService(store database.Store, c cache.Cache, q messagequeue.Queue, cacheTTL time.Duration) *CatalogService {
	return &CatalogService{store: store, cache: c, queue: q, cacheTTL: cacheTTL}
}

// List returns all sparks in the catalog.
func (s *CatalogService) List(ctx context.Context) ([]spark.Spark, error) {
	return s.store.ListSparks(ctx)
}

// ListByConsultant returns the sparks published by one consultant.
func (s *CatalogService) ListByConsultant(ctx context.Context, consultantID string) ([]spark.Spark, error) {
	return s.store.ListSparksByConsultant(ctx, consultantID)
}

// Get returns a spark by ID.
func (s *CatalogService) Get(ctx context.Context, id string) (*spark.Spark, error) {
	return s.store.GetSpark(ctx, id)
}

// GetBySlug returns a spark by its URL slug, serving from cache when
// possible. Cache failures fall back to the store; a stale marketing page
// beats a failed one.
func (s *CatalogService) GetBySlug(ctx context.Context, slug string) (*spark.Spark, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, sparkSlugKeyPrefix+slug); err == nil && ok {
			var sp spark.Spark
			if err := json.Unmarshal(data, &sp); err == nil {
				return &sp, nil
			}
			slog.Warn("corrupt spark cache entry", "slug", slug)
		}
	}

	sp, err := s.store.GetSparkBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(sp); err == nil {
			if err := s.cache.Set(ctx, sparkSlugKeyPrefix+slug, data, s.cacheTTL); err != nil {
				slog.Warn("failed to cache spark", "slug", slug, "error", err)
			}
		}
	}
	return sp, nil
}

// Create publishes a new spark.
func (s *CatalogService) Create(ctx context.Context, req *spark.CreateRequest) (*spark.Spark, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	sp := &spark.Spark{
		ID:           generateID(),
		Slug:         req.Slug,
		Title:        req.Title,
		Summary:      req.Summary,
		Description:  req.Description,
		Price:        req.Price,
		Duration:     req.Duration,
		ConsultantID: req.ConsultantID,
	}

	if err := s.store.CreateSpark(ctx, sp); err != nil {
		return nil, fmt.Errorf("create spark: %w", err)
	}

	s.publishUpdated(ctx, sp, false)
	return sp, nil
}

// Update applies a partial update and invalidates the slug cache.
func (s *CatalogService) Update(ctx context.Context, id string, req *spark.UpdateRequest) (*spark.Spark, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	sp, err := s.store.GetSpark(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		sp.Title = *req.Title
	}
	if req.Summary != nil {
		sp.Summary = *req.Summary
	}
	if req.Description != nil {
		sp.Description = *req.Description
	}
	if req.Price != nil {
		sp.Price = *req.Price
	}
	if req.Duration != nil {
		sp.Duration = *req.Duration
	}

	if err := s.store.UpdateSpark(ctx, sp); err != nil {
		return nil, err
	}

	s.invalidate(ctx, sp.Slug)
	s.publishUpdated(ctx, sp, false)
	return sp, nil
}

// Delete removes a spark from the catalog and invalidates its slug cache.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	sp, err := s.store.GetSpark(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteSpark(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, sp.Slug)
	s.publishUpdated(ctx, sp, true)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, slug string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, sparkSlugKeyPrefix+slug); err != nil {
		slog.Warn("failed to invalidate spark cache", "slug", slug, "error", err)
	}
}

func (s *CatalogService) publishUpdated(ctx context.Context, sp *spark.Spark, deleted bool) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(messagequeue.SparkUpdatedPayload{
		SparkID: sp.ID,
		Slug:    sp.Slug,
		Deleted: deleted,
	})
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectSparkUpdated, data); err != nil {
		slog.Warn("failed to publish spark update", "spark_id", sp.ID, "error", err)
	}
}
