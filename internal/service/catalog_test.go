package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sparkier-io/sparkier/internal/domain"
	"github.com/sparkier-io/sparkier/internal/domain/spark"
	"github.com/sparkier-io/sparkier/internal/port/messagequeue"
)

func TestCatalogGetBySlugCachesResult(t *testing.T) {
	store := &mockStore{sparks: []spark.Spark{growthAuditSpark()}}
	c := newMockCache()
	svc := NewCatalogService(store, c, nil, time.Minute)

	ctx := context.Background()
	sp, err := svc.GetBySlug(ctx, "growth-audit")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if sp.ID != "sp1" {
		t.Errorf("ID = %q, want sp1", sp.ID)
	}

	cached, ok := c.data[sparkSlugKeyPrefix+"growth-audit"]
	if !ok {
		t.Fatal("expected slug lookup to populate the cache")
	}
	var fromCache spark.Spark
	if err := json.Unmarshal(cached, &fromCache); err != nil {
		t.Fatalf("cached entry not valid JSON: %v", err)
	}
	if fromCache.ID != "sp1" {
		t.Errorf("cached ID = %q, want sp1", fromCache.ID)
	}
}

func TestCatalogGetBySlugServesFromCache(t *testing.T) {
	// Store is empty; only the cache knows the spark.
	store := &mockStore{}
	c := newMockCache()
	data, _ := json.Marshal(growthAuditSpark())
	c.data[sparkSlugKeyPrefix+"growth-audit"] = data

	svc := NewCatalogService(store, c, nil, time.Minute)

	sp, err := svc.GetBySlug(context.Background(), "growth-audit")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if sp.ID != "sp1" {
		t.Errorf("ID = %q, want sp1 from cache", sp.ID)
	}
}

func TestCatalogGetBySlugCorruptCacheFallsBack(t *testing.T) {
	store := &mockStore{sparks: []spark.Spark{growthAuditSpark()}}
	c := newMockCache()
	c.data[sparkSlugKeyPrefix+"growth-audit"] = []byte("{not json")

	svc := NewCatalogService(store, c, nil, time.Minute)

	sp, err := svc.GetBySlug(context.Background(), "growth-audit")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if sp.ID != "sp1" {
		t.Errorf("ID = %q, want sp1 from store", sp.ID)
	}
}

func TestCatalogGetBySlugCacheErrorFallsBack(t *testing.T) {
	store := &mockStore{sparks: []spark.Spark{growthAuditSpark()}}
	c := newMockCache()
	c.getErr = errors.New("cache down")

	svc := NewCatalogService(store, c, nil, time.Minute)

	if _, err := svc.GetBySlug(context.Background(), "growth-audit"); err != nil {
		t.Fatalf("GetBySlug should survive a cache outage: %v", err)
	}
}

func TestCatalogGetBySlugNotFound(t *testing.T) {
	svc := NewCatalogService(&mockStore{}, nil, nil, 0)

	_, err := svc.GetBySlug(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCatalogCreate(t *testing.T) {
	store := &mockStore{}
	queue := &mockQueue{}
	svc := NewCatalogService(store, nil, queue, 0)

	sp, err := svc.Create(context.Background(), &spark.CreateRequest{
		Slug:         "growth-audit",
		Title:        "Growth Audit",
		Summary:      "A one-hour growth audit",
		Price:        "250.00",
		Duration:     60,
		ConsultantID: "cons1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sp.ID == "" {
		t.Error("expected generated ID")
	}
	if len(store.sparks) != 1 {
		t.Fatalf("stored sparks = %d, want 1", len(store.sparks))
	}

	if len(queue.published) != 1 || queue.published[0].subject != messagequeue.SubjectSparkUpdated {
		t.Fatalf("expected one %s event, got %v", messagequeue.SubjectSparkUpdated, queue.published)
	}
}

func TestCatalogCreateValidation(t *testing.T) {
	svc := NewCatalogService(&mockStore{}, nil, nil, 0)

	_, err := svc.Create(context.Background(), &spark.CreateRequest{Slug: "no-title"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCatalogCreateDuplicateSlug(t *testing.T) {
	store := &mockStore{sparks: []spark.Spark{growthAuditSpark()}}
	svc := NewCatalogService(store, nil, nil, 0)

	_, err := svc.Create(context.Background(), &spark.CreateRequest{
		Slug:         "growth-audit",
		Title:        "Another Audit",
		Summary:      "s",
		Price:        "100",
		Duration:     30,
		ConsultantID: "cons2",
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestCatalogUpdateInvalidatesCache(t *testing.T) {
	store := &mockStore{sparks: []spark.Spark{growthAuditSpark()}}
	c := newMockCache()
	queue := &mockQueue{}
	svc := NewCatalogService(store, c, queue, time.Minute)

	ctx := context.Background()
	if _, err := svc.GetBySlug(ctx, "growth-audit"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, ok := c.data[sparkSlugKeyPrefix+"growth-audit"]; !ok {
		t.Fatal("cache not warmed")
	}

	title := "Growth Audit v2"
	sp, err := svc.Update(ctx, "sp1", &spark.UpdateRequest{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if sp.Title != title {
		t.Errorf("title = %q, want %q", sp.Title, title)
	}

	if _, ok := c.data[sparkSlugKeyPrefix+"growth-audit"]; ok {
		t.Error("cache entry should be invalidated after update")
	}
	if len(queue.published) != 1 {
		t.Errorf("expected 1 event, got %d", len(queue.published))
	}
}

func TestCatalogUpdatePartial(t *testing.T) {
	store := &mockStore{sparks: []spark.Spark{growthAuditSpark()}}
	svc := NewCatalogService(store, nil, nil, 0)

	price := "990.00"
	sp, err := svc.Update(context.Background(), "sp1", &spark.UpdateRequest{Price: &price})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if sp.Price != price {
		t.Errorf("price = %q, want %q", sp.Price, price)
	}
	if sp.Title != "Growth Audit" {
		t.Errorf("title = %q, unset fields must not be cleared", sp.Title)
	}
}

func TestCatalogDelete(t *testing.T) {
	store := &mockStore{sparks: []spark.Spark{growthAuditSpark()}}
	c := newMockCache()
	queue := &mockQueue{}
	svc := NewCatalogService(store, c, queue, time.Minute)

	ctx := context.Background()
	if _, err := svc.GetBySlug(ctx, "growth-audit"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if err := svc.Delete(ctx, "sp1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.sparks) != 0 {
		t.Errorf("sparks = %d, want 0", len(store.sparks))
	}
	if _, ok := c.data[sparkSlugKeyPrefix+"growth-audit"]; ok {
		t.Error("cache entry should be invalidated after delete")
	}

	if len(queue.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(queue.published))
	}
	var p messagequeue.SparkUpdatedPayload
	if err := json.Unmarshal(queue.published[0].data, &p); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if !p.Deleted {
		t.Error("expected deleted flag in event")
	}
}

func TestCatalogListByConsultant(t *testing.T) {
	store := &mockStore{sparks: []spark.Spark{
		growthAuditSpark(),
		{ID: "sp2", Slug: "seo-teardown", Title: "SEO Teardown", ConsultantID: "cons2"},
	}}
	svc := NewCatalogService(store, nil, nil, 0)

	got, err := svc.ListByConsultant(context.Background(), "cons2")
	if err != nil {
		t.Fatalf("ListByConsultant: %v", err)
	}
	if len(got) != 1 || got[0].ID != "sp2" {
		t.Errorf("got %v, want only sp2", got)
	}
}
