package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sparkier-io/sparkier/internal/port/cache"
)

// intentKeyPrefix namespaces remembered slugs in the cache. The dot
// separator keeps keys valid for NATS KV backends.
const intentKeyPrefix = "intent."

// IntentHolder remembers which spark an anonymous visitor wanted to book,
// keyed by their session. The intent survives the sign-up funnel and is
// consumed exactly once when the booking resumes.
type IntentHolder struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewIntentHolder creates an intent holder. ttl bounds how long an intent
// survives an abandoned sign-up.
func NewIntentHolder(c cache.Cache, ttl time.Duration) *IntentHolder {
	return &IntentHolder{cache: c, ttl: ttl}
}

// Remember stores the slug for the session, replacing any earlier intent.
// The visitor's latest click wins.
func (h *IntentHolder) Remember(ctx context.Context, sessionID, slug string) error {
	if err := h.cache.Set(ctx, intentKeyPrefix+sessionID, []byte(slug), h.ttl); err != nil {
		return fmt.Errorf("remember intent: %w", err)
	}
	return nil
}

// Recall returns the remembered slug for the session, if any.
func (h *IntentHolder) Recall(ctx context.Context, sessionID string) (slug string, ok bool, err error) {
	data, ok, err := h.cache.Get(ctx, intentKeyPrefix+sessionID)
	if err != nil {
		return "", false, fmt.Errorf("recall intent: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return string(data), true, nil
}

// Clear forgets the session's intent. Safe to call when nothing is
// remembered.
func (h *IntentHolder) Clear(ctx context.Context, sessionID string) error {
	if err := h.cache.Delete(ctx, intentKeyPrefix+sessionID); err != nil {
		return fmt.Errorf("clear intent: %w", err)
	}
	return nil
}
