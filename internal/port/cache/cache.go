// Package cache defines the caching port. The catalog service depends on
// this interface; adapters provide in-process (ristretto), shared (NATS KV)
// and tiered implementations.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value cache with per-entry TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
