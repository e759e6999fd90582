package resilience

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool limits concurrent outbound deliveries using a weighted semaphore.
// Notification sends (SMTP, webhooks) go through a shared Pool so a burst
// of queue events cannot open an unbounded number of upstream connections.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a Pool that allows at most limit concurrent operations.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot. Blocks if all slots
// are busy and returns ctx.Err() if the context is cancelled while waiting.
// A nil pool runs fn directly.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
