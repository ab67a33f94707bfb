package catalog

import (
	"context"
	"fmt"
	"sync"
)

// Cache mirrors the remote catalog in memory. Each push from the store
// swaps the whole snapshot under a write lock, so readers never see a
// half-applied update. If the feed breaks the cache keeps serving the
// last good snapshot and reports once on Degraded; recovery is the
// caller's problem.
type Cache struct {
	store Store

	mu      sync.RWMutex
	snap    Snapshot
	lastErr error

	degraded chan error
	unsub    Unsubscribe
	stopOnce sync.Once
}

func NewCache(store Store) *Cache {
	return &Cache{
		store:    store,
		snap:     Snapshot{},
		degraded: make(chan error, 1),
	}
}

// Start opens the long-lived subscription. Fails only when the feed
// cannot be opened at all; after that, errors go through Degraded.
func (c *Cache) Start(ctx context.Context) error {
	unsub, err := c.store.Subscribe(ctx, c.apply, c.fail)
	if err != nil {
		return fmt.Errorf("catalog subscribe: %w", err)
	}
	c.unsub = unsub
	return nil
}

func (c *Cache) apply(s Snapshot) {
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

func (c *Cache) fail(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	// non-blocking: one pending degraded signal is enough
	select {
	case c.degraded <- fmt.Errorf("%w: %w", ErrSubscriptionDegraded, err):
	default:
	}
}

// CurrentSnapshot returns the newest complete snapshot. The map must be
// treated as read-only; it is shared with other readers.
func (c *Cache) CurrentSnapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Cache) Lookup(id string) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.snap[id]
	return p, ok
}

// Degraded fires when the live feed breaks. The cache stays usable on
// stale data afterwards.
func (c *Cache) Degraded() <-chan error { return c.degraded }

func (c *Cache) LastErr() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Stop releases the feed. Idempotent.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		if c.unsub != nil {
			c.unsub()
		}
	})
}
