package order

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Entry is the display projection of a committed order. Placed is
// formatted at projection time; CommitTime stays the ordering truth.
type Entry struct {
	Order
	Placed string `json:"placed"`
}

// FormatCommitTime renders a commit timestamp for display,
// e.g. "May 1, 2024 3:30 PM".
func FormatCommitTime(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}

// HistoryFeed mirrors the order log for display, newest first. Every
// push replaces the whole list; ordering is commit time descending with
// ties broken by id so re-renders are stable. Feed breakage keeps the
// last good list and signals Degraded, same discipline as the catalog
// cache.
type HistoryFeed struct {
	log Log

	mu      sync.RWMutex
	entries []Entry
	lastErr error

	degraded chan error
	unsub    Unsubscribe
	stopOnce sync.Once
}

func NewHistoryFeed(log Log) *HistoryFeed {
	return &HistoryFeed{
		log:      log,
		degraded: make(chan error, 1),
	}
}

func (f *HistoryFeed) Start(ctx context.Context) error {
	unsub, err := f.log.Subscribe(ctx, f.apply, f.fail)
	if err != nil {
		return fmt.Errorf("order feed subscribe: %w", err)
	}
	f.unsub = unsub
	return nil
}

func (f *HistoryFeed) apply(orders []Order) {
	sorted := make([]Order, len(orders))
	copy(sorted, orders)
	SortNewestFirst(sorted)

	entries := make([]Entry, 0, len(sorted))
	for _, o := range sorted {
		entries = append(entries, Entry{Order: o, Placed: FormatCommitTime(o.CommitTime)})
	}
	f.mu.Lock()
	f.entries = entries
	f.mu.Unlock()
}

func (f *HistoryFeed) fail(err error) {
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()
	select {
	case f.degraded <- fmt.Errorf("%w: %w", ErrSubscriptionDegraded, err):
	default:
	}
}

// Entries returns the newest complete projection, newest order first.
func (f *HistoryFeed) Entries() []Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *HistoryFeed) Degraded() <-chan error { return f.degraded }

func (f *HistoryFeed) LastErr() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastErr
}

func (f *HistoryFeed) Stop() {
	f.stopOnce.Do(func() {
		if f.unsub != nil {
			f.unsub()
		}
	})
}

// SortNewestFirst orders by commit time descending, ties by id
// ascending. Stores may already deliver this order; sorting here keeps
// the guarantee independent of the store.
func SortNewestFirst(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CommitTime.Equal(orders[j].CommitTime) {
			return orders[i].CommitTime.After(orders[j].CommitTime)
		}
		return orders[i].ID < orders[j].ID
	})
}
