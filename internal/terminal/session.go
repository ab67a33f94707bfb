// Package terminal ties one operator's controls together: a catalog
// cache to pick from, one exclusively owned draft, and the submission
// pipeline. All mutation goes through the session so the draft only
// ever has a single writer.
package terminal

import (
	"context"
	"errors"
	"sync"

	"github.com/cafepos/terminal/internal/catalog"
	"github.com/cafepos/terminal/internal/draft"
	"github.com/cafepos/terminal/internal/order"
)

var (
	ErrSubmitInFlight = errors.New("terminal: submit already in flight")
	ErrSessionClosed  = errors.New("terminal: session closed")
)

type Session struct {
	ID string

	cache     *catalog.Cache
	submitter *order.Submitter

	mu       sync.Mutex
	d        *draft.Draft
	inflight bool
	closed   bool
}

func NewSession(id string, cache *catalog.Cache, submitter *order.Submitter) *Session {
	return &Session{
		ID:        id,
		cache:     cache,
		submitter: submitter,
		d:         draft.New(),
	}
}

// AddItem resolves the product against the newest delivered catalog
// snapshot and adds it to the draft. The line is frozen from whatever
// the snapshot said at this moment.
func (s *Session) AddItem(productID string) error {
	snap := s.cache.CurrentSnapshot()
	return s.mutate(func() error { return s.d.AddItem(snap, productID) })
}

func (s *Session) SetQuantity(productID string, n int) error {
	return s.mutate(func() error { return s.d.SetQuantity(productID, n) })
}

func (s *Session) RemoveItem(productID string) error {
	return s.mutate(func() error { s.d.RemoveItem(productID); return nil })
}

func (s *Session) SetTable(n int) error {
	return s.mutate(func() error { return s.d.SetTable(n) })
}

func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	// controls are disabled while a submit is on the wire
	if s.inflight {
		return ErrSubmitInFlight
	}
	return fn()
}

func (s *Session) Items() []draft.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Items()
}

func (s *Session) TotalCents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.TotalCents()
}

func (s *Session) Table() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Table()
}

// Submit hands the draft to the pipeline. While the write is in flight
// every other operation on the session is rejected, so the draft cannot
// change underneath the submission. The draft is cleared only after the
// store confirmed the write; on failure it is left intact for a retry.
func (s *Session) Submit(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	if s.inflight {
		s.mu.Unlock()
		return "", ErrSubmitInFlight
	}
	s.inflight = true
	d := s.d
	s.mu.Unlock()

	id, err := s.submitter.Submit(ctx, d)

	s.mu.Lock()
	s.inflight = false
	if err == nil || s.closed {
		s.d.Clear()
	}
	s.mu.Unlock()
	return id, err
}

// Close discards the draft. Idempotent; an in-flight submit still runs
// to completion, there is no cancellation for it. While one is in
// flight the draft stays untouched — the submit path still reads it —
// and is discarded when the flight lands.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if !s.inflight {
		s.d.Clear()
	}
}
