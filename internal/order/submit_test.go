package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafepos/terminal/internal/catalog"
	"github.com/cafepos/terminal/internal/draft"
)

func testDraft(t *testing.T) *draft.Draft {
	t.Helper()
	snap := catalog.Snapshot{
		"a": {ID: "a", Name: "Coffee", PriceCents: 350},
		"b": {ID: "b", Name: "Tea", PriceCents: 250},
	}
	d := draft.New()
	require.NoError(t, d.AddItem(snap, "a"))
	require.NoError(t, d.AddItem(snap, "a"))
	require.NoError(t, d.AddItem(snap, "b"))
	require.NoError(t, d.SetTable(5))
	return d
}

func TestSubmitEmptyDraft(t *testing.T) {
	log := newMemLog()
	s := &Submitter{Log: log}
	d := draft.New()

	_, err := s.Submit(context.Background(), d)
	require.ErrorIs(t, err, ErrEmptyOrder)
	assert.Empty(t, log.orders)
	assert.Equal(t, 0, d.Len())
}

func TestSubmitWritesFrozenPayload(t *testing.T) {
	log := newMemLog()
	s := &Submitter{Log: log}
	d := testDraft(t)

	id, err := s.Submit(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "ord-001", id)

	require.Len(t, log.orders, 1)
	o := log.orders[0]
	assert.Equal(t, 5, o.Table)
	assert.Equal(t, 950, o.TotalCents)
	assert.Equal(t, StatusPlaced, o.Status)
	require.Len(t, o.Items, 2)
	assert.Equal(t, LineItem{Name: "Coffee", Quantity: 2, PriceCents: 350}, o.Items[0])
	assert.Equal(t, LineItem{Name: "Tea", Quantity: 1, PriceCents: 250}, o.Items[1])
	assert.False(t, o.CommitTime.IsZero())
}

func TestSubmitDoesNotMutateDraft(t *testing.T) {
	log := newMemLog()
	s := &Submitter{Log: log}
	d := testDraft(t)

	_, err := s.Submit(context.Background(), d)
	require.NoError(t, err)
	// clearing is the caller's responsibility
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 950, d.TotalCents())
}

func TestSubmitStoreFailureLeavesDraftIntact(t *testing.T) {
	log := newMemLog()
	cause := errors.New("quota exceeded")
	log.failErr = cause
	s := &Submitter{Log: log}
	d := testDraft(t)

	_, err := s.Submit(context.Background(), d)
	require.ErrorIs(t, err, ErrSubmissionFailed)
	require.ErrorIs(t, err, cause)

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 950, d.TotalCents())
	assert.Equal(t, 5, d.Table())

	// same draft is retryable once the store recovers
	log.failErr = nil
	id, err := s.Submit(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "ord-001", id)
}

func TestSubmitVisibleInHistoryFeed(t *testing.T) {
	log := newMemLog()
	feed := NewHistoryFeed(log)
	require.NoError(t, feed.Start(context.Background()))
	defer feed.Stop()

	s := &Submitter{Log: log}

	first, err := s.Submit(context.Background(), testDraft(t))
	require.NoError(t, err)
	second, err := s.Submit(context.Background(), testDraft(t))
	require.NoError(t, err)

	entries := feed.Entries()
	require.Len(t, entries, 2)
	// newest first
	assert.Equal(t, second, entries[0].ID)
	assert.Equal(t, first, entries[1].ID)
	assert.Equal(t, 950, entries[0].TotalCents)
	assert.Equal(t, StatusPlaced, entries[0].Status)
}
