package terminal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafepos/terminal/internal/catalog"
	"github.com/cafepos/terminal/internal/draft"
	"github.com/cafepos/terminal/internal/order"
)

type fakeCatalog struct {
	onSnap func(catalog.Snapshot)
}

func (f *fakeCatalog) Subscribe(_ context.Context, onSnap func(catalog.Snapshot), _ func(error)) (catalog.Unsubscribe, error) {
	f.onSnap = onSnap
	return func() {}, nil
}

type fakeLog struct {
	orders  []order.Order
	onSnap  func([]order.Order)
	clock   time.Time
	failErr error
	blockCh chan struct{}
	entered chan struct{}
}

func (l *fakeLog) Append(_ context.Context, p order.Payload) (string, time.Time, error) {
	if l.entered != nil {
		l.entered <- struct{}{}
	}
	if l.blockCh != nil {
		<-l.blockCh
	}
	if l.failErr != nil {
		return "", time.Time{}, l.failErr
	}
	l.clock = l.clock.Add(time.Minute)
	o := order.Order{
		ID:         fmt.Sprintf("ord-%03d", len(l.orders)+1),
		CommitTime: l.clock,
		Table:      p.Table,
		TotalCents: p.TotalCents,
		Items:      p.Items,
		Status:     p.Status,
	}
	l.orders = append(l.orders, o)
	if l.onSnap != nil {
		out := make([]order.Order, len(l.orders))
		copy(out, l.orders)
		l.onSnap(out)
	}
	return o.ID, o.CommitTime, nil
}

func (l *fakeLog) Subscribe(_ context.Context, onSnap func([]order.Order), _ func(error)) (order.Unsubscribe, error) {
	l.onSnap = onSnap
	out := make([]order.Order, len(l.orders))
	copy(out, l.orders)
	onSnap(out)
	return func() {}, nil
}

func newFixture(t *testing.T) (*Session, *fakeCatalog, *fakeLog, *order.HistoryFeed) {
	t.Helper()
	fc := &fakeCatalog{}
	cache := catalog.NewCache(fc)
	require.NoError(t, cache.Start(context.Background()))
	fc.onSnap(catalog.Snapshot{
		"a": {ID: "a", Name: "Coffee", PriceCents: 350},
		"b": {ID: "b", Name: "Tea", PriceCents: 250},
	})

	fl := &fakeLog{clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	feed := order.NewHistoryFeed(fl)
	require.NoError(t, feed.Start(context.Background()))

	s := NewSession("sess-1", cache, &order.Submitter{Log: fl})
	return s, fc, fl, feed
}

func TestSessionComposeAndSubmit(t *testing.T) {
	s, fc, fl, feed := newFixture(t)

	require.NoError(t, s.AddItem("a"))
	require.NoError(t, s.AddItem("a"))
	require.NoError(t, s.AddItem("b"))
	require.NoError(t, s.SetTable(5))
	require.Equal(t, 950, s.TotalCents())

	// a price push after the lines were added changes nothing
	fc.onSnap(catalog.Snapshot{
		"a": {ID: "a", Name: "Coffee", PriceCents: 400},
		"b": {ID: "b", Name: "Tea", PriceCents: 250},
	})
	require.Equal(t, 950, s.TotalCents())

	id, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ord-001", id)

	// success clears the draft
	assert.Empty(t, s.Items())
	assert.Equal(t, 0, s.TotalCents())

	require.Len(t, fl.orders, 1)
	o := fl.orders[0]
	assert.Equal(t, 5, o.Table)
	assert.Equal(t, 950, o.TotalCents)
	assert.Equal(t, order.StatusPlaced, o.Status)

	entries := feed.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
}

func TestSessionAddItemUsesFreshSnapshot(t *testing.T) {
	s, fc, _, _ := newFixture(t)

	fc.onSnap(catalog.Snapshot{
		"a": {ID: "a", Name: "Coffee", PriceCents: 400},
	})
	require.NoError(t, s.AddItem("a"))
	items := s.Items()
	require.Len(t, items, 1)
	// new line captures the newest delivered price
	assert.Equal(t, 400, items[0].PriceCents)

	// product removed upstream is rejected on the next add
	fc.onSnap(catalog.Snapshot{})
	require.ErrorIs(t, s.AddItem("a"), draft.ErrUnknownProduct)
}

func TestSessionSubmitEmpty(t *testing.T) {
	s, _, fl, _ := newFixture(t)

	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, order.ErrEmptyOrder)
	assert.Empty(t, fl.orders)

	// session stays usable after the rejection
	require.NoError(t, s.AddItem("a"))
}

func TestSessionSubmitFailureKeepsDraft(t *testing.T) {
	s, _, fl, _ := newFixture(t)
	require.NoError(t, s.AddItem("a"))
	fl.failErr = fmt.Errorf("network down")

	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, order.ErrSubmissionFailed)
	require.Len(t, s.Items(), 1)

	// retry with the same draft once the store is back
	fl.failErr = nil
	id, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ord-001", id)
	assert.Empty(t, s.Items())
}

func TestSessionBlocksWhileSubmitInFlight(t *testing.T) {
	s, _, fl, _ := newFixture(t)
	require.NoError(t, s.AddItem("a"))

	fl.blockCh = make(chan struct{})
	fl.entered = make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()

	// wait until the submit is actually on the wire
	<-fl.entered

	require.ErrorIs(t, s.AddItem("b"), ErrSubmitInFlight)
	require.ErrorIs(t, s.SetQuantity("a", 3), ErrSubmitInFlight)
	require.ErrorIs(t, s.SetTable(2), ErrSubmitInFlight)
	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitInFlight)

	close(fl.blockCh)
	require.NoError(t, <-done)
	assert.Empty(t, s.Items())
	require.Len(t, fl.orders, 1)
}

func TestSessionCloseDuringSubmit(t *testing.T) {
	s, _, fl, _ := newFixture(t)
	require.NoError(t, s.AddItem("a"))
	require.NoError(t, s.AddItem("a"))

	fl.blockCh = make(chan struct{})
	fl.entered = make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	<-fl.entered

	// closing mid-flight must not touch the draft the submit is reading
	s.Close()

	close(fl.blockCh)
	require.NoError(t, <-done)

	// the full draft was committed, not a truncated one
	require.Len(t, fl.orders, 1)
	o := fl.orders[0]
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, 700, o.TotalCents)

	require.ErrorIs(t, s.AddItem("a"), ErrSessionClosed)
	assert.Empty(t, s.Items())
}

func TestSessionClose(t *testing.T) {
	s, _, _, _ := newFixture(t)
	require.NoError(t, s.AddItem("a"))

	s.Close()
	s.Close() // idempotent

	require.ErrorIs(t, s.AddItem("a"), ErrSessionClosed)
	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, ErrSessionClosed)
	assert.Empty(t, s.Items())
}
