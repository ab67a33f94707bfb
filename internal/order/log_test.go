package order

import (
	"context"
	"fmt"
	"time"
)

// memLog is an in-memory order.Log for tests: appends assign ids and
// strictly increasing commit times, and every append pushes the full
// set to subscribers, like the real store does.
type memLog struct {
	orders  []Order
	onSnap  func([]Order)
	onErr   func(error)
	clock   time.Time
	failErr error
	unsubs  int
}

func newMemLog() *memLog {
	return &memLog{clock: time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)}
}

func (l *memLog) Append(ctx context.Context, p Payload) (string, time.Time, error) {
	if l.failErr != nil {
		return "", time.Time{}, l.failErr
	}
	l.clock = l.clock.Add(time.Minute)
	o := Order{
		ID:         fmt.Sprintf("ord-%03d", len(l.orders)+1),
		CommitTime: l.clock,
		Table:      p.Table,
		TotalCents: p.TotalCents,
		Items:      p.Items,
		Status:     p.Status,
	}
	l.orders = append(l.orders, o)
	if l.onSnap != nil {
		l.push()
	}
	return o.ID, o.CommitTime, nil
}

func (l *memLog) Subscribe(_ context.Context, onSnap func([]Order), onErr func(error)) (Unsubscribe, error) {
	l.onSnap = onSnap
	l.onErr = onErr
	l.push()
	return func() { l.unsubs++ }, nil
}

func (l *memLog) push() {
	out := make([]Order, len(l.orders))
	copy(out, l.orders)
	l.onSnap(out)
}
