package order

import (
	"context"
	"errors"
	"time"
)

// LineItem is the frozen per-line payload persisted with an order.
// Field names match the stored record layout.
type LineItem struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int    `json:"price"`
}

// Payload is what the submission pipeline hands to the log: everything
// except the store-assigned id and commit time.
type Payload struct {
	Table      int        `json:"table"`
	TotalCents int        `json:"total"`
	Items      []LineItem `json:"items"`
	Status     Status     `json:"status"`
}

// Order is one committed record. Immutable once read off the log;
// CommitTime comes from the store's clock, never the client's.
type Order struct {
	ID         string     `json:"id"`
	CommitTime time.Time  `json:"commit_time"`
	Table      int        `json:"table"`
	TotalCents int        `json:"total"`
	Items      []LineItem `json:"items"`
	Status     Status     `json:"status"`
}

// Unsubscribe releases a live feed. Safe to call more than once.
type Unsubscribe func()

// Log is the append-only durable store for committed orders. Append is
// a single atomic write; the store assigns both the id and the commit
// timestamp. Subscribe delivers the current full set, then one full
// set per change, until unsubscribed.
type Log interface {
	Append(ctx context.Context, p Payload) (id string, commitTime time.Time, err error)
	Subscribe(ctx context.Context, onSnap func([]Order), onErr func(error)) (Unsubscribe, error)
}

var (
	ErrEmptyOrder           = errors.New("order: empty order")
	ErrInvalidLine          = errors.New("order: invalid line item")
	ErrSubmissionFailed     = errors.New("order: submission failed")
	ErrSubscriptionDegraded = errors.New("order: subscription degraded")
)
