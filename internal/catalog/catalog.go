package catalog

import (
	"context"
	"errors"
)

// Product is a read-only mirror of one catalog record. Prices are cents
// to avoid float drift when totals are summed.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
}

// Snapshot is one full, self-consistent view of the catalog keyed by
// product id. A snapshot is never mutated after it is published;
// every push replaces the whole map.
type Snapshot map[string]Product

// Unsubscribe releases a live feed. Must be safe to call more than once.
type Unsubscribe func()

// Store is the durable catalog collaborator. Subscribe delivers the
// current snapshot, then one full snapshot per upstream change, until
// the returned Unsubscribe is called. Feed breakage is reported through
// onErr; the store does not retry on its own.
type Store interface {
	Subscribe(ctx context.Context, onSnap func(Snapshot), onErr func(error)) (Unsubscribe, error)
}

var ErrSubscriptionDegraded = errors.New("catalog: subscription degraded")
