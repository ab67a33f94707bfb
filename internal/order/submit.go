package order

import (
	"context"
	"fmt"

	"github.com/cafepos/terminal/internal/draft"
)

// Submitter turns a finished draft into one committed order. It never
// mutates the draft: on success the caller clears it, on failure the
// caller keeps it and may retry with the same content. A retried
// submit after an unconfirmed write can duplicate — there is no
// idempotency key on this path.
type Submitter struct {
	Log Log
}

// Submit validates the draft, freezes it into a payload and appends it
// to the log. Returns the store-assigned order id.
func (s *Submitter) Submit(ctx context.Context, d *draft.Draft) (string, error) {
	if d.Len() == 0 {
		return "", ErrEmptyOrder
	}
	items := d.Items()
	lines := make([]LineItem, 0, len(items))
	for _, it := range items {
		// defensive: the draft should have enforced both already
		if it.Quantity < 1 {
			return "", fmt.Errorf("%w: %q quantity %d", ErrInvalidLine, it.Name, it.Quantity)
		}
		if it.PriceCents < 0 {
			return "", fmt.Errorf("%w: %q price %d", ErrInvalidLine, it.Name, it.PriceCents)
		}
		lines = append(lines, LineItem{
			Name:       it.Name,
			Quantity:   it.Quantity,
			PriceCents: it.PriceCents,
		})
	}
	if d.Table() <= 0 {
		return "", draft.ErrInvalidTable
	}

	p := Payload{
		Table:      d.Table(),
		TotalCents: d.TotalCents(),
		Items:      lines,
		Status:     StatusPlaced,
	}
	id, _, err := s.Log.Append(ctx, p)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	return id, nil
}
