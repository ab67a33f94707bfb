// Package draft holds the in-progress order for one operator session.
// Everything here is in-memory and synchronous; the draft talks to no
// store and is owned by exactly one writer.
package draft

import (
	"errors"

	"github.com/cafepos/terminal/internal/catalog"
)

var (
	ErrUnknownProduct  = errors.New("draft: unknown product")
	ErrInvalidQuantity = errors.New("draft: invalid quantity")
	ErrInvalidTable    = errors.New("draft: invalid table number")
)

// Item is a line captured by value at add time. Name and price are
// frozen copies, not references into the catalog, so a later catalog
// push cannot change a line the operator already sees.
type Item struct {
	ProductID  string
	Name       string
	PriceCents int
	Quantity   int
}

// Draft accumulates items in insertion order plus a table number.
// Zero value is not usable; use New.
type Draft struct {
	items []Item
	table int
}

func New() *Draft {
	return &Draft{table: 1}
}

// AddItem looks productID up in the given snapshot and either bumps the
// existing line's quantity or appends a new line with quantity 1. The
// snapshot is only consulted here; existing lines are never revalidated
// against newer catalog state.
func (d *Draft) AddItem(snap catalog.Snapshot, productID string) error {
	p, ok := snap[productID]
	if !ok {
		return ErrUnknownProduct
	}
	for i := range d.items {
		if d.items[i].ProductID == productID {
			d.items[i].Quantity++
			return nil
		}
	}
	d.items = append(d.items, Item{
		ProductID:  p.ID,
		Name:       p.Name,
		PriceCents: p.PriceCents,
		Quantity:   1,
	})
	return nil
}

// SetQuantity sets a line's quantity. Zero removes the line, same as
// RemoveItem; negative is rejected without touching the draft. Unknown
// product ids are a no-op, matching remove semantics.
func (d *Draft) SetQuantity(productID string, n int) error {
	if n < 0 {
		return ErrInvalidQuantity
	}
	if n == 0 {
		d.RemoveItem(productID)
		return nil
	}
	for i := range d.items {
		if d.items[i].ProductID == productID {
			d.items[i].Quantity = n
			return nil
		}
	}
	return nil
}

func (d *Draft) RemoveItem(productID string) {
	for i := range d.items {
		if d.items[i].ProductID == productID {
			d.items = append(d.items[:i], d.items[i+1:]...)
			return
		}
	}
}

// TotalCents recomputes the sum on every call; nothing is cached.
func (d *Draft) TotalCents() int {
	total := 0
	for _, it := range d.items {
		total += it.PriceCents * it.Quantity
	}
	return total
}

func (d *Draft) SetTable(n int) error {
	if n <= 0 {
		return ErrInvalidTable
	}
	d.table = n
	return nil
}

func (d *Draft) Table() int { return d.table }

func (d *Draft) Len() int { return len(d.items) }

// Items returns a copy in insertion order.
func (d *Draft) Items() []Item {
	out := make([]Item, len(d.items))
	copy(out, d.items)
	return out
}

// Clear resets the draft after a successful submission. The table
// number survives; the operator is usually still at the same table.
func (d *Draft) Clear() {
	d.items = nil
}
