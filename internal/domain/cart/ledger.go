// Package cart implements the shopping cart ledger.
//
// The ledger keeps at most one line per product and never retains a line with
// a quantity below one. Writers are serialized and every write publishes a new
// immutable Snapshot, so concurrent readers never observe a partial update.
package cart

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/xenking/fresho/internal/domain/fallback"
)

// Ledger owns the cart lines.
type Ledger struct {
	assigner *fallback.Assigner

	mu    sync.Mutex
	state atomic.Pointer[Snapshot]
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithAssigner sets the assigner used for lines added without an image and
// without a captured placeholder.
func WithAssigner(a *fallback.Assigner) Option {
	return func(l *Ledger) { l.assigner = a }
}

// NewLedger returns an empty ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{assigner: fallback.NewAssigner()}
	for _, o := range opts {
		o(l)
	}
	l.state.Store(&Snapshot{})
	return l
}

// Snapshot returns the current cart.
func (l *Ledger) Snapshot() Snapshot {
	return *l.state.Load()
}

// Add increases the quantity of the item's line by quantity, creating the
// line if needed. Non-positive quantities are ignored.
func (l *Ledger) Add(item Item, quantity int) Snapshot {
	return l.update(func(lines []Line) []Line {
		if quantity <= 0 {
			return nil
		}
		if i := indexOf(lines, item.ProductID); i >= 0 {
			lines[i].Quantity += quantity
			return lines
		}
		if item.Image == "" && !item.Fallback.Valid() {
			item.Fallback = l.assigner.Resolve(item.ProductID)
		}
		return append(lines, Line{Item: item, Quantity: quantity})
	})
}

// UpdateQuantity sets the quantity of the line for productID. A quantity of
// zero or less removes the line. Unknown products are ignored.
func (l *Ledger) UpdateQuantity(productID string, quantity int) Snapshot {
	return l.update(func(lines []Line) []Line {
		i := indexOf(lines, productID)
		if i < 0 {
			return nil
		}
		if quantity <= 0 {
			return slices.Delete(lines, i, i+1)
		}
		lines[i].Quantity = quantity
		return lines
	})
}

// Remove deletes the line for productID if present.
func (l *Ledger) Remove(productID string) Snapshot {
	return l.update(func(lines []Line) []Line {
		i := indexOf(lines, productID)
		if i < 0 {
			return nil
		}
		return slices.Delete(lines, i, i+1)
	})
}

// Clear empties the cart.
func (l *Ledger) Clear() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	empty := &Snapshot{}
	l.state.Store(empty)
	return *empty
}

// Checkout empties the cart and returns the receipt of what it contained.
// Rejecting an empty checkout is up to the caller.
func (l *Ledger) Checkout() (Snapshot, Receipt) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.state.Load()
	receipt := Receipt{
		Lines:      prev.Lines(),
		TotalItems: prev.TotalItems(),
		TotalPrice: prev.TotalPrice(),
	}

	empty := &Snapshot{}
	l.state.Store(empty)
	return *empty, receipt
}

// update applies fn to a private copy of the lines and publishes the result.
// fn returns nil to leave the cart untouched.
func (l *Ledger) update(fn func(lines []Line) []Line) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.state.Load()
	next := fn(prev.Lines())
	if next == nil {
		return *prev
	}

	s := &Snapshot{lines: next}
	l.state.Store(s)
	return *s
}

func indexOf(lines []Line, productID string) int {
	return slices.IndexFunc(lines, func(l Line) bool {
		return l.ProductID == productID
	})
}
