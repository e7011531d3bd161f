package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/fresho/internal/domain/fallback"
	"github.com/xenking/fresho/internal/domain/product"
)

// Item is the display snapshot of a product captured when it is added to the
// cart. Later catalog refreshes do not change it.
type Item struct {
	ProductID       string
	Name            string
	Category        string
	Image           string
	OriginalPrice   decimal.Decimal
	DiscountedPrice decimal.Decimal
	DiscountPercent int
	Fallback        fallback.Handle
}

// ItemOf captures p together with the placeholder shown for it.
func ItemOf(p product.Product, fb fallback.Handle) Item {
	return Item{
		ProductID:       p.ID,
		Name:            p.Name,
		Category:        p.Category,
		Image:           p.Image,
		OriginalPrice:   p.OriginalPrice,
		DiscountedPrice: p.DiscountedPrice,
		DiscountPercent: p.DiscountPercent,
		Fallback:        fb,
	}
}

// Line is a cart entry. Quantity is always at least 1.
type Line struct {
	Item
	Quantity int
}

// Subtotal returns the discounted price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.DiscountedPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is an immutable view of the cart. The zero value is an empty cart.
type Snapshot struct {
	lines []Line
}

// Lines returns a copy of the cart lines in insertion order.
func (s Snapshot) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Len returns the number of distinct lines.
func (s Snapshot) Len() int {
	return len(s.lines)
}

// IsEmpty reports whether the cart has no lines.
func (s Snapshot) IsEmpty() bool {
	return len(s.lines) == 0
}

// Line returns the line for productID.
func (s Snapshot) Line(productID string) (Line, bool) {
	if i := s.index(productID); i >= 0 {
		return s.lines[i], true
	}
	return Line{}, false
}

// TotalItems returns the sum of all quantities.
func (s Snapshot) TotalItems() int {
	total := 0
	for _, l := range s.lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice returns the sum of discounted price times quantity, rounded to
// 2 decimal places.
func (s Snapshot) TotalPrice() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range s.lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum.Round(2)
}

func (s Snapshot) index(productID string) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Receipt describes a checked-out cart.
type Receipt struct {
	Lines      []Line
	TotalItems int
	TotalPrice decimal.Decimal
}
