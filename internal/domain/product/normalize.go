package product

import (
	"strings"

	"github.com/shopspring/decimal"
)

const fallbackDiscountPercent = 50

var (
	// DefaultOriginalPrice is used when a record carries no original price.
	DefaultOriginalPrice = decimal.NewFromInt(100)
	// DefaultDiscountedPrice is used when a record carries no discounted price.
	DefaultDiscountedPrice = decimal.NewFromInt(80)

	hundred = decimal.NewFromInt(100)
)

// Normalize turns a raw record into a fully populated Product. It never fails:
// missing prices and discounts are replaced by defaults and recorded in
// Product.Defaulted.
func Normalize(raw Record) Product {
	p := Product{
		ID:       raw.ID,
		Name:     raw.Name,
		Category: raw.Category,
	}
	if raw.Images != nil {
		p.Image = strings.TrimSpace(raw.Images.Front)
	}

	p.OriginalPrice = DefaultOriginalPrice
	if raw.OriginalPrice != nil {
		p.OriginalPrice = *raw.OriginalPrice
	} else {
		p.Defaulted |= DefaultedOriginalPrice
	}

	p.DiscountedPrice = DefaultDiscountedPrice
	if raw.DiscountedPrice != nil {
		p.DiscountedPrice = *raw.DiscountedPrice
	} else {
		p.Defaulted |= DefaultedDiscountedPrice
	}

	switch {
	case raw.DiscountPercent != nil:
		p.DiscountPercent = int(raw.DiscountPercent.Round(0).IntPart())
	case raw.OriginalPrice == nil && raw.DiscountedPrice == nil:
		// Both prices are placeholders, a derived percentage would be made up.
		p.DiscountPercent = fallbackDiscountPercent
		p.Defaulted |= DefaultedDiscountPercent
	default:
		p.DiscountPercent = DiscountPercent(p.OriginalPrice, p.DiscountedPrice)
		p.Defaulted |= DefaultedDiscountPercent
	}

	for _, v := range raw.Variants {
		if code := strings.TrimSpace(v.InventorySyncCode); code != "" {
			p.Codes = append(p.Codes, code)
		}
	}

	return p
}

// NormalizePage normalizes records preserving their order.
func NormalizePage(records []Record) []Product {
	out := make([]Product, len(records))
	for i, r := range records {
		out[i] = Normalize(r)
	}
	return out
}

// DiscountPercent derives round((original-discounted)/original*100). A zero
// original price or a result outside [0, 100] yields 50.
func DiscountPercent(original, discounted decimal.Decimal) int {
	if original.IsZero() {
		return fallbackDiscountPercent
	}
	pct := original.Sub(discounted).Div(original).Mul(hundred).Round(0)
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return fallbackDiscountPercent
	}
	return int(pct.IntPart())
}
