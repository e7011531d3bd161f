package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Record is a catalog entry as delivered by the catalog API. Every optional
// field is a pointer; nil means the upstream payload did not carry it.
type Record struct {
	ID              string
	Name            string
	Category        string
	Images          *Images
	OriginalPrice   *decimal.Decimal
	DiscountedPrice *decimal.Decimal
	DiscountPercent *decimal.Decimal
	Variants        []Variant
}

// Images holds the image URIs of a record.
type Images struct {
	Front string
}

// Variant is a sellable variant of a record. InventorySyncCode doubles as the
// scannable barcode of the variant.
type Variant struct {
	ID                string
	InventorySyncCode string
}

// Product is the display form of a catalog entry. It is produced by Normalize
// and never mutated afterwards.
type Product struct {
	ID              string
	Name            string
	Category        string
	Image           string
	OriginalPrice   decimal.Decimal
	DiscountedPrice decimal.Decimal
	DiscountPercent int
	// Codes lists the inventory-sync codes of the product variants.
	Codes []string
	// Synthetic marks placeholder products built from an unknown barcode.
	Synthetic bool
	// Defaulted reports which fields were filled in by Normalize.
	Defaulted Defaults
}

// HasImage reports whether the product carries a primary image.
func (p Product) HasImage() bool {
	return p.Image != ""
}

// Defaults is a bit set of product fields that were absent upstream.
type Defaults uint8

const (
	DefaultedOriginalPrice Defaults = 1 << iota
	DefaultedDiscountedPrice
	DefaultedDiscountPercent
)

// Has reports whether every bit of f is set.
func (d Defaults) Has(f Defaults) bool {
	return d&f == f
}

// Lookup resolves products by one of their inventory-sync codes.
type Lookup interface {
	LookupCode(ctx context.Context, code string) (*Product, error)
}
