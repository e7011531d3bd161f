// Package scan resolves scanned barcodes to products.
package scan

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/fresho/internal/domain/product"
)

// ErrInvalidCode is returned for empty or whitespace-only codes.
var ErrInvalidCode = errors.New("invalid scanned code")

// SyntheticCategory is the category of placeholder products built from
// unknown codes.
const SyntheticCategory = "Scanned product"

// Resolver maps scanned codes to products.
type Resolver struct {
	lookup product.Lookup
}

// NewResolver returns a Resolver backed by lookup.
func NewResolver(lookup product.Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the catalog product whose variant carries code. Unknown
// codes resolve to a synthetic product whose identifier is the code itself,
// so any non-empty code yields a product the caller can navigate to.
func (r *Resolver) Resolve(ctx context.Context, code string) (product.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return product.Product{}, ErrInvalidCode
	}

	lg := zctx.From(ctx).With(zap.String("code", code))
	if !IsEAN13(code) {
		lg.Debug("Scanned code is not a valid EAN-13")
	}

	p, err := r.lookup.LookupCode(ctx, code)
	switch {
	case err == nil:
		return *p, nil
	case errors.Is(err, product.ErrNotFound):
		lg.Debug("Unknown code, using placeholder product")
	default:
		// Lookup failures must not block navigation.
		lg.Warn("Code lookup failed, using placeholder product", zap.Error(err))
	}
	return Synthetic(code), nil
}

// Synthetic builds the placeholder product for an unknown code.
func Synthetic(code string) product.Product {
	return product.Product{
		ID:              code,
		Name:            "Scanned item " + code,
		Category:        SyntheticCategory,
		OriginalPrice:   decimal.Zero,
		DiscountedPrice: decimal.Zero,
		Codes:           []string{code},
		Synthetic:       true,
	}
}
