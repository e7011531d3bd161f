package shop

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/fresho/internal/domain/cart"
	"github.com/xenking/fresho/internal/domain/fallback"
	"github.com/xenking/fresho/internal/domain/product"
	"github.com/xenking/fresho/internal/ui"
)

// Detail is the product details screen: a quantity stepper and an add to
// cart action.
type Detail struct {
	shop     *Shop
	product  product.Product
	fallback fallback.Handle

	mu       sync.Mutex
	quantity int
}

// OpenDetail builds the details screen for a ScreenProductDetails route. The
// placeholder carried by the route is kept; without one the screen draws its
// own once.
func (s *Shop) OpenDetail(r ui.Route) (*Detail, error) {
	if r.Screen != ui.ScreenProductDetails || r.Product == nil {
		return nil, errors.Errorf("route %q does not open product details", r.Screen)
	}
	d := &Detail{
		shop:     s,
		product:  *r.Product,
		quantity: max(r.Quantity, 0),
	}
	if !d.product.HasImage() {
		d.fallback = s.assigner.Slot(d.product.ID).Assign(r.Fallback)
	}
	return d, nil
}

// Product returns the displayed product.
func (d *Detail) Product() product.Product {
	return d.product
}

// Image returns the product image, or the placeholder when there is none.
func (d *Detail) Image() (string, fallback.Handle) {
	return d.product.Image, d.fallback
}

// Quantity returns the stepper value.
func (d *Detail) Quantity() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quantity
}

// Increment raises the stepper by one.
func (d *Detail) Increment() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quantity++
	return d.quantity
}

// Decrement lowers the stepper by one, stopping at zero.
func (d *Detail) Decrement() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quantity > 0 {
		d.quantity--
	}
	return d.quantity
}

// LineTotal returns the discounted price times the stepper value.
func (d *Detail) LineTotal() decimal.Decimal {
	q := d.Quantity()
	return d.product.DiscountedPrice.Mul(decimal.NewFromInt(int64(q))).Round(2)
}

// AddToCart adds the stepper quantity to the cart, resets the stepper and
// opens the cart. It reports false when the stepper is at zero. The stepper
// is consumed atomically, so a burst of taps adds the quantity once.
func (d *Detail) AddToCart(ctx context.Context) (bool, error) {
	if err := d.shop.requireLogin(ctx); err != nil {
		return false, err
	}

	d.mu.Lock()
	q := d.quantity
	d.quantity = 0
	d.mu.Unlock()
	if q <= 0 {
		return false, nil
	}

	d.shop.ledger.Add(cart.ItemOf(d.product, d.fallback), q)
	zctx.From(ctx).Info("Added to cart",
		zap.String("product_id", d.product.ID),
		zap.Int("quantity", q),
	)

	d.shop.notifier.Notify(ctx, ui.Toast{
		Kind:  ui.KindSuccess,
		Title: "Added to Cart!",
		Body:  fmt.Sprintf("%d %s added to cart", q, d.product.Name),
	})
	d.shop.nav.Navigate(ctx, ui.Route{Screen: ui.ScreenCart})
	return true, nil
}
