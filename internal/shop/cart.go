package shop

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/fresho/internal/domain/cart"
	"github.com/xenking/fresho/internal/ui"
)

// Order is a placed order.
type Order struct {
	ID       uuid.UUID
	PlacedAt time.Time
	cart.Receipt
}

// Cart returns the current cart.
func (s *Shop) Cart() cart.Snapshot {
	return s.ledger.Snapshot()
}

// IncrementLine raises the quantity of a cart line by one.
func (s *Shop) IncrementLine(productID string) cart.Snapshot {
	l, ok := s.ledger.Snapshot().Line(productID)
	if !ok {
		return s.ledger.Snapshot()
	}
	return s.ledger.UpdateQuantity(productID, l.Quantity+1)
}

// DecrementLine lowers the quantity of a cart line by one, removing it at
// zero.
func (s *Shop) DecrementLine(productID string) cart.Snapshot {
	l, ok := s.ledger.Snapshot().Line(productID)
	if !ok {
		return s.ledger.Snapshot()
	}
	return s.ledger.UpdateQuantity(productID, l.Quantity-1)
}

// SetQuantity sets a cart line quantity; zero or less removes the line.
func (s *Shop) SetQuantity(productID string, quantity int) cart.Snapshot {
	return s.ledger.UpdateQuantity(productID, quantity)
}

// RemoveLine drops a cart line.
func (s *Shop) RemoveLine(productID string) cart.Snapshot {
	return s.ledger.Remove(productID)
}

// ClearCart empties the cart.
func (s *Shop) ClearCart() cart.Snapshot {
	return s.ledger.Clear()
}

// Checkout places the order for the whole cart, empties it and returns to
// the product list. An empty cart is rejected with ErrEmptyCart.
func (s *Shop) Checkout(ctx context.Context) (Order, error) {
	if err := s.requireLogin(ctx); err != nil {
		return Order{}, err
	}
	if s.ledger.Snapshot().IsEmpty() {
		s.notifyEmptyCart(ctx)
		return Order{}, ErrEmptyCart
	}

	_, receipt := s.ledger.Checkout()
	if len(receipt.Lines) == 0 {
		// Emptied between the check and the checkout.
		s.notifyEmptyCart(ctx)
		return Order{}, ErrEmptyCart
	}

	order := Order{
		ID:       uuid.New(),
		PlacedAt: time.Now().UTC(),
		Receipt:  receipt,
	}
	zctx.From(ctx).Info("Order placed",
		zap.Stringer("order_id", order.ID),
		zap.Int("items", order.TotalItems),
		zap.Stringer("total", order.TotalPrice),
	)

	s.notifier.Notify(ctx, ui.Toast{
		Kind:  ui.KindSuccess,
		Title: "Order placed successfully!",
		Body:  "Total: ₹" + order.TotalPrice.StringFixed(2),
	})
	s.nav.Navigate(ctx, ui.Route{Screen: ui.ScreenProductList})
	return order, nil
}

func (s *Shop) notifyEmptyCart(ctx context.Context) {
	s.notifier.Notify(ctx, ui.Toast{
		Kind:  ui.KindError,
		Title: "Empty Cart",
		Body:  "Please add items to your cart before checkout.",
	})
}
