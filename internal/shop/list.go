package shop

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/fresho/internal/catalog"
	"github.com/xenking/fresho/internal/domain/fallback"
	"github.com/xenking/fresho/internal/domain/product"
	"github.com/xenking/fresho/internal/ui"
)

// Card is a rendered product tile. Its placeholder is chosen on first render
// and kept for the lifetime of the card.
type Card struct {
	Product product.Product
	slot    *fallback.Slot
}

// Image returns the product image, or the placeholder when there is none.
func (c Card) Image() (string, fallback.Handle) {
	if c.Product.HasImage() {
		return c.Product.Image, fallback.None
	}
	return "", c.slot.Assign(fallback.None)
}

// LoadCatalog loads the first page of the configured catalog.
func (s *Shop) LoadCatalog(ctx context.Context) error {
	if err := s.requireLogin(ctx); err != nil {
		return err
	}
	return s.notifyFetch(ctx, s.pager.Load(ctx, s.query))
}

// LoadMore loads the next page. It is a no-op while a page is loading and
// after the last page.
func (s *Shop) LoadMore(ctx context.Context) error {
	if err := s.requireLogin(ctx); err != nil {
		return err
	}
	return s.notifyFetch(ctx, s.pager.LoadMore(ctx))
}

// Refresh reloads the catalog from page 1 keeping the visible list until the
// new page arrives.
func (s *Shop) Refresh(ctx context.Context) error {
	return s.LoadCatalog(ctx)
}

func (s *Shop) notifyFetch(ctx context.Context, err error) error {
	if err == nil || !errors.Is(err, catalog.ErrFetchFailed) {
		return err
	}
	s.notifier.Notify(ctx, ui.Toast{Kind: ui.KindError, Title: catalog.FailureMessage})
	return err
}

// Cards returns a card per listed product. Placeholder slots are cached by
// product so they stay stable across renders.
func (s *Shop) Cards() []Card {
	products := s.pager.Products()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Card, 0, len(products))
	for _, p := range products {
		slot, ok := s.slots[p.ID]
		if !ok {
			slot = s.assigner.Slot(p.ID)
			s.slots[p.ID] = slot
		}
		out = append(out, Card{Product: p, slot: slot})
	}
	return out
}

// OpenProduct navigates to the details of the listed product id, carrying
// the placeholder its card shows.
func (s *Shop) OpenProduct(ctx context.Context, id string) error {
	for _, c := range s.Cards() {
		if c.Product.ID != id {
			continue
		}
		p := c.Product
		_, fb := c.Image()
		s.nav.Navigate(ctx, ui.Route{Screen: ui.ScreenProductDetails, Product: &p, Fallback: fb})
		return nil
	}
	return product.ErrNotFound
}
