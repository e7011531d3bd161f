package shop

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/fresho/internal/domain/product"
	"github.com/xenking/fresho/internal/scan"
	"github.com/xenking/fresho/internal/ui"
)

// OpenScanner shows the scan screen.
func (s *Shop) OpenScanner(ctx context.Context) error {
	if err := s.requireLogin(ctx); err != nil {
		return err
	}
	s.scanner.Reset()
	s.nav.Navigate(ctx, ui.Route{Screen: ui.ScreenScan})
	return nil
}

// Scan feeds a camera event to the scanner. A resolved code opens the
// product details; ignored events return ok=false.
func (s *Shop) Scan(ctx context.Context, code string) (p product.Product, ok bool, err error) {
	if err := s.requireLogin(ctx); err != nil {
		return product.Product{}, false, err
	}

	p, ok, err = s.scanner.Handle(ctx, code)
	if err != nil {
		if errors.Is(err, scan.ErrInvalidCode) {
			s.notifier.Notify(ctx, ui.Toast{Kind: ui.KindError, Title: "Invalid barcode"})
		}
		return product.Product{}, false, err
	}
	if !ok {
		return product.Product{}, false, nil
	}

	s.nav.Navigate(ctx, ui.Route{Screen: ui.ScreenProductDetails, Product: &p})
	return p, true, nil
}
