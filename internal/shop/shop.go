// Package shop holds the screen controllers of the shopping client. They
// enforce the preconditions the state containers leave to their callers
// (login, non-empty checkout) and turn outcomes into toasts and navigation.
package shop

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"

	"github.com/xenking/fresho/internal/catalog"
	"github.com/xenking/fresho/internal/domain/cart"
	"github.com/xenking/fresho/internal/domain/fallback"
	"github.com/xenking/fresho/internal/scan"
	"github.com/xenking/fresho/internal/session"
	"github.com/xenking/fresho/internal/ui"
)

var (
	// ErrNotLoggedIn is returned by gated actions without a session.
	ErrNotLoggedIn = errors.New("login required")
	// ErrEmptyCart is returned by Checkout when there is nothing to order.
	ErrEmptyCart = errors.New("cart is empty")
)

// Session is the login gate used by the controllers.
type Session interface {
	Login(ctx context.Context, c session.Credentials) (session.Identity, error)
	Logout(ctx context.Context) error
	IsLoggedIn(ctx context.Context) bool
	OnLogout(fn func(ctx context.Context))
}

// Deps are the collaborators of a Shop.
type Deps struct {
	Session   Session
	Pager     *catalog.Pager
	Ledger    *cart.Ledger
	Assigner  *fallback.Assigner
	Scanner   *scan.Scanner
	Notifier  ui.Notifier
	Navigator ui.Navigator
	Query     catalog.Query
}

// Shop drives the screens of a single client.
type Shop struct {
	session  Session
	pager    *catalog.Pager
	ledger   *cart.Ledger
	assigner *fallback.Assigner
	scanner  *scan.Scanner
	notifier ui.Notifier
	nav      ui.Navigator
	query    catalog.Query

	mu    sync.Mutex
	slots map[string]*fallback.Slot
}

// New returns a Shop. Logging out resets the catalog, cart and scanner.
func New(d Deps) *Shop {
	if d.Assigner == nil {
		d.Assigner = fallback.NewAssigner()
	}
	if d.Notifier == nil {
		d.Notifier = ui.LogNotifier{}
	}
	s := &Shop{
		session:  d.Session,
		pager:    d.Pager,
		ledger:   d.Ledger,
		assigner: d.Assigner,
		scanner:  d.Scanner,
		notifier: d.Notifier,
		nav:      d.Navigator,
		query:    d.Query,
		slots:    make(map[string]*fallback.Slot),
	}
	s.session.OnLogout(s.resetState)
	return s
}

// Start picks the first screen from the stored session.
func (s *Shop) Start(ctx context.Context) {
	if s.session.IsLoggedIn(ctx) {
		s.nav.Navigate(ctx, ui.Route{Screen: ui.ScreenProductList, Reset: true})
		return
	}
	s.nav.Navigate(ctx, ui.Route{Screen: ui.ScreenLogin, Reset: true})
}

// Login signs in and opens the product list.
func (s *Shop) Login(ctx context.Context, c session.Credentials) error {
	if _, err := s.session.Login(ctx, c); err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			s.notifier.Notify(ctx, ui.Toast{
				Kind:  ui.KindError,
				Title: "Invalid credentials",
				Body:  "Check your email and password",
			})
		}
		return err
	}
	s.nav.Navigate(ctx, ui.Route{Screen: ui.ScreenProductList, Reset: true})
	return nil
}

// Logout signs out and returns to the login screen.
func (s *Shop) Logout(ctx context.Context) error {
	if err := s.session.Logout(ctx); err != nil {
		return errors.Wrap(err, "logout")
	}
	s.nav.Navigate(ctx, ui.Route{Screen: ui.ScreenLogin, Reset: true})
	return nil
}

// Pager exposes the catalog state for rendering.
func (s *Shop) Pager() *catalog.Pager {
	return s.pager
}

// Ledger exposes the cart for rendering.
func (s *Shop) Ledger() *cart.Ledger {
	return s.ledger
}

func (s *Shop) resetState(ctx context.Context) {
	s.pager.Reset()
	s.ledger.Clear()
	if s.scanner != nil {
		s.scanner.Reset()
	}
	s.mu.Lock()
	s.slots = make(map[string]*fallback.Slot)
	s.mu.Unlock()
	zctx.From(ctx).Debug("Session state cleared")
}

func (s *Shop) requireLogin(ctx context.Context) error {
	if !s.session.IsLoggedIn(ctx) {
		return ErrNotLoggedIn
	}
	return nil
}
