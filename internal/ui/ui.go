// Package ui defines the notification and navigation sinks the shop
// controllers talk to.
package ui

import (
	"context"
	"sync"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fresho/internal/domain/fallback"
	"github.com/xenking/fresho/internal/domain/product"
)

// Kind is the toast style.
type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "info"
	}
}

// Toast is a short-lived message.
type Toast struct {
	Kind  Kind
	Title string
	Body  string
}

// Screen names a navigation destination.
type Screen string

const (
	ScreenLogin          Screen = "LoginScreen"
	ScreenProductList    Screen = "ProductList"
	ScreenProductDetails Screen = "ProductDetails"
	ScreenCart           Screen = "Cart"
	ScreenScan           Screen = "BarcodeScan"
)

// Route is a navigation intent.
type Route struct {
	Screen Screen
	// Product is set for ScreenProductDetails.
	Product *product.Product
	// Fallback is the placeholder already shown for Product, if any.
	Fallback fallback.Handle
	// Quantity is the initial stepper value on the details screen.
	Quantity int
	// Reset replaces the navigation history instead of pushing.
	Reset bool
}

// Notifier shows toasts. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

// Navigator moves between screens.
type Navigator interface {
	Navigate(ctx context.Context, r Route)
}

// LogNotifier writes toasts to the context logger.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(ctx context.Context, t Toast) {
	zctx.From(ctx).Info(t.Title,
		zap.Stringer("kind", t.Kind),
		zap.String("body", t.Body),
	)
}

// Recorder is a Notifier and Navigator that keeps everything it receives.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
	routes []Route
}

var (
	_ Notifier  = (*Recorder)(nil)
	_ Navigator = (*Recorder)(nil)
)

func (r *Recorder) Notify(_ context.Context, t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *Recorder) Navigate(_ context.Context, route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// Toasts returns the received toasts in order.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Routes returns the received routes in order.
func (r *Recorder) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.routes...)
}

// LastRoute returns the most recent route.
func (r *Recorder) LastRoute() (Route, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return Route{}, false
	}
	return r.routes[len(r.routes)-1], true
}
