// Package catalog implements the paginated product catalog state.
//
// A Pager fetches pages through a Fetcher, normalizes the records and merges
// them into an ordered product list. At most one fetch is in flight per pager:
// LoadMore calls issued while a fetch runs are dropped, and Load or Reset
// supersede the running fetch by bumping the pager generation. Responses that
// arrive for an older generation are discarded.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fresho/internal/domain/product"
)

// FetchError describes a failed page fetch. It matches ErrFetchFailed.
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch product page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFetchFailed.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

// Observer is notified after every committed state change. Observers run with
// the pager locked and must not call back into it.
type Observer func(State)

// Option configures a Pager.
type Option func(*Pager)

// WithDedupe drops products whose identifier is already listed, keeping the
// first occurrence.
func WithDedupe() Option {
	return func(p *Pager) { p.dedupe = true }
}

// WithObserver registers o.
func WithObserver(o Observer) Option {
	return func(p *Pager) { p.observers = append(p.observers, o) }
}

// Pager owns the catalog fetch state and the merged product list.
type Pager struct {
	fetcher   Fetcher
	dedupe    bool
	observers []Observer

	mu     sync.Mutex
	state  atomic.Pointer[State]
	cancel context.CancelFunc
	// committed is the last page merged into the product list.
	committed int
}

// NewPager returns an idle pager.
func NewPager(fetcher Fetcher, opts ...Option) *Pager {
	p := &Pager{fetcher: fetcher}
	for _, o := range opts {
		o(p)
	}
	p.state.Store(&State{Page: 1, PageSize: DefaultPageSize})
	return p
}

// State returns the current snapshot.
func (p *Pager) State() State {
	return *p.state.Load()
}

// Products returns the merged product list.
func (p *Pager) Products() []product.Product {
	return p.state.Load().Products
}

// Load starts over at page 1 for q. The product list is cleared only when q
// differs from the previous query; otherwise it stays visible until page 1
// arrives and replaces it. A running fetch is superseded.
//
// Load blocks until the fetch completes. Failures are recorded in the state
// and returned as *FetchError.
func (p *Pager) Load(ctx context.Context, q Query) error {
	p.mu.Lock()
	prev := p.state.Load()
	p.abortLocked()

	next := *prev
	next.Generation = prev.Generation + 1
	if !prev.loaded || prev.Query != q {
		next.Products = nil
		next.TotalPages = 0
		next.TotalRecords = 0
		p.committed = 0
	}
	next.Query = q
	next.loaded = true
	next.Page = 1
	next.PageSize = q.pageSize()
	next.Status = StatusLoading
	next.Err = ""

	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.commitLocked(&next)
	p.mu.Unlock()

	return p.fetch(fetchCtx, next.Generation, PageRequest{
		Page:            1,
		PageSize:        next.PageSize,
		StoreLocationID: q.StoreLocationID,
	})
}

// LoadMore fetches the page after the last merged one. It is a no-op while a
// fetch is in flight, before the first Load, and once the last page is known
// to be merged.
func (p *Pager) LoadMore(ctx context.Context) error {
	lg := zctx.From(ctx)

	p.mu.Lock()
	prev := p.state.Load()
	switch {
	case !prev.loaded:
		p.mu.Unlock()
		lg.Debug("Load more before initial load, ignoring")
		return nil
	case prev.Status.InFlight():
		p.mu.Unlock()
		lg.Debug("Fetch in flight, dropping load more", zap.Stringer("status", prev.Status))
		return nil
	case !prev.HasMore():
		p.mu.Unlock()
		lg.Debug("Catalog exhausted", zap.Int("total_pages", prev.TotalPages))
		return nil
	}

	next := *prev
	next.Page = p.committed + 1
	next.Status = StatusLoadingMore
	if p.committed == 0 {
		next.Status = StatusLoading
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.commitLocked(&next)
	p.mu.Unlock()

	return p.fetch(fetchCtx, next.Generation, PageRequest{
		Page:            next.Page,
		PageSize:        next.PageSize,
		StoreLocationID: next.Query.StoreLocationID,
	})
}

// Reset drops all catalog state, for example on logout or when the store
// location changes. A running fetch is cancelled and its response discarded.
func (p *Pager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.state.Load()
	p.abortLocked()
	p.committed = 0
	p.commitLocked(&State{
		Page:       1,
		PageSize:   DefaultPageSize,
		Generation: prev.Generation + 1,
	})
}

func (p *Pager) fetch(ctx context.Context, gen uint64, req PageRequest) error {
	lg := zctx.From(ctx).With(
		zap.Int("page", req.Page),
		zap.Uint64("generation", gen),
	)

	page, err := p.fetcher.FetchProductPage(ctx, req)

	p.mu.Lock()
	defer p.mu.Unlock()

	cur := p.state.Load()
	if cur.Generation != gen {
		lg.Debug("Discarding stale page response", zap.Uint64("current_generation", cur.Generation))
		return nil
	}
	p.abortLocked()

	next := *cur
	if err != nil {
		lg.Warn("Fetch product page failed", zap.Error(err))
		next.Status = StatusError
		next.Err = FailureMessage
		next.Page = max(p.committed, 1)
		p.commitLocked(&next)
		return &FetchError{Page: req.Page, Err: err}
	}
	if page == nil {
		page = &Page{}
	}

	products := product.NormalizePage(page.Records)
	if n := countDefaulted(products); n > 0 {
		lg.Debug("Normalized records with missing pricing", zap.Int("count", n), zap.Int("records", len(products)))
	}

	if req.Page == 1 {
		next.Products = products
	} else {
		next.Products = slices.Concat(cur.Products, products)
	}
	if p.dedupe {
		next.Products = dedupe(next.Products)
	}
	next.Page = req.Page
	next.TotalPages = page.TotalPages
	next.TotalRecords = page.TotalRecords
	next.Status = StatusSuccess
	next.Err = ""
	p.committed = req.Page
	p.commitLocked(&next)

	lg.Debug("Merged product page",
		zap.Int("received", len(products)),
		zap.Int("total", len(next.Products)),
	)
	return nil
}

func (p *Pager) abortLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Pager) commitLocked(s *State) {
	p.state.Store(s)
	for _, o := range p.observers {
		o(*s)
	}
}

func countDefaulted(products []product.Product) int {
	n := 0
	for _, pr := range products {
		if pr.Defaulted != 0 {
			n++
		}
	}
	return n
}

func dedupe(products []product.Product) []product.Product {
	seen := make(map[string]struct{}, len(products))
	out := products[:0:0]
	for _, pr := range products {
		if _, ok := seen[pr.ID]; ok {
			continue
		}
		seen[pr.ID] = struct{}{}
		out = append(out, pr)
	}
	return out
}
