package catalog

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/fresho/internal/domain/product"
)

// ErrFetchFailed wraps every transport failure reported by the pager.
var ErrFetchFailed = errors.New("fetch product page")

// FailureMessage is the generic error shown to the user when a page fails to
// load. Transport errors are never surfaced verbatim.
const FailureMessage = "An unexpected error occurred"

// DefaultPageSize is the page size used when a query does not set one.
const DefaultPageSize = 20

// Status is the fetch state of a pager.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoadingMore
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoadingMore:
		return "loadingMore"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// InFlight reports whether a fetch is running.
func (s Status) InFlight() bool {
	return s == StatusLoading || s == StatusLoadingMore
}

// Query is the catalog context. Changing it resets the accumulated products.
type Query struct {
	StoreLocationID string
	PageSize        int
}

func (q Query) pageSize() int {
	if q.PageSize <= 0 {
		return DefaultPageSize
	}
	return q.PageSize
}

// PageRequest is the input of a single fetch.
type PageRequest struct {
	Page            int
	PageSize        int
	StoreLocationID string
}

// Page is one page of raw catalog records.
type Page struct {
	TotalRecords int
	TotalPages   int
	CurrentPage  int
	PageSize     int
	Records      []product.Record
}

// Fetcher loads a single catalog page.
type Fetcher interface {
	FetchProductPage(ctx context.Context, req PageRequest) (*Page, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req PageRequest) (*Page, error)

// FetchProductPage calls f.
func (f FetcherFunc) FetchProductPage(ctx context.Context, req PageRequest) (*Page, error) {
	return f(ctx, req)
}

// State is an immutable snapshot of a pager.
type State struct {
	Query        Query
	Page         int
	PageSize     int
	Products     []product.Product
	Status       Status
	Err          string
	TotalPages   int
	TotalRecords int
	Generation   uint64
	// loaded is false until the first Load.
	loaded bool
}

// HasMore reports whether another page may exist. Unknown totals count as
// more pages.
func (s State) HasMore() bool {
	return s.TotalPages <= 0 || s.Page < s.TotalPages
}
