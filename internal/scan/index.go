package scan

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/xenking/fresho/internal/domain/product"
)

const (
	indexMinCapacity = 1024
	indexFPR         = 0.01
)

// Index is an in-memory product.Lookup over inventory-sync codes. A bloom
// filter answers most misses without touching the code map.
type Index struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	byCode map[string]product.Product
}

var _ product.Lookup = (*Index)(nil)

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		filter: bloom.NewWithEstimates(indexMinCapacity, indexFPR),
		byCode: make(map[string]product.Product),
	}
}

// Rebuild replaces the indexed products. When two products share a code the
// first one wins.
func (x *Index) Rebuild(products []product.Product) {
	n := 0
	for _, p := range products {
		n += len(p.Codes)
	}

	filter := bloom.NewWithEstimates(uint(max(n, indexMinCapacity)), indexFPR)
	byCode := make(map[string]product.Product, n)
	for _, p := range products {
		for _, code := range p.Codes {
			if _, ok := byCode[code]; ok {
				continue
			}
			byCode[code] = p
			filter.AddString(code)
		}
	}

	x.mu.Lock()
	x.filter = filter
	x.byCode = byCode
	x.mu.Unlock()
}

// Len returns the number of indexed codes.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byCode)
}

// LookupCode implements product.Lookup.
func (x *Index) LookupCode(_ context.Context, code string) (*product.Product, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.filter.TestString(code) {
		return nil, product.ErrNotFound
	}
	p, ok := x.byCode[code]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}
