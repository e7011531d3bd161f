// Package fallback assigns placeholder images to products that have none.
//
// A placeholder is chosen once per owning instance (a product card, a detail
// screen) and kept for the lifetime of that instance, so re-rendering never
// swaps the picture under the user.
package fallback

import (
	"math/rand/v2"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Handle references one of the placeholder images. The zero value None means
// no placeholder has been chosen.
type Handle uint8

// None is the empty handle.
const None Handle = 0

// Placeholder describes a bundled placeholder image.
type Placeholder struct {
	Name  string
	Asset string
}

var placeholders = [...]Placeholder{
	{Name: "carrot", Asset: "assets/carrot.png"},
	{Name: "empty-product", Asset: "assets/emptyProduct.png"},
	{Name: "fruit", Asset: "assets/fruit.png"},
	{Name: "cabbage", Asset: "assets/cabbage.png"},
	{Name: "transparent", Asset: "assets/transparent.png"},
	{Name: "tomato", Asset: "assets/tomato.png"},
	{Name: "broccoli", Asset: "assets/broccoli.png"},
	{Name: "eggplant", Asset: "assets/eggplant.png"},
	{Name: "corn", Asset: "assets/corn.png"},
}

// Count is the number of placeholders available.
const Count = len(placeholders)

// Valid reports whether h references a placeholder.
func (h Handle) Valid() bool {
	return h != None && int(h) <= Count
}

// Placeholder returns the image referenced by h. It returns false for None or
// out-of-range handles.
func (h Handle) Placeholder() (Placeholder, bool) {
	if !h.Valid() {
		return Placeholder{}, false
	}
	return placeholders[h-1], true
}

func (h Handle) String() string {
	p, ok := h.Placeholder()
	if !ok {
		return "none"
	}
	return p.Name
}

// ForProduct returns the deterministic handle for a product identifier.
func ForProduct(productID string) Handle {
	return Handle(xxhash.Sum64String(productID)%uint64(Count)) + 1
}

// Assigner creates memoized placeholder slots.
type Assigner struct {
	random bool
	intN   func(n int) int
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithRandom makes slots draw a pseudo-random placeholder instead of hashing
// the product identifier. The draw is still made only once per slot.
func WithRandom() Option {
	return func(a *Assigner) { a.random = true }
}

// WithSource overrides the random source, mostly for tests.
func WithSource(intN func(n int) int) Option {
	return func(a *Assigner) { a.intN = intN }
}

// NewAssigner returns an Assigner. Without options it is deterministic.
func NewAssigner(opts ...Option) *Assigner {
	a := &Assigner{intN: rand.IntN}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Slot returns a new memo owned by a single UI instance showing productID.
func (a *Assigner) Slot(productID string) *Slot {
	return &Slot{assigner: a, productID: productID}
}

// Resolve picks the handle for a product without memoization. Callers that
// render the same instance repeatedly must use a Slot.
func (a *Assigner) Resolve(productID string) Handle {
	if a.random {
		return Handle(a.intN(Count)) + 1
	}
	return ForProduct(productID)
}

// Slot memoizes the placeholder of one UI instance.
type Slot struct {
	assigner  *Assigner
	productID string

	once   sync.Once
	handle Handle
}

// Assign returns existing unchanged when it is set. Otherwise it returns the
// handle drawn on the first call; later calls never draw again.
func (s *Slot) Assign(existing Handle) Handle {
	if existing.Valid() {
		s.once.Do(func() { s.handle = existing })
		return existing
	}
	s.once.Do(func() { s.handle = s.assigner.Resolve(s.productID) })
	return s.handle
}
