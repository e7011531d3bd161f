package scan

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fresho/internal/domain/product"
)

// DefaultCooldown is how long a scanner ignores codes after a resolution.
const DefaultCooldown = 3 * time.Second

// State is the scan screen state.
type State int

const (
	// StateIdle accepts the next code.
	StateIdle State = iota
	// StateScanning is resolving a received code.
	StateScanning
	// StateResolved is cooling down after a resolution.
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Scanner debounces camera events: a barcode that stays in frame produces a
// stream of identical events, only the first of which is resolved.
type Scanner struct {
	resolver *Resolver
	cooldown time.Duration
	now      func() time.Time

	mu         sync.Mutex
	state      State
	resolvedAt time.Time
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithCooldown sets the cooldown window.
func WithCooldown(d time.Duration) ScannerOption {
	return func(s *Scanner) { s.cooldown = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) { s.now = now }
}

// NewScanner returns an idle scanner.
func NewScanner(resolver *Resolver, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		resolver: resolver,
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current state.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked()
}

// Handle processes a scanned code. It returns ok=false when the event was
// ignored because a code is being resolved or the cooldown is running.
// Blank codes fail with ErrInvalidCode and leave the state untouched.
func (s *Scanner) Handle(ctx context.Context, code string) (p product.Product, ok bool, err error) {
	lg := zctx.From(ctx)

	s.mu.Lock()
	if st := s.refreshLocked(); st != StateIdle {
		s.mu.Unlock()
		lg.Debug("Ignoring scan event", zap.Stringer("state", st))
		return product.Product{}, false, nil
	}
	if strings.TrimSpace(code) == "" {
		s.mu.Unlock()
		return product.Product{}, false, ErrInvalidCode
	}
	s.state = StateScanning
	s.mu.Unlock()

	p, err = s.resolver.Resolve(ctx, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateIdle
		return product.Product{}, false, err
	}
	s.state = StateResolved
	s.resolvedAt = s.now()
	return p, true, nil
}

// Reset returns the scanner to idle immediately.
func (s *Scanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
}

func (s *Scanner) refreshLocked() State {
	if s.state == StateResolved && s.now().Sub(s.resolvedAt) >= s.cooldown {
		s.state = StateIdle
	}
	return s.state
}
