// Package session implements the login gate that guards the shopping flow.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Key is the store key holding the signed-in identity.
const Key = "user"

const (
	defaultTTL = 24 * time.Hour
	issuer     = "fresho"
)

var (
	// ErrInvalidCredentials is returned when login input is malformed or does
	// not match a known account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotLoggedIn is returned when no valid identity is stored.
	ErrNotLoggedIn = errors.New("not logged in")
)

// Credentials is the login form input.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Account is a known user with a bcrypt password hash.
type Account struct {
	Email        string
	PasswordHash []byte
}

// NewAccount hashes password with the given bcrypt cost.
func NewAccount(email, password string, cost int) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return Account{}, errors.Wrap(err, "hash password")
	}
	return Account{Email: normalizeEmail(email), PasswordHash: hash}, nil
}

// Identity is the signed-in user.
type Identity struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Gate verifies credentials and persists the resulting identity.
type Gate struct {
	store    Store
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	validate *validator.Validate

	mu       sync.RWMutex
	accounts map[string]Account
	onLogout []func(ctx context.Context)
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithTTL sets the token lifetime.
func WithTTL(ttl time.Duration) GateOption {
	return func(g *Gate) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for token issue and validation.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// WithAccounts registers accounts that may log in.
func WithAccounts(accounts ...Account) GateOption {
	return func(g *Gate) {
		for _, a := range accounts {
			g.accounts[normalizeEmail(a.Email)] = a
		}
	}
}

// NewGate returns a gate storing identities in store and signing tokens with
// secret.
func NewGate(store Store, secret string, opts ...GateOption) *Gate {
	g := &Gate{
		store:    store,
		secret:   []byte(secret),
		ttl:      defaultTTL,
		now:      time.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		accounts: make(map[string]Account),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// OnLogout registers fn to run after a successful logout.
func (g *Gate) OnLogout(fn func(ctx context.Context)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onLogout = append(g.onLogout, fn)
}

// Login verifies c and stores a signed identity.
func (g *Gate) Login(ctx context.Context, c Credentials) (Identity, error) {
	lg := zctx.From(ctx)

	c.Email = normalizeEmail(c.Email)
	if err := g.validate.Struct(c); err != nil {
		return Identity{}, errors.Wrapf(ErrInvalidCredentials, "validate: %s", err)
	}

	g.mu.RLock()
	acc, ok := g.accounts[c.Email]
	g.mu.RUnlock()
	if !ok {
		lg.Debug("Login for unknown account")
		return Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(c.Password)); err != nil {
		lg.Debug("Login with wrong password")
		return Identity{}, ErrInvalidCredentials
	}

	now := g.now().UTC()
	id := Identity{Email: c.Email, ExpiresAt: now.Add(g.ttl)}
	token, err := g.sign(id.Email, now, id.ExpiresAt)
	if err != nil {
		return Identity{}, errors.Wrap(err, "sign token")
	}
	id.Token = token

	if err := g.store.Set(ctx, Key, encodeIdentity(id), g.ttl); err != nil {
		return Identity{}, errors.Wrap(err, "store identity")
	}

	lg.Info("Logged in", zap.String("email", id.Email))
	return id, nil
}

// Identity returns the stored identity. It fails with ErrNotLoggedIn when
// nothing is stored or the token no longer verifies.
func (g *Gate) Identity(ctx context.Context) (Identity, error) {
	raw, ok, err := g.store.Get(ctx, Key)
	if err != nil {
		return Identity{}, errors.Wrap(err, "load identity")
	}
	if !ok {
		return Identity{}, ErrNotLoggedIn
	}

	id, err := decodeIdentity(raw)
	if err != nil {
		zctx.From(ctx).Warn("Discarding unreadable identity", zap.Error(err))
		return Identity{}, ErrNotLoggedIn
	}
	sub, exp, err := g.parse(id.Token)
	if err != nil || sub != id.Email {
		return Identity{}, ErrNotLoggedIn
	}
	id.ExpiresAt = exp
	return id, nil
}

// IsLoggedIn reports whether a valid identity is stored. Storage errors count
// as logged out.
func (g *Gate) IsLoggedIn(ctx context.Context) bool {
	_, err := g.Identity(ctx)
	return err == nil
}

// Logout removes the stored identity and runs logout hooks.
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.store.Delete(ctx, Key); err != nil {
		return errors.Wrap(err, "delete identity")
	}

	g.mu.RLock()
	hooks := g.onLogout
	g.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx)
	}

	zctx.From(ctx).Info("Logged out")
	return nil
}

type claims struct {
	jwt.RegisteredClaims
}

func (g *Gate) sign(email string, issuedAt, expiresAt time.Time) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	return t.SignedString(g.secret)
}

func (g *Gate) parse(token string) (string, time.Time, error) {
	c := &claims{}
	t, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return "", time.Time{}, err
	}
	if !t.Valid {
		return "", time.Time{}, errors.New("invalid token")
	}
	var exp time.Time
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	}
	return c.Subject, exp, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// encodeIdentity renders the stored record: {"email":..., "token":...}.
func encodeIdentity(id Identity) string {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("email")
	e.Str(id.Email)
	e.FieldStart("token")
	e.Str(id.Token)
	e.ObjEnd()
	return e.String()
}

func decodeIdentity(raw string) (Identity, error) {
	var id Identity
	d := jx.DecodeStr(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "email":
			v, err := d.Str()
			id.Email = v
			return err
		case "token":
			v, err := d.Str()
			id.Token = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return Identity{}, errors.Wrap(err, "decode identity")
	}
	if id.Email == "" {
		return Identity{}, errors.New("identity without email")
	}
	return id, nil
}
