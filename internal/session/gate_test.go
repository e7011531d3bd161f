package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type brokenStore struct {
	err error
}

func (b brokenStore) Get(context.Context, string) (string, bool, error) { return "", false, b.err }
func (b brokenStore) Set(context.Context, string, string, time.Duration) error {
	return b.err
}
func (b brokenStore) Delete(context.Context, string) error { return b.err }

func demoAccount(t *testing.T) Account {
	t.Helper()
	acc, err := NewAccount("test@gmail.com", "Test@123", bcrypt.MinCost)
	require.NoError(t, err)
	return acc
}

func newTestGate(t *testing.T, opts ...GateOption) (*Gate, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	opts = append([]GateOption{WithAccounts(demoAccount(t))}, opts...)
	return NewGate(store, testSecret, opts...), store
}

func TestGate_LoginStoresIdentity(t *testing.T) {
	g, store := newTestGate(t)
	ctx := context.Background()

	assert.False(t, g.IsLoggedIn(ctx))

	id, err := g.Login(ctx, Credentials{Email: " Test@Gmail.com ", Password: "Test@123"})
	require.NoError(t, err)
	assert.Equal(t, "test@gmail.com", id.Email)
	assert.NotEmpty(t, id.Token)

	raw, ok, err := store.Get(ctx, Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"email":"test@gmail.com"`)

	assert.True(t, g.IsLoggedIn(ctx))
	got, err := g.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, id.Email, got.Email)
}

func TestGate_LoginRejects(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{name: "wrong password", creds: Credentials{Email: "test@gmail.com", Password: "nope"}},
		{name: "unknown account", creds: Credentials{Email: "other@gmail.com", Password: "Test@123"}},
		{name: "malformed email", creds: Credentials{Email: "not-an-email", Password: "Test@123"}},
		{name: "empty password", creds: Credentials{Email: "test@gmail.com"}},
		{name: "empty form", creds: Credentials{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGate(t)
			ctx := context.Background()

			_, err := g.Login(ctx, tt.creds)

			require.ErrorIs(t, err, ErrInvalidCredentials)
			assert.False(t, g.IsLoggedIn(ctx))
		})
	}
}

func TestGate_LogoutRunsHooks(t *testing.T) {
	g, _ := newTestGate(t)
	ctx := context.Background()

	var called int
	g.OnLogout(func(context.Context) { called++ })

	_, err := g.Login(ctx, Credentials{Email: "test@gmail.com", Password: "Test@123"})
	require.NoError(t, err)

	require.NoError(t, g.Logout(ctx))

	assert.Equal(t, 1, called)
	assert.False(t, g.IsLoggedIn(ctx))
	_, err = g.Identity(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestGate_ExpiredTokenIsLoggedOut(t *testing.T) {
	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = c.Now
	g := NewGate(store, testSecret,
		WithAccounts(demoAccount(t)),
		WithClock(c.Now),
		WithTTL(time.Hour),
	)
	ctx := context.Background()

	_, err := g.Login(ctx, Credentials{Email: "test@gmail.com", Password: "Test@123"})
	require.NoError(t, err)
	assert.True(t, g.IsLoggedIn(ctx))

	c.Advance(2 * time.Hour)

	assert.False(t, g.IsLoggedIn(ctx))
}

func TestGate_ForeignTokenRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	other := NewGate(store, "other-secret", WithAccounts(demoAccount(t)))
	_, err := other.Login(ctx, Credentials{Email: "test@gmail.com", Password: "Test@123"})
	require.NoError(t, err)

	g := NewGate(store, testSecret)
	assert.False(t, g.IsLoggedIn(ctx))
}

func TestGate_GarbageRecordRejected(t *testing.T) {
	g, store := newTestGate(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, Key, "{not json", 0))

	_, err := g.Identity(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestGate_StoreErrors(t *testing.T) {
	storeErr := errors.New("connection refused")
	g := NewGate(brokenStore{err: storeErr}, testSecret, WithAccounts(demoAccount(t)))
	ctx := context.Background()

	_, err := g.Login(ctx, Credentials{Email: "test@gmail.com", Password: "Test@123"})
	require.ErrorIs(t, err, storeErr)

	assert.False(t, g.IsLoggedIn(ctx))
	require.ErrorIs(t, g.Logout(ctx), storeErr)
}

func TestMemoryStore_TTL(t *testing.T) {
	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = c.Now
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, s.Set(ctx, "forever", "v", 0))

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	c.Advance(time.Minute)

	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Get(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, ok)
}
