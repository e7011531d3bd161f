package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/fresho/internal/catalog"
	"github.com/xenking/fresho/internal/domain/cart"
	"github.com/xenking/fresho/internal/domain/product"
	"github.com/xenking/fresho/internal/scan"
	"github.com/xenking/fresho/internal/session"
	"github.com/xenking/fresho/internal/shop"
	"github.com/xenking/fresho/internal/ui"
)

func newConsole(t *testing.T) (*Console, *bytes.Buffer) {
	t.Helper()

	acc, err := session.NewAccount("test@gmail.com", "Test@123", bcrypt.MinCost)
	require.NoError(t, err)

	orig := decimal.NewFromInt(40)
	disc := decimal.NewFromInt(30)
	idx := scan.NewIndex()
	pager := catalog.NewPager(catalog.FetcherFunc(func(_ context.Context, req catalog.PageRequest) (*catalog.Page, error) {
		return &catalog.Page{
			TotalPages:  1,
			CurrentPage: req.Page,
			Records: []product.Record{{
				ID:              "tomato",
				Name:            "Tomato",
				Category:        "Vegetables",
				OriginalPrice:   &orig,
				DiscountedPrice: &disc,
				Variants:        []product.Variant{{ID: "v1", InventorySyncCode: "4006381333931"}},
			}},
		}, nil
	}), catalog.WithObserver(func(s catalog.State) { idx.Rebuild(s.Products) }))

	var out bytes.Buffer
	c := New(&out)
	c.Attach(shop.New(shop.Deps{
		Session:   session.NewGate(session.NewMemoryStore(), "secret", session.WithAccounts(acc)),
		Pager:     pager,
		Ledger:    cart.NewLedger(),
		Scanner:   scan.NewScanner(scan.NewResolver(idx)),
		Notifier:  c,
		Navigator: c,
	}))
	return c, &out
}

func exec(t *testing.T, c *Console, lines ...string) {
	t.Helper()
	for _, l := range lines {
		require.NoError(t, c.Execute(context.Background(), l), l)
	}
}

func TestConsole_ShoppingFlow(t *testing.T) {
	c, out := newConsole(t)

	exec(t, c,
		"login test@gmail.com Test@123",
		"load",
		"open tomato",
		"inc",
		"inc",
		"add",
	)
	assert.Equal(t, ui.ScreenCart, c.Screen())

	exec(t, c, "cart")
	text := out.String()
	assert.Contains(t, text, "-> ProductList")
	assert.Contains(t, text, "Tomato")
	assert.Contains(t, text, "placeholder:")
	assert.Contains(t, text, "quantity 2, total ₹60.00")
	assert.Contains(t, text, "[success] Added to Cart!: 2 Tomato added to cart")
	assert.Contains(t, text, "2 items, total ₹60.00")

	out.Reset()
	exec(t, c, "checkout")
	assert.Contains(t, out.String(), "Order placed successfully!: Total: ₹60.00")
	assert.Equal(t, ui.ScreenProductList, c.Screen())
}

func TestConsole_Scan(t *testing.T) {
	c, out := newConsole(t)
	exec(t, c, "login test@gmail.com Test@123", "load")

	exec(t, c, "scan 4006381333931")

	assert.Equal(t, ui.ScreenProductDetails, c.Screen())
	assert.Contains(t, out.String(), "Tomato (tomato)")

	out.Reset()
	exec(t, c, "scan 123")
	assert.Contains(t, out.String(), "Scanned item 123")
	assert.Contains(t, out.String(), "not in the catalog")
}

func TestConsole_Errors(t *testing.T) {
	c, _ := newConsole(t)
	ctx := context.Background()

	err := c.Execute(ctx, "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")

	err = c.Execute(ctx, "login only-email")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: login")

	assert.ErrorIs(t, c.Execute(ctx, "load"), shop.ErrNotLoggedIn)
	assert.Error(t, c.Execute(ctx, "inc"))
	assert.ErrorIs(t, c.Execute(ctx, "quit"), ErrQuit)
	assert.NoError(t, c.Execute(ctx, "   "))
}

func TestConsole_CartEditing(t *testing.T) {
	c, out := newConsole(t)
	exec(t, c,
		"login test@gmail.com Test@123",
		"load",
		"open tomato",
		"inc",
		"add",
		"qty tomato 4",
	)
	assert.Contains(t, out.String(), "4 items, total ₹120.00")

	out.Reset()
	exec(t, c, "qty tomato 0")
	assert.Contains(t, out.String(), "cart is empty")

	out.Reset()
	exec(t, c, "checkout")
	assert.Contains(t, out.String(), "[error] Empty Cart")
}

func TestConsole_Run(t *testing.T) {
	c, out := newConsole(t)
	in := strings.NewReader("help\nbogus\nlogin test@gmail.com Test@123\nquit\nload\n")

	require.NoError(t, c.Run(context.Background(), in))

	text := out.String()
	assert.Contains(t, text, "checkout")
	assert.Contains(t, text, "error: unknown command")
	assert.NotContains(t, text, "products, page", "commands after quit are not run")
}
