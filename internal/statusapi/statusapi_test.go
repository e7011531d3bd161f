package statusapi

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/fresho/internal/catalog"
	"github.com/xenking/fresho/internal/domain/cart"
	"github.com/xenking/fresho/internal/domain/fallback"
	"github.com/xenking/fresho/internal/domain/product"
	"github.com/xenking/fresho/pkg/health"
	"github.com/xenking/fresho/pkg/httpmiddleware"
)

func newTestHandler(t *testing.T) (http.Handler, *cart.Ledger) {
	t.Helper()

	ledger := cart.NewLedger()
	pager := catalog.NewPager(catalog.FetcherFunc(func(context.Context, catalog.PageRequest) (*catalog.Page, error) {
		return &catalog.Page{TotalPages: 1, Records: []product.Record{{ID: "p1", Name: "Tomato"}}}, nil
	}))
	require.NoError(t, pager.Load(context.Background(), catalog.Query{}))

	h := health.New()
	h.SetReady(true)
	return NewHandler(h, ledger, pager, httpmiddleware.RequestID(), httpmiddleware.Recovery()), ledger
}

func get(t *testing.T, h http.Handler, path string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_Probes(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, path := range []string{"/livez", "/readyz"} {
		w := get(t, h, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get(httpmiddleware.RequestIDHeader))
	}
}

func TestHandler_Cart(t *testing.T) {
	h, ledger := newTestHandler(t)
	ledger.Add(cart.Item{
		ProductID:       "p1",
		Name:            "Tomato",
		DiscountedPrice: decimal.RequireFromString("12.5"),
		Fallback:        fallback.Handle(6),
	}, 2)

	w := get(t, h, "/v1/cart")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"lines": [{
			"productId": "p1",
			"name": "Tomato",
			"quantity": 2,
			"unitPrice": "12.50",
			"subtotal": "25.00",
			"placeholder": "tomato"
		}],
		"totalItems": 2,
		"totalPrice": "25.00"
	}`, w.Body.String())
}

func TestHandler_CatalogGzip(t *testing.T) {
	h, _ := newTestHandler(t)

	w := get(t, h, "/v1/catalog", "Accept-Encoding", "br, gzip;q=0.8")

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"status": "success",
		"page": 1,
		"totalPages": 1,
		"totalRecords": 0,
		"hasMore": false,
		"products": [{
			"id": "p1",
			"name": "Tomato",
			"category": "",
			"originalPrice": "100.00",
			"discountedPrice": "80.00",
			"discountPercent": 50
		}]
	}`, string(raw))
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/cart", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
