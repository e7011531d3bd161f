// Package statusapi serves a read-only HTTP view of the client state: probes,
// the cart and the loaded catalog.
package statusapi

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/fresho/internal/catalog"
	"github.com/xenking/fresho/internal/domain/cart"
	"github.com/xenking/fresho/internal/domain/product"
	"github.com/xenking/fresho/pkg/health"
	"github.com/xenking/fresho/pkg/httpmiddleware"
)

// CartSource provides the cart snapshot.
type CartSource interface {
	Snapshot() cart.Snapshot
}

// CatalogSource provides the catalog state.
type CatalogSource interface {
	State() catalog.State
}

// Handler serves the status routes.
type Handler struct {
	cart    CartSource
	catalog CatalogSource
}

// NewHandler returns the routes wrapped in the shared middleware chain.
func NewHandler(h *health.Health, c CartSource, cat CatalogSource, mws ...httpmiddleware.Middleware) http.Handler {
	s := &Handler{cart: c, catalog: cat}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", h.LiveEndpoint)
	mux.HandleFunc("GET /readyz", h.ReadyEndpoint)
	mux.HandleFunc("GET /v1/cart", s.getCart)
	mux.HandleFunc("GET /v1/catalog", s.getCatalog)

	return httpmiddleware.Wrap(mux, mws...)
}

func (s *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	snap := s.cart.Snapshot()

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range snap.Lines() {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unitPrice")
		encodeMoney(&e, l.DiscountedPrice)
		e.FieldStart("subtotal")
		encodeMoney(&e, l.Subtotal())
		if l.Image != "" {
			e.FieldStart("image")
			e.Str(l.Image)
		} else if l.Fallback.Valid() {
			e.FieldStart("placeholder")
			e.Str(l.Fallback.String())
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("totalItems")
	e.Int(snap.TotalItems())
	e.FieldStart("totalPrice")
	encodeMoney(&e, snap.TotalPrice())
	e.ObjEnd()

	writeJSON(w, r, e.Bytes())
}

func (s *Handler) getCatalog(w http.ResponseWriter, r *http.Request) {
	st := s.catalog.State()

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	e.Str(st.Status.String())
	if st.Err != "" {
		e.FieldStart("error")
		e.Str(st.Err)
	}
	e.FieldStart("page")
	e.Int(st.Page)
	e.FieldStart("totalPages")
	e.Int(st.TotalPages)
	e.FieldStart("totalRecords")
	e.Int(st.TotalRecords)
	e.FieldStart("hasMore")
	e.Bool(st.HasMore())
	e.FieldStart("products")
	e.ArrStart()
	for _, p := range st.Products {
		encodeProduct(&e, p)
	}
	e.ArrEnd()
	e.ObjEnd()

	writeJSON(w, r, e.Bytes())
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("category")
	e.Str(p.Category)
	if p.HasImage() {
		e.FieldStart("image")
		e.Str(p.Image)
	}
	e.FieldStart("originalPrice")
	encodeMoney(e, p.OriginalPrice)
	e.FieldStart("discountedPrice")
	encodeMoney(e, p.DiscountedPrice)
	e.FieldStart("discountPercent")
	e.Int(p.DiscountPercent)
	e.ObjEnd()
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}

// writeJSON gzips the body when the client accepts it.
func writeJSON(w http.ResponseWriter, r *http.Request, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Add("Vary", "Accept-Encoding")
	if !acceptsGzip(r) {
		_, _ = w.Write(body)
		return
	}
	w.Header().Set("Content-Encoding", "gzip")
	zw := pgzip.NewWriter(w)
	_, _ = zw.Write(body)
	_ = zw.Close()
}

func acceptsGzip(r *http.Request) bool {
	for _, v := range r.Header.Values("Accept-Encoding") {
		if containsToken(v, "gzip") {
			return true
		}
	}
	return false
}

func containsToken(header, token string) bool {
	for part := range strings.SplitSeq(header, ",") {
		name, _, _ := strings.Cut(part, ";")
		if strings.EqualFold(strings.TrimSpace(name), token) {
			return true
		}
	}
	return false
}
