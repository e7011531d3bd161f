// Package catalogapi implements catalog.Fetcher over the product service HTTP
// API.
package catalogapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/klauspost/pgzip"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/fresho/internal/catalog"
	"github.com/xenking/fresho/pkg/httpmiddleware"
)

const (
	instrumentationName = "github.com/xenking/fresho/internal/catalogapi"
	productsPath        = "/products"
	maxErrorBody        = 4 << 10
)

// StatusError is returned when the service answers with a non-success status,
// either on the HTTP layer or inside the response envelope.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog api: status %d", e.Code)
	}
	return fmt.Sprintf("catalog api: status %d: %s", e.Code, e.Message)
}

// Client fetches catalog pages.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer

	fetches  metric.Int64Counter
	duration metric.Float64Histogram
}

var _ catalog.Fetcher = (*Client)(nil)

type options struct {
	http *http.Client
	tp   trace.TracerProvider
	mp   metric.MeterProvider
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets the base HTTP client. Its transport is wrapped with
// tracing and request ID propagation.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.http = c }
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

// New returns a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	o := options{
		http: &http.Client{Timeout: 15 * time.Second},
		tp:   otel.GetTracerProvider(),
		mp:   otel.GetMeterProvider(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	if baseURL == "" {
		return nil, errors.New("catalog api base URL is required")
	}

	base := o.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := *o.http
	hc.Transport = otelhttp.NewTransport(
		httpmiddleware.RequestIDTransport(base),
		otelhttp.WithTracerProvider(o.tp),
		otelhttp.WithMeterProvider(o.mp),
	)

	meter := o.mp.Meter(instrumentationName)
	fetches, err := meter.Int64Counter("catalogapi.fetch.count",
		metric.WithDescription("Catalog page fetches by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create fetch counter")
	}
	duration, err := meter.Float64Histogram("catalogapi.fetch.duration",
		metric.WithDescription("Catalog page fetch duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create fetch histogram")
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &hc,
		tracer:   o.tp.Tracer(instrumentationName),
		fetches:  fetches,
		duration: duration,
	}, nil
}

// FetchProductPage implements catalog.Fetcher.
func (c *Client) FetchProductPage(ctx context.Context, req catalog.PageRequest) (_ *catalog.Page, rerr error) {
	ctx, span := c.tracer.Start(ctx, "catalogapi.FetchProductPage",
		trace.WithAttributes(
			attribute.Int("catalog.page", req.Page),
			attribute.Int("catalog.page_size", req.PageSize),
		),
	)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if rerr != nil {
			outcome = "error"
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		attrs := metric.WithAttributes(attribute.String("outcome", outcome))
		c.fetches.Add(ctx, 1, attrs)
		c.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		span.End()
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+productsPath, bytes.NewReader(encodeRequest(req)))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := decodedBody(resp)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	page, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Debug("Fetched catalog page",
		zap.Int("page", page.CurrentPage),
		zap.Int("records", len(page.Records)),
		zap.Int("total_pages", page.TotalPages),
	)
	return page, nil
}

// Ping checks that the service answers. Any HTTP response counts as
// reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+productsPath, http.NoBody)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "ping catalog api")
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

// decodedBody returns the response body, transparently inflating gzip.
func decodedBody(resp *http.Response) (io.ReadCloser, error) {
	if !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return nopCloser{resp.Body}, nil
	}
	zr, err := pgzip.NewReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "open gzip body")
	}
	return zr, nil
}

func pageString(n int) string {
	return strconv.Itoa(n)
}
