// Package upstream is the network boundary to the agricultural accounting
// API. Every call has a timeout, every failure is normalized into an
// *apperr.Error at this boundary, and mutations carry their idempotency token
// in the Idempotency-Key header rather than in the JSON body.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/agritrade-gateway/internal/apperr"
)

// HeaderIdempotencyKey carries the guard token upstream.
const HeaderIdempotencyKey = "Idempotency-Key"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	// BaseURL of the accounting API, e.g. http://backend:8000/api.
	BaseURL string
	// Timeout applies to every call except Ping. Default 10s.
	Timeout time.Duration
	// PingTimeout applies to Ping. Default 2s.
	PingTimeout time.Duration
	// WeatherURL is the weather provider endpoint; empty disables Weather.
	WeatherURL string
	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client
	// UserAgent is sent on every request.
	UserAgent string
}

// Client talks JSON to the upstream API. It is safe for concurrent use.
type Client struct {
	base        *url.URL
	http        *http.Client
	timeout     time.Duration
	pingTimeout time.Duration
	weatherURL  string
	userAgent   string
	tracer      trace.Tracer
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("upstream: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("upstream: base url %q must be absolute http(s)", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 2 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "agritrade-gateway"
	}
	return &Client{
		base:        u,
		http:        opts.HTTPClient,
		timeout:     opts.Timeout,
		pingTimeout: opts.PingTimeout,
		weatherURL:  strings.TrimSpace(opts.WeatherURL),
		userAgent:   opts.UserAgent,
		tracer:      otel.Tracer("github.com/tbourn/agritrade-gateway/internal/upstream"),
	}, nil
}

// request describes one upstream call.
type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	key     string
	timeout time.Duration
	// absolute overrides base+path (third-party endpoints).
	absolute string
}

// do performs r and decodes a 2xx JSON body into out (when out != nil).
// Non-2xx responses and transport failures come back as *apperr.Error.
func (c *Client) do(ctx context.Context, r request, out any) error {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := r.absolute
	if target == "" {
		u := *c.base
		u.Path = c.base.Path + r.path
		if len(r.query) > 0 {
			u.RawQuery = r.query.Encode()
		}
		target = u.String()
	} else if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	ctx, span := c.tracer.Start(ctx, r.method+" "+spanPath(r),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", r.method),
			attribute.String("url.path", r.path),
		),
	)
	defer span.End()

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return apperr.Wrap(apperr.KindUnexpected, "encode request body", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return apperr.Wrap(apperr.KindUnexpected, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.key != "" {
		req.Header.Set(HeaderIdempotencyKey, r.key)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return NormalizeTransport(err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		span.SetStatus(codes.Error, resp.Status)
		return NormalizeResponse(resp.StatusCode, raw)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if raw, ok := out.(*json.RawMessage); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return NormalizeTransport(err)
		}
		if len(bytes.TrimSpace(b)) == 0 {
			b = []byte("null")
		}
		*raw = json.RawMessage(b)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return NormalizeTransport(err)
		}
		return apperr.Wrap(apperr.KindUnexpected, "decode upstream response", err)
	}
	return nil
}

func spanPath(r request) string {
	if r.absolute != "" {
		if u, err := url.Parse(r.absolute); err == nil {
			return u.Host + u.Path
		}
	}
	return r.path
}

// Ping checks upstream liveness with the short ping timeout.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodGet, path: "/health", timeout: c.pingTimeout}, nil)
}
