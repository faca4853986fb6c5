// Package httpcap defines the HTTP capability HTTP nodes call and a
// net/http implementation with rate limiting and retries.
//
// The engine depends only on Doer. A Doer returns every response it
// receives, whatever the status; deciding whether a non-2xx status fails
// the node is the node's job.
package httpcap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	fgerrors "github.com/randalmurphal/wfgraph/pkg/wfgraph/errors"
)

// DefaultMaxBodyBytes caps how much of a response body is read.
const DefaultMaxBodyBytes = 10 << 20

// Request is an outgoing HTTP request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is a received HTTP response.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Doer performs HTTP requests.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(ctx context.Context, req Request) (*Response, error)

// Do implements Doer.
func (f DoerFunc) Do(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Client is a Doer built on net/http.
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	retry    fgerrors.RetryConfig
	logger   *slog.Logger
	maxBody  int64
	defaults map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-attempt timeout of the underlying client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRateLimit limits requests to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithRetry sets the retry policy for transport failures and retryable
// statuses (408, 425, 429, 5xx).
func WithRetry(cfg fgerrors.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger logs retries at warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMaxBodyBytes caps how much of each response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// WithDefaultHeader sets a header sent on every request unless the request
// sets it itself.
func WithDefaultHeader(name, value string) Option {
	return func(c *Client) { c.defaults[name] = value }
}

// NewClient creates a Client. Defaults: 30s timeout, no rate limit,
// fgerrors.NoRetry.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		retry:    fgerrors.NoRetry,
		maxBody:  DefaultMaxBodyBytes,
		defaults: map[string]string{"User-Agent": "wfgraph"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do implements Doer. Transport errors are returned as errors; any
// response, including a non-2xx one that exhausted its retries, is
// returned with a nil error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	cfg := c.retry
	if c.logger != nil {
		cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
			c.logger.Warn("retrying http request",
				slog.String("method", method),
				slog.String("url", req.URL),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.String("error", err.Error()))
		}
	}

	var last *Response
	res := fgerrors.WithRetryContext(ctx, cfg, func(ctx context.Context) (*Response, error) {
		resp, err := c.once(ctx, method, req)
		if err != nil {
			return nil, err
		}
		last = resp
		if retryableStatus(resp.Status) {
			return resp, &fgerrors.HTTPError{StatusCode: resp.Status, Message: http.StatusText(resp.Status), Endpoint: req.URL}
		}
		return resp, nil
	})
	if res.Err != nil {
		var httpErr *fgerrors.HTTPError
		if errors.As(res.Err, &httpErr) && last != nil {
			return last, nil
		}
		return nil, res.Err
	}
	return res.Value, nil
}

func (c *Client) once(ctx context.Context, method string, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fgerrors.Permanent(err, "build request")
	}
	for k, v := range c.defaults {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxBody))
	if err != nil {
		return nil, fgerrors.Transient(err, "read response body")
	}

	headers := make(map[string]string, len(httpResp.Header))
	for k, vs := range httpResp.Header {
		headers[k] = strings.Join(vs, ", ")
	}
	return &Response{Status: httpResp.StatusCode, Headers: headers, Body: data}, nil
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}
