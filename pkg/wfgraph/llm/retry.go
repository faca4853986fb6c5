package llm

import (
	"context"
	"log/slog"
	"time"

	fgerrors "github.com/randalmurphal/wfgraph/pkg/wfgraph/errors"
)

// RetryClient wraps a Client and retries transient failures with backoff.
type RetryClient struct {
	inner  Client
	cfg    fgerrors.RetryConfig
	logger *slog.Logger
}

// RetryOption configures a RetryClient.
type RetryOption func(*RetryClient)

// WithRetryConfig replaces the default retry policy.
func WithRetryConfig(cfg fgerrors.RetryConfig) RetryOption {
	return func(c *RetryClient) { c.cfg = cfg }
}

// WithRetryLogger logs each retry at warn level.
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(c *RetryClient) { c.logger = logger }
}

// NewRetryClient wraps inner with fgerrors.DefaultRetry unless configured
// otherwise.
func NewRetryClient(inner Client, opts ...RetryOption) *RetryClient {
	c := &RetryClient{inner: inner, cfg: fgerrors.DefaultRetry}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete implements Client.
func (c *RetryClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	cfg := c.cfg
	if c.logger != nil {
		userHook := cfg.OnRetry
		cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
			c.logger.Warn("retrying completion",
				slog.String("model", req.Model),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.String("error", err.Error()))
			if userHook != nil {
				userHook(attempt, err, wait)
			}
		}
	}

	res := fgerrors.WithRetryContext(ctx, cfg, func(ctx context.Context) (*CompletionResponse, error) {
		return c.inner.Complete(ctx, req)
	})
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Value, nil
}
