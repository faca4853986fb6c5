package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return NewRetryConfig(
		WithMaxAttempts(attempts),
		WithInitialBackoff(time.Millisecond),
		WithMaxBackoff(2*time.Millisecond),
		WithJitter(0),
	)
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "transient", CategoryTransient.String())
	assert.Equal(t, "permanent", CategoryPermanent.String())
	assert.Equal(t, "invalid_output", CategoryInvalidOutput.String())
	assert.Equal(t, "unknown", Category(99).String())
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryPermanent},
		{"plain", errors.New("boom"), CategoryPermanent},
		{"explicit transient", Transient(errors.New("x"), "op"), CategoryTransient},
		{"explicit permanent wrapped", fmt.Errorf("wrap: %w", Permanent(errors.New("x"), "op")), CategoryPermanent},
		{"rate limited", &HTTPError{StatusCode: 429}, CategoryTransient},
		{"server error", &HTTPError{StatusCode: 502}, CategoryTransient},
		{"request timeout", &HTTPError{StatusCode: 408}, CategoryTransient},
		{"not found", &HTTPError{StatusCode: 404}, CategoryPermanent},
		{"unauthorized", &HTTPError{StatusCode: 401}, CategoryPermanent},
		{"bad json", &JSONParseError{Message: "eof"}, CategoryInvalidOutput},
		{"timeout", &TimeoutError{Operation: "complete", Duration: time.Second}, CategoryTransient},
		{"tool retryable", &ToolError{Server: "s", Tool: "t", Retryable: true}, CategoryTransient},
		{"tool permanent", &ToolError{Server: "s", Tool: "t"}, CategoryPermanent},
		{"deadline", context.DeadlineExceeded, CategoryTransient},
		{"canceled", fmt.Errorf("call: %w", context.Canceled), CategoryPermanent},
		{"net op", &net.OpError{Op: "dial", Err: errors.New("refused")}, CategoryTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.err))
		})
	}

	assert.True(t, IsRetryable(&HTTPError{StatusCode: 503}))
	assert.True(t, IsInvalidOutput(&JSONParseError{}))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "HTTP 404 at /x: missing", (&HTTPError{StatusCode: 404, Message: "missing", Endpoint: "/x"}).Error())
	assert.Equal(t, "HTTP 500: oops", (&HTTPError{StatusCode: 500, Message: "oops"}).Error())
	assert.Equal(t, "JSON parse error: eof", (&JSONParseError{Message: "eof"}).Error())
	assert.Equal(t, "timeout after 2s: complete", (&TimeoutError{Operation: "complete", Duration: 2 * time.Second}).Error())
	assert.Equal(t, "tool search/query: denied", (&ToolError{Server: "search", Tool: "query", Message: "denied"}).Error())

	err := &CategorizedError{Err: errors.New("x"), Category: CategoryTransient, Retries: 2, Context: "op"}
	assert.Equal(t, "op: x (category: transient, attempts: 2)", err.Error())
}

func TestWithRetryContext_SucceedsAfterTransient(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }

	res := WithRetryContext(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &HTTPError{StatusCode: 503}
		}
		return "ok", nil
	})

	require.NoError(t, res.Err)
	assert.Equal(t, "ok", res.Value)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestWithRetryContext_StopsOnPermanent(t *testing.T) {
	calls := 0
	cause := &HTTPError{StatusCode: 400}
	res := WithRetryContext(context.Background(), fastRetry(5), func(context.Context) (int, error) {
		calls++
		return 0, cause
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, res.Attempts)
	var httpErr *HTTPError
	require.ErrorAs(t, res.Err, &httpErr)
	assert.Equal(t, 400, httpErr.StatusCode)
	var catErr *CategorizedError
	require.ErrorAs(t, res.Err, &catErr)
	assert.Equal(t, CategoryPermanent, catErr.Category)
}

func TestWithRetryContext_Exhausted(t *testing.T) {
	res := WithRetryContext(context.Background(), fastRetry(2), func(context.Context) (int, error) {
		return 0, &TimeoutError{Operation: "call"}
	})

	assert.Equal(t, 2, res.Attempts)
	assert.Contains(t, res.Err.Error(), "max retries exceeded")
	assert.True(t, IsRetryable(res.Err))
}

func TestWithRetryContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	res := WithRetryContext(ctx, fastRetry(3), func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	assert.Zero(t, calls)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestWithRetryContext_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	res := WithRetryContext(context.Background(), RetryConfig{}, func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, res.Err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 7, res.Value)
}

func TestWithRetryContext_CustomRetryable(t *testing.T) {
	calls := 0
	cfg := fastRetry(3)
	cfg.RetryableFunc = IsInvalidOutput
	res := WithRetryContext(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, &JSONParseError{Message: "bad"}
	})
	assert.Equal(t, 3, calls)
	assert.Error(t, res.Err)
}
