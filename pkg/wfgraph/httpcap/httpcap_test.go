package httpcap_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fgerrors "github.com/randalmurphal/wfgraph/pkg/wfgraph/errors"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/httpcap"
)

func fastRetry(n int) fgerrors.RetryConfig {
	return fgerrors.NewRetryConfig(
		fgerrors.WithMaxAttempts(n),
		fgerrors.WithInitialBackoff(time.Millisecond),
		fgerrors.WithJitter(0),
	)
}

func TestClient_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		assert.Equal(t, "wfgraph", r.Header.Get("User-Agent"))
		assert.Equal(t, `{"q":1}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := httpcap.NewClient()
	resp, err := c.Do(context.Background(), httpcap.Request{
		Method:  "post",
		URL:     srv.URL,
		Headers: map[string]string{"X-Token": "secret"},
		Body:    []byte(`{"q":1}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.True(t, resp.OK())
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
}

func TestClient_Non2xxIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := httpcap.NewClient().Do(context.Background(), httpcap.Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.False(t, resp.OK())
}

func TestClient_RetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("done"))
	}))
	defer srv.Close()

	resp, err := httpcap.NewClient(httpcap.WithRetry(fastRetry(3))).Do(context.Background(), httpcap.Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "done", string(resp.Body))
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_ExhaustedRetriesReturnLastResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	resp, err := httpcap.NewClient(httpcap.WithRetry(fastRetry(2))).Do(context.Background(), httpcap.Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := httpcap.NewClient().Do(context.Background(), httpcap.Request{URL: url})
	assert.Error(t, err)
}

func TestClient_InvalidURL(t *testing.T) {
	_, err := httpcap.NewClient().Do(context.Background(), httpcap.Request{Method: "GET", URL: "://bad"})
	require.Error(t, err)
	assert.False(t, fgerrors.IsRetryable(err))
}

func TestClient_MaxBodyBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	resp, err := httpcap.NewClient(httpcap.WithMaxBodyBytes(4)).Do(context.Background(), httpcap.Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "0123", string(resp.Body))
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	c := httpcap.NewClient(httpcap.WithRateLimit(0.001, 1))
	_, err := c.Do(context.Background(), httpcap.Request{URL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Do(ctx, httpcap.Request{URL: srv.URL})
	assert.Error(t, err)
}
