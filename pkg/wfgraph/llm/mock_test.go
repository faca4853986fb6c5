package llm_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fgerrors "github.com/randalmurphal/wfgraph/pkg/wfgraph/errors"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/llm"
)

func TestMockClient_FixedResponse(t *testing.T) {
	mock := llm.NewMockClient("Hello, world!")

	resp, err := mock.Complete(context.Background(), llm.UserPrompt("m1", "Hi"))

	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "m1", resp.Model)
}

func TestMockClient_SequentialResponses(t *testing.T) {
	mock := llm.NewMockClient("").WithResponses("first", "second")

	for _, want := range []string{"first", "second", "first"} {
		resp, err := mock.Complete(context.Background(), llm.CompletionRequest{})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Content)
	}
}

func TestMockClient_WithError(t *testing.T) {
	expectedErr := errors.New("test error")
	mock := llm.NewMockClient("").WithError(expectedErr)

	_, err := mock.Complete(context.Background(), llm.CompletionRequest{})
	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 1, mock.CallCount())
}

func TestMockClient_CallTracking(t *testing.T) {
	mock := llm.NewMockClient("response")
	assert.Nil(t, mock.LastCall())

	_, _ = mock.Complete(context.Background(), llm.UserPrompt("", "First question"))
	_, _ = mock.Complete(context.Background(), llm.UserPrompt("", "Second question"))

	assert.Equal(t, 2, mock.CallCount())
	require.Len(t, mock.Calls, 2)
	assert.Equal(t, "First question", mock.Calls[0].Prompt())
	assert.Equal(t, "Second question", mock.LastCall().Prompt())

	mock.Reset()
	assert.Zero(t, mock.CallCount())
}

func TestMockClient_CustomCompleteFunc(t *testing.T) {
	mock := llm.NewMockClient("").WithCompleteFunc(func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "Echo: " + req.Prompt()}, nil
	})

	resp, err := mock.Complete(context.Background(), llm.UserPrompt("", "test"))
	require.NoError(t, err)
	assert.Equal(t, "Echo: test", resp.Content)
}

func TestMockClient_ContextCancellation(t *testing.T) {
	mock := llm.NewMockClient("response")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Complete(ctx, llm.CompletionRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockClient_TokenUsage(t *testing.T) {
	mock := llm.NewMockClient("some response text")

	resp, err := mock.Complete(context.Background(), llm.UserPrompt("", "count these words"))
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Usage.InputTokens)
	assert.Equal(t, 3, resp.Usage.OutputTokens)
	assert.Equal(t, 6, resp.Usage.TotalTokens)
}

func TestMockClient_Concurrent(t *testing.T) {
	mock := llm.NewMockClient("").WithResponses("a", "b", "c")
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mock.Complete(context.Background(), llm.CompletionRequest{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, mock.CallCount())
}

func TestRetryClient_RetriesTransient(t *testing.T) {
	calls := 0
	inner := llm.ClientFunc(func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		calls++
		if calls == 1 {
			return nil, &fgerrors.HTTPError{StatusCode: 529, Message: "overloaded"}
		}
		return &llm.CompletionResponse{Content: "ok"}, nil
	})

	retried := 0
	client := llm.NewRetryClient(inner, llm.WithRetryConfig(fgerrors.NewRetryConfig(
		fgerrors.WithInitialBackoff(time.Millisecond),
		fgerrors.WithJitter(0),
		fgerrors.WithOnRetry(func(int, error, time.Duration) { retried++ }),
	)))

	resp, err := client.Complete(context.Background(), llm.UserPrompt("m", "q"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, retried)
}

func TestRetryClient_PermanentFailsFast(t *testing.T) {
	calls := 0
	inner := llm.ClientFunc(func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		calls++
		return nil, &fgerrors.HTTPError{StatusCode: 401, Message: "bad key"}
	})

	_, err := llm.NewRetryClient(inner).Complete(context.Background(), llm.CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	var httpErr *fgerrors.HTTPError
	assert.ErrorAs(t, err, &httpErr)
}

func TestClaudeCLI_MissingBinary(t *testing.T) {
	client := llm.NewClaudeCLI(llm.WithClaudePath("/nonexistent/claude-binary"), llm.WithTimeout(time.Second))

	_, err := client.Complete(context.Background(), llm.UserPrompt("", "hi"))
	require.Error(t, err)
	assert.False(t, fgerrors.IsRetryable(err))
}
