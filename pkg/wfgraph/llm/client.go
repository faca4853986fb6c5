// Package llm defines the completion capability LLM nodes call, plus a
// Claude CLI transport, a retrying wrapper and a mock for tests.
//
// The workflow engine only depends on the Client interface. Retry policy
// belongs to the client: wrap a transport in RetryClient to retry transient
// failures; the engine itself never retries.
package llm

import "context"

// Client performs completions.
type Client interface {
	// Complete sends req and returns the model's answer.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

// Complete implements Client.
func (f ClientFunc) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}
