package wfgraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph/httpcap"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/llm"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/observability"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/tool"
)

// Context provides execution context to a run and its node executors.
// It extends context.Context with the external capabilities nodes call and
// run metadata.
//
// Context is immutable after creation. The scheduler derives a context per
// node with NodeID set and an enriched logger.
type Context interface {
	context.Context

	// Services

	// Logger returns the configured logger, enriched with run and node context.
	// Never returns nil - defaults to slog.Default() if not configured.
	Logger() *slog.Logger

	// LLM returns the completion capability, or nil if not configured.
	LLM() llm.Client

	// Tools returns the tool-invocation capability, or nil if not configured.
	Tools() tool.Invoker

	// HTTP returns the HTTP capability, or nil if not configured.
	HTTP() httpcap.Doer

	// Metadata

	// RunID returns the unique identifier for this execution run.
	// Auto-generated if not configured.
	RunID() string

	// NodeID returns the current node being executed.
	// Empty string outside node execution.
	NodeID() string
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger *slog.Logger
	llm    llm.Client
	tools  tool.Invoker
	http   httpcap.Doer
	runID  string
	nodeID string
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// LLM returns the completion capability.
func (c *executionContext) LLM() llm.Client {
	return c.llm
}

// Tools returns the tool-invocation capability.
func (c *executionContext) Tools() tool.Invoker {
	return c.tools
}

// HTTP returns the HTTP capability.
func (c *executionContext) HTTP() httpcap.Doer {
	return c.http
}

// RunID returns the run identifier.
func (c *executionContext) RunID() string {
	return c.runID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger will be enriched with run_id, node_id and node_kind during
// execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLLM sets the completion capability used by LLM nodes.
func WithLLM(client llm.Client) ContextOption {
	return func(c *executionContext) {
		c.llm = client
	}
}

// WithTools sets the tool-invocation capability used by Tool nodes.
func WithTools(invoker tool.Invoker) ContextOption {
	return func(c *executionContext) {
		c.tools = invoker
	}
}

// WithHTTP sets the HTTP capability used by HTTP nodes.
func WithHTTP(doer httpcap.Doer) ContextOption {
	return func(c *executionContext) {
		c.http = doer
	}
}

// WithContextRunID sets the run identifier for the context.
// If not set, a UUID will be auto-generated.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext creates an execution context from a standard context.
// Cancelling ctx cancels the run: the scheduler stops dispatching new
// nodes, waits for in-flight ones and reports a Cancelled result.
//
// Example:
//
//	ctx := wfgraph.NewContext(context.Background(),
//	    wfgraph.WithLogger(myLogger),
//	    wfgraph.WithLLM(llm.NewRetryClient(llm.NewClaudeCLI())),
//	    wfgraph.WithContextRunID("run-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// contextOf returns ctx as an *executionContext, wrapping foreign
// implementations of Context.
func contextOf(ctx Context) *executionContext {
	if ec, ok := ctx.(*executionContext); ok {
		return ec
	}
	logger := ctx.Logger()
	if logger == nil {
		logger = slog.Default()
	}
	return &executionContext{
		Context: ctx,
		logger:  logger,
		llm:     ctx.LLM(),
		tools:   ctx.Tools(),
		http:    ctx.HTTP(),
		runID:   ctx.RunID(),
		nodeID:  ctx.NodeID(),
	}
}

// forNode returns a context for executing one node on top of base, which
// carries the run's span but not its cancellation.
func (c *executionContext) forNode(base context.Context, n Node) *executionContext {
	return &executionContext{
		Context: base,
		logger:  observability.EnrichLogger(c.logger, c.runID, n.ID, string(n.Kind)),
		llm:     c.llm,
		tools:   c.tools,
		http:    c.http,
		runID:   c.runID,
		nodeID:  n.ID,
	}
}
