// Package tool defines the tool-invocation capability Tool nodes call.
//
// A tool is addressed by a server and a tool name, mirroring how MCP
// servers expose tools. The engine only depends on Invoker; Registry is an
// in-process implementation for embedding Go functions as tools and for
// tests.
package tool

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph/registry"
)

// ErrUnknownTool is returned when no tool is registered under a server and
// tool name.
var ErrUnknownTool = errors.New("unknown tool")

// Invoker calls tools.
type Invoker interface {
	// Invoke calls tool on server with args and returns its structured result.
	Invoke(ctx context.Context, server, tool string, args map[string]any) (any, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, server, tool string, args map[string]any) (any, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, server, tool string, args map[string]any) (any, error) {
	return f(ctx, server, tool, args)
}

// Func is a tool implemented in Go.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Ref identifies a tool.
type Ref struct {
	Server string
	Tool   string
}

// String returns "server/tool".
func (r Ref) String() string {
	return r.Server + "/" + r.Tool
}

// Compare orders refs by server, then tool.
func (r Ref) Compare(other Ref) int {
	return cmp.Or(cmp.Compare(r.Server, other.Server), cmp.Compare(r.Tool, other.Tool))
}

// Registry is an Invoker backed by registered Go functions.
// It is safe for concurrent use.
type Registry struct {
	tools *registry.Registry[Ref, Func]
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: registry.New[Ref, Func](Ref.Compare)}
}

// Register adds or replaces the tool at server/name.
func (r *Registry) Register(server, name string, fn Func) *Registry {
	r.tools.Register(Ref{Server: server, Tool: name}, fn)
	return r
}

// Unregister removes a tool and reports whether it was registered.
func (r *Registry) Unregister(server, name string) bool {
	return r.tools.Delete(Ref{Server: server, Tool: name})
}

// Has reports whether a tool is registered at server/name.
func (r *Registry) Has(server, name string) bool {
	return r.tools.Has(Ref{Server: server, Tool: name})
}

// Invoke implements Invoker.
func (r *Registry) Invoke(ctx context.Context, server, name string, args map[string]any) (any, error) {
	ref := Ref{Server: server, Tool: name}
	fn, ok := r.tools.Get(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, ref)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fn(ctx, args)
}

// Tools lists registered tools ordered by server, then tool.
func (r *Registry) Tools() []Ref {
	return r.tools.Keys()
}
