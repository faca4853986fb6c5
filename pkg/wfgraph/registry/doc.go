// Package registry provides a generic thread-safe registry with a stable
// key order.
//
// The tool package builds its in-process tool catalogue on it, keyed by
// server and tool name:
//
//	r := registry.New[tool.Ref, tool.Func](tool.Ref.Compare)
//	r.Register(tool.Ref{Server: "search", Tool: "query"}, fn)
//	for ref, fn := range r.All() { ... }
//
// Iteration is over a snapshot in key order, so listings are stable.
package registry
