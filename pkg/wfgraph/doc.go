/*
Package wfgraph compiles and runs workflow graphs.

# Overview

A workflow is a directed acyclic graph of typed nodes: one Input, any
number of LLM, Tool, HTTP, Template and Condition nodes, at least one
Output, and Note nodes that only document the canvas. wfgraph validates
the graph, groups its nodes into topological stages, and runs each stage's
nodes concurrently, pruning the branches Condition nodes do not take. Every
run returns a RunResult with the final output and a complete, ordered
trace of node status transitions.

The engine owns no transport. LLM completions, tool calls and HTTP
requests go through capabilities carried by the run's Context, so callers
decide about retries, rate limits and timeouts.

# Basic Usage

Build a graph, compile it, and run it:

	g := wfgraph.NewGraph("greet").
	    AddNode("in", wfgraph.InputConfig{}).
	    AddNode("hello", wfgraph.TemplateConfig{Template: "Hello, {{name}}!"}).
	    AddNode("out", wfgraph.OutputConfig{}).
	    AddEdge("in", "hello").
	    AddEdge("hello", "out")

	compiled, err := wfgraph.Compile(g)
	if err != nil {
	    log.Fatal(err) // *wfgraph.GraphStructureError lists every problem
	}

	ctx := wfgraph.NewContext(context.Background())
	result, err := compiled.Run(ctx, map[string]any{"name": "Ada"})
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(result.Output) // "Hello, Ada!"

Graphs can also be loaded from JSON or YAML documents with ParseGraph and
LoadGraphFile. Each node carries its kind in "type" and its configuration
in "data"; Condition branches are chosen with the edge's "sourceHandle".

# Conditional Branching

A Condition node evaluates its branches in order against its inputs: the
if-branch (port "true"), any else-if branches, then the else-branch (port
"false"), which always matches. Clauses within a branch are ANDed, and a
clause whose field does not resolve is false.

	check := wfgraph.ConditionConfig{Branches: []condition.Branch{{
	    Clauses: []condition.Clause{{Field: "count", Operator: condition.GreaterThan, Value: 0}},
	}}}

	g.AddNode("check", check).
	    AddBranchEdge("check", condition.PortTrue, "lookup").
	    AddBranchEdge("check", condition.PortFalse, "fallback")

Edges leaving ports that were not selected are dead. A node whose incoming
edges are all dead is Skipped, and skipping propagates downstream.

# Joins

A node with several incoming edges waits for all of its predecessors. It
runs if at least one edge is live and receives only the live inputs; it is
Skipped if none are.

# Failures

A node failure fails the run with a *WorkflowExecutionError naming the
node, unless every consumer of the failed node is pruned by a Condition
branch that was not taken. Once a run is doomed no further stage starts,
but nodes already running finish and are recorded.

	result, err := compiled.Run(ctx, payload)
	var wfErr *wfgraph.WorkflowExecutionError
	if errors.As(err, &wfErr) {
	    log.Printf("failed at %s: %v", wfErr.FailingNodeID, wfErr.Err)
	}

Panics in nodes are recovered and converted to PanicError with stack trace.

# Cancellation

Cancelling the context passed to NewContext stops dispatch of new nodes.
In-flight nodes are not interrupted; the run waits for them, records them
and returns a result with status RunCancelled and a nil error.

# Observability

Enable logging, metrics, and tracing:

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	result, err := compiled.Run(ctx, payload,
	    wfgraph.WithObservabilityLogger(logger),
	    wfgraph.WithMetrics(true),
	    wfgraph.WithTracing(true))

Logs include structured fields: run_id, node_id, node_kind, duration_ms.
OpenTelemetry metrics: wfgraph.node.executions, wfgraph.run.latency_ms, etc.
OpenTelemetry tracing: wfgraph.run > wfgraph.node.{kind} spans.

WithObserver streams trace events as they are recorded.

# Thread Safety

  - Graph is NOT safe for concurrent use during construction
  - CompiledGraph IS safe for concurrent use (immutable)
  - Each Run owns its state; only the scheduler goroutine writes it
  - A RunResult and its Trace are immutable once Run returns

# Subpackages

  - condition: branch clauses, operators and selection
  - expr: value lookup, comparison and boolean expressions
  - template: {{field}} placeholder expansion
  - llm, tool, httpcap: external capabilities and their implementations
  - errors: error categories and retry policy for capabilities
  - runstore: storage for finished runs (memory, SQLite)
  - observability: Logging, metrics, and tracing helpers
  - config: settings loading from YAML, JSON and environment
*/
package wfgraph
