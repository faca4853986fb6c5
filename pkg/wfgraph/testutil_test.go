package wfgraph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph/condition"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/tool"
)

var errToolDown = errors.New("tool down")

// countBranches is the condition "count > 0".
var countBranches = []condition.Branch{{
	Clauses: []condition.Clause{{Field: "count", Operator: condition.GreaterThan, Value: 0}},
}}

// triageGraph builds
//
//	in -> check -(true)-> lookup -> out
//	            -(false)-> fallback -> out
func triageGraph() *Graph {
	return NewGraph("triage").
		AddNode("in", InputConfig{}).
		AddNode("check", ConditionConfig{Branches: countBranches}).
		AddNode("lookup", ToolConfig{Server: "crm", Tool: "lookup"}).
		AddNode("fallback", TemplateConfig{Template: "nothing to look up for {{count}}"}).
		AddNode("out", OutputConfig{}).
		AddEdge("in", "check").
		AddBranchEdge("check", condition.PortTrue, "lookup").
		AddBranchEdge("check", condition.PortFalse, "fallback").
		AddEdge("lookup", "out").
		AddEdge("fallback", "out")
}

// linearGraph builds in -> render -> out.
func linearGraph(tmpl string) *Graph {
	return NewGraph("linear").
		AddNode("in", InputConfig{}).
		AddNode("render", TemplateConfig{Template: tmpl}).
		AddNode("out", OutputConfig{}).
		AddEdge("in", "render").
		AddEdge("render", "out")
}

// toolRecorder is a tool registry that records the arguments of each call.
type toolRecorder struct {
	*tool.Registry

	mu    sync.Mutex
	calls map[string][]map[string]any
}

func newToolRecorder() *toolRecorder {
	return &toolRecorder{Registry: tool.NewRegistry(), calls: make(map[string][]map[string]any)}
}

// register adds server/name returning result, or failing with err.
func (r *toolRecorder) register(server, name string, result any, err error) *toolRecorder {
	ref := tool.Ref{Server: server, Tool: name}.String()
	r.Register(server, name, func(_ context.Context, args map[string]any) (any, error) {
		r.mu.Lock()
		r.calls[ref] = append(r.calls[ref], args)
		r.mu.Unlock()
		return result, err
	})
	return r
}

func (r *toolRecorder) callCount(ref string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls[ref])
}

func (r *toolRecorder) lastArgs(ref string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := r.calls[ref]
	if len(calls) == 0 {
		return nil
	}
	return calls[len(calls)-1]
}

// testCtx creates a simple test context.
func testCtx(opts ...ContextOption) Context {
	return NewContext(context.Background(), opts...)
}

// mustCompile compiles g or fails the test.
func mustCompile(t *testing.T, g *Graph) *CompiledGraph {
	t.Helper()
	cg, err := Compile(g)
	require.NoError(t, err)
	return cg
}

// structureError asserts err is a *GraphStructureError and returns it.
func structureError(t *testing.T, err error) *GraphStructureError {
	t.Helper()
	require.Error(t, err)
	var gse *GraphStructureError
	require.ErrorAs(t, err, &gse)
	return gse
}
