package benchmarks

import (
	"context"
	"testing"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph"
)

var payload = map[string]any{"value": 42}

// BenchmarkRun_Linear_5 runs a 5-node linear graph.
func BenchmarkRun_Linear_5(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(5))
	ctx := wfgraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, payload)
	}
}

// BenchmarkRun_Linear_50 runs a 50-node linear graph.
func BenchmarkRun_Linear_50(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(50))
	ctx := wfgraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, payload)
	}
}

// BenchmarkRun_Wide_50 runs 50 nodes in a single stage.
func BenchmarkRun_Wide_50(b *testing.B) {
	compiled := mustCompile(buildWideGraph(50))
	ctx := wfgraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, payload)
	}
}

// BenchmarkRun_Wide_50_Limited runs 50 nodes four at a time.
func BenchmarkRun_Wide_50_Limited(b *testing.B) {
	compiled := mustCompile(buildWideGraph(50))
	ctx := wfgraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, payload, wfgraph.WithMaxConcurrency(4))
	}
}

// BenchmarkRun_Branching runs a graph with a condition node.
func BenchmarkRun_Branching(b *testing.B) {
	compiled := mustCompile(buildBranchingGraph())
	ctx := wfgraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, payload)
	}
}

// BenchmarkContextCreation measures context creation overhead.
func BenchmarkContextCreation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		wfgraph.NewContext(context.Background())
	}
}

func mustCompile(g *wfgraph.Graph) *wfgraph.CompiledGraph {
	compiled, err := wfgraph.Compile(g)
	if err != nil {
		panic(err)
	}
	return compiled
}
