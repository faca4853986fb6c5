package wfgraph

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func collectStages(g *Graph) [][]string {
	var stages [][]string
	for stage := range TopologicalStages(g) {
		stages = append(stages, stage)
	}
	return stages
}

func TestTopologicalStages(t *testing.T) {
	tests := []struct {
		name  string
		graph *Graph
		want  [][]string
	}{
		{
			name:  "linear",
			graph: linearGraph("x"),
			want:  [][]string{{"in"}, {"render"}, {"out"}},
		},
		{
			name:  "diamond",
			graph: triageGraph(),
			want:  [][]string{{"in"}, {"check"}, {"fallback", "lookup"}, {"out"}},
		},
		{
			name: "uneven depths",
			graph: NewGraph("g").
				AddNode("in", InputConfig{}).
				AddNode("a", TemplateConfig{}).
				AddNode("b", TemplateConfig{}).
				AddNode("out", OutputConfig{}).
				AddEdge("in", "a").
				AddEdge("a", "b").
				AddEdge("in", "out").
				AddEdge("b", "out"),
			want: [][]string{{"in"}, {"a"}, {"b"}, {"out"}},
		},
		{
			name: "notes and dangling edges ignored",
			graph: linearGraph("x").
				AddNode("memo", NoteConfig{}).
				AddEdge("memo", "render").
				AddEdge("render", "ghost"),
			want: [][]string{{"in"}, {"render"}, {"out"}},
		},
		{
			name: "cycle nodes never emitted",
			graph: linearGraph("x").
				AddNode("loop", TemplateConfig{}).
				AddEdge("render", "loop").
				AddEdge("loop", "render"),
			want: [][]string{{"in"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collectStages(tt.graph))
		})
	}
}

func TestTopologicalStages_Lazy(t *testing.T) {
	var seen [][]string
	for stage := range TopologicalStages(triageGraph()) {
		seen = append(seen, stage)
		if slices.Contains(stage, "check") {
			break
		}
	}
	assert.Equal(t, [][]string{{"in"}, {"check"}}, seen)
}

func TestTopologicalStages_Stable(t *testing.T) {
	g := triageGraph()
	first := collectStages(g)
	for range 10 {
		assert.Equal(t, first, collectStages(g))
	}
}

func TestTopologicalStages_ParallelEdges(t *testing.T) {
	// Two edges between the same nodes count twice in the in-degree and
	// are both released by the same stage.
	g := linearGraph("x").AddEdge("in", "render")
	assert.Equal(t, [][]string{{"in"}, {"render"}, {"out"}}, collectStages(g))
}
