package wfgraph

import (
	"iter"
	"slices"
)

// TopologicalStages returns the functional nodes of g grouped into stages:
// every node's predecessors are all in earlier stages, so the nodes of one
// stage may run concurrently.
//
// The sequence is lazy; each stage is computed when the previous one has
// been consumed. It is stable for a given graph. Nodes are sorted by id
// within a stage for reproducible output, but callers must treat a stage
// as unordered.
//
// Note nodes, edges touching them and edges with unknown endpoints are
// ignored. Nodes on a cycle are never emitted, so on a graph that fails
// Validate the stages may not cover every node.
func TopologicalStages(g *Graph) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		functional := make(map[string]bool, len(g.Nodes))
		indegree := make(map[string]int, len(g.Nodes))
		for _, n := range g.Nodes {
			if n.ID != "" && n.Kind.Functional() {
				functional[n.ID] = true
				indegree[n.ID] = 0
			}
		}

		successors := make(map[string][]string)
		for _, e := range g.Edges {
			if !functional[e.Source] || !functional[e.Target] {
				continue
			}
			successors[e.Source] = append(successors[e.Source], e.Target)
			indegree[e.Target]++
		}

		var stage []string
		for id, d := range indegree {
			if d == 0 {
				stage = append(stage, id)
			}
		}

		for len(stage) > 0 {
			slices.Sort(stage)
			if !yield(slices.Clone(stage)) {
				return
			}

			var next []string
			for _, id := range stage {
				for _, succ := range successors[id] {
					indegree[succ]--
					if indegree[succ] == 0 {
						next = append(next, succ)
					}
				}
			}
			stage = next
		}
	}
}
