package wfgraph

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph/condition"
)

// Compile validates g and creates an executable CompiledGraph.
// Returns a *GraphStructureError listing every violation if validation
// fails.
//
// The compiled graph works on a snapshot: later changes to g do not
// affect it. Stages are computed once here and reused by every run.
//
// Nodes with no path to an Output node are logged as warnings but do not
// cause compilation to fail.
func Compile(g *Graph) (*CompiledGraph, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrGraphStructure)
	}
	if err := Validate(g); err != nil {
		return nil, err
	}

	snapshot := g.clone()
	cg := &CompiledGraph{
		graph:    snapshot,
		nodes:    make(map[string]Node, len(snapshot.Nodes)),
		incoming: make(map[string][]Edge),
		outgoing: make(map[string][]Edge),
	}

	for i, n := range snapshot.Nodes {
		n.Config = configOf(n)
		snapshot.Nodes[i] = n
		cg.nodes[n.ID] = n
	}

	for _, e := range snapshot.Edges {
		src, dst := cg.nodes[e.Source], cg.nodes[e.Target]
		if !src.Kind.Functional() || !dst.Kind.Functional() {
			continue
		}
		if src.Kind == KindCondition {
			e.SourcePort = condition.CanonicalPort(e.SourcePort)
		}
		cg.outgoing[e.Source] = append(cg.outgoing[e.Source], e)
		cg.incoming[e.Target] = append(cg.incoming[e.Target], e)
	}

	for stage := range TopologicalStages(snapshot) {
		cg.stages = append(cg.stages, stage)
		for _, id := range stage {
			cg.order = append(cg.order, id)
			switch cg.nodes[id].Kind {
			case KindInput:
				cg.input = id
			case KindOutput:
				cg.outputs = append(cg.outputs, id)
			}
		}
	}

	cg.indexBranches()
	cg.warnDeadEnds()
	return cg, nil
}

// indexBranches records, for every Condition node and port, which nodes
// lie downstream of that port.
func (cg *CompiledGraph) indexBranches() {
	cg.branchReach = make(map[string]map[string]map[string]bool)
	cg.upstream = make(map[string][]string)

	for _, id := range cg.order {
		if cg.nodes[id].Kind != KindCondition {
			continue
		}
		ports := make(map[string]map[string]bool)
		seen := make(map[string]bool)
		for _, e := range cg.outgoing[id] {
			reach := ports[e.SourcePort]
			if reach == nil {
				reach = make(map[string]bool)
				ports[e.SourcePort] = reach
			}
			stack := []string{e.Target}
			for len(stack) > 0 {
				n := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if reach[n] {
					continue
				}
				reach[n] = true
				if !seen[n] {
					seen[n] = true
					cg.upstream[n] = append(cg.upstream[n], id)
				}
				for _, out := range cg.outgoing[n] {
					stack = append(stack, out.Target)
				}
			}
		}
		cg.branchReach[id] = ports
	}
}

// gatedBy reports whether id can only be reached from cond through ports
// other than the selected one.
func (cg *CompiledGraph) gatedBy(cond, selected, id string) bool {
	return !cg.branchReach[cond][selected][id]
}

// warnDeadEnds logs nodes whose results can never reach an Output node.
func (cg *CompiledGraph) warnDeadEnds() {
	reaches := make(map[string]bool, len(cg.order))
	for _, id := range slices.Backward(cg.order) {
		if cg.nodes[id].Kind == KindOutput {
			reaches[id] = true
			continue
		}
		for _, e := range cg.outgoing[id] {
			if reaches[e.Target] {
				reaches[id] = true
				break
			}
		}
	}

	for _, id := range cg.order {
		if !reaches[id] {
			slog.Warn("node has no path to an output node", "graph_id", cg.graph.ID, "node_id", id)
		}
	}
}
