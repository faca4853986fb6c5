package wfgraph

import "slices"

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile.
//
// CompiledGraph is safe for concurrent use and can serve many Run calls at
// once; each run owns its own state.
//
// Use the introspection methods (Stages, Successors, etc.) to examine the
// graph structure for debugging or visualization.
type CompiledGraph struct {
	graph *Graph
	nodes map[string]Node

	// Functional edges only, in declaration order
	incoming map[string][]Edge
	outgoing map[string][]Edge

	stages  [][]string
	order   []string
	input   string
	outputs []string

	// branchReach[cond][port] is the set of nodes reachable from the edges
	// leaving cond through port. upstream[id] lists the Condition nodes
	// that can reach id, in stage order.
	branchReach map[string]map[string]map[string]bool
	upstream    map[string][]string
}

// ID returns the graph id.
func (cg *CompiledGraph) ID() string {
	return cg.graph.ID
}

// Graph returns a copy of the graph the CompiledGraph was built from.
func (cg *CompiledGraph) Graph() *Graph {
	return cg.graph.clone()
}

// Stages returns the execution stages. Nodes of one stage may run
// concurrently.
func (cg *CompiledGraph) Stages() [][]string {
	stages := make([][]string, len(cg.stages))
	for i, s := range cg.stages {
		stages[i] = slices.Clone(s)
	}
	return stages
}

// NodeIDs returns the functional node ids in stage order.
func (cg *CompiledGraph) NodeIDs() []string {
	return slices.Clone(cg.order)
}

// Node returns the node with the given id, including Note nodes.
func (cg *CompiledGraph) Node(id string) (Node, bool) {
	n, ok := cg.nodes[id]
	return n, ok
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// InputNode returns the id of the Input node.
func (cg *CompiledGraph) InputNode() string {
	return cg.input
}

// OutputNodes returns the ids of the Output nodes in stage order.
func (cg *CompiledGraph) OutputNodes() []string {
	return slices.Clone(cg.outputs)
}

// Predecessors returns the distinct ids of nodes with an edge to id, in
// edge order. Returns nil for the Input node, Note nodes and unknown ids.
func (cg *CompiledGraph) Predecessors(id string) []string {
	var ids []string
	for _, e := range cg.incoming[id] {
		if !slices.Contains(ids, e.Source) {
			ids = append(ids, e.Source)
		}
	}
	return ids
}

// Successors returns the distinct ids of nodes id has an edge to, in edge
// order. For a Condition node this covers every branch.
func (cg *CompiledGraph) Successors(id string) []string {
	var ids []string
	for _, e := range cg.outgoing[id] {
		if !slices.Contains(ids, e.Target) {
			ids = append(ids, e.Target)
		}
	}
	return ids
}

// Incoming returns the edges into id. Condition source ports are in
// canonical form.
func (cg *CompiledGraph) Incoming(id string) []Edge {
	return slices.Clone(cg.incoming[id])
}

// Outgoing returns the edges leaving id.
func (cg *CompiledGraph) Outgoing(id string) []Edge {
	return slices.Clone(cg.outgoing[id])
}

// IsJoin reports whether id has more than one predecessor and so waits
// for converging branches.
func (cg *CompiledGraph) IsJoin(id string) bool {
	return len(cg.Predecessors(id)) > 1
}
