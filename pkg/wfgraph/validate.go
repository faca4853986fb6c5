package wfgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph/condition"
)

// Validate checks that g can be executed. It returns nil or a
// *GraphStructureError listing every violation found, not just the first.
//
// Validation checks:
//  1. Node ids are non-empty and unique, kinds are known, and each
//     node's config matches its kind
//  2. There is exactly one Input node and at least one Output node
//  3. Every edge endpoint exists; no edge targets Input or leaves Output
//  4. Every functional node other than Input has an incoming edge
//  5. Edges leaving a Condition node use one of its branch ports
//  6. The graph restricted to functional nodes is acyclic
//
// Note nodes, and edges touching them, are ignored by checks 2 to 6.
func Validate(g *Graph) error {
	v := &validator{
		nodes: make(map[string]Node, len(g.Nodes)),
	}
	v.checkNodes(g.Nodes)
	edges := v.checkEdges(g.Edges)
	v.checkIncoming(g.Nodes, edges)
	v.checkCycles(g.Nodes, edges)

	if len(v.violations) == 0 {
		return nil
	}
	return &GraphStructureError{Violations: v.violations}
}

type validator struct {
	nodes      map[string]Node
	violations []Violation
}

func (v *validator) add(kind ViolationKind, nodeID, format string, args ...any) {
	v.violations = append(v.violations, Violation{
		Kind:    kind,
		NodeID:  nodeID,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) checkNodes(nodes []Node) {
	var inputs, outputs []string
	for i, n := range nodes {
		if n.ID == "" {
			v.add(ViolationEmptyID, "", "node %d has no id", i)
			continue
		}
		if _, dup := v.nodes[n.ID]; dup {
			v.add(ViolationDuplicateNode, n.ID, "duplicate node id %q", n.ID)
			continue
		}
		v.nodes[n.ID] = n

		if !n.Kind.Valid() {
			v.add(ViolationUnknownKind, n.ID, "node %s has unknown type %q", n.ID, n.Kind)
			continue
		}
		v.checkConfig(n)

		switch n.Kind {
		case KindInput:
			inputs = append(inputs, n.ID)
		case KindOutput:
			outputs = append(outputs, n.ID)
		}
	}

	switch {
	case len(inputs) == 0:
		v.add(ViolationNoInput, "", "graph has no input node")
	case len(inputs) > 1:
		v.add(ViolationMultipleInputs, "", "graph has %d input nodes: %s", len(inputs), strings.Join(inputs, ", "))
	}
	if len(outputs) == 0 {
		v.add(ViolationNoOutput, "", "graph has no output node")
	}
}

func (v *validator) checkConfig(n Node) {
	if n.Config != nil && n.Config.Kind() != n.Kind {
		v.add(ViolationInvalidConfig, n.ID, "node %s of type %s has %s config", n.ID, n.Kind, n.Config.Kind())
		return
	}

	switch cfg := configOf(n).(type) {
	case LLMConfig:
		if strings.TrimSpace(cfg.Prompt) == "" {
			v.add(ViolationInvalidConfig, n.ID, "llm node %s has no prompt", n.ID)
		}
	case ToolConfig:
		if strings.TrimSpace(cfg.Tool) == "" {
			v.add(ViolationInvalidConfig, n.ID, "tool node %s has no tool name", n.ID)
		}
	case HTTPConfig:
		if strings.TrimSpace(cfg.URL) == "" {
			v.add(ViolationInvalidConfig, n.ID, "http node %s has no url", n.ID)
		}
	case ConditionConfig:
		for _, err := range condition.Validate(cfg.Branches) {
			v.add(ViolationInvalidConfig, n.ID, "condition node %s: %v", n.ID, err)
		}
	}
}

// checkEdges reports bad edges and returns the edges between functional
// nodes that survive validation.
func (v *validator) checkEdges(edges []Edge) []Edge {
	var valid []Edge
	for _, e := range edges {
		src, srcOK := v.nodes[e.Source]
		dst, dstOK := v.nodes[e.Target]
		if !srcOK {
			v.add(ViolationDanglingEdge, "", "edge %s references unknown source %q", e, e.Source)
		}
		if !dstOK {
			v.add(ViolationDanglingEdge, "", "edge %s references unknown target %q", e, e.Target)
		}
		if !srcOK || !dstOK {
			continue
		}
		if !src.Kind.Functional() || !dst.Kind.Functional() {
			continue
		}

		ok := true
		if dst.Kind == KindInput {
			v.add(ViolationEdgeIntoInput, dst.ID, "edge %s targets the input node", e)
			ok = false
		}
		if src.Kind == KindOutput {
			v.add(ViolationEdgeFromOutput, src.ID, "edge %s leaves output node %s", e, src.ID)
			ok = false
		}
		if cfg, isCond := configOf(src).(ConditionConfig); isCond {
			ports := condition.Ports(cfg.Branches)
			if !slices.Contains(ports, condition.CanonicalPort(e.SourcePort)) {
				v.add(ViolationInvalidPort, src.ID, "edge %s uses port %q; condition %s exposes %s",
					e, e.SourcePort, src.ID, strings.Join(ports, ", "))
				ok = false
			}
		}
		if ok {
			valid = append(valid, e)
		}
	}
	return valid
}

func (v *validator) checkIncoming(nodes []Node, edges []Edge) {
	hasIncoming := make(map[string]bool)
	for _, e := range edges {
		hasIncoming[e.Target] = true
	}
	seen := make(map[string]bool)
	for _, n := range nodes {
		if n.ID == "" || seen[n.ID] {
			continue // already reported
		}
		seen[n.ID] = true
		if !n.Kind.Functional() || n.Kind == KindInput {
			continue
		}
		if !hasIncoming[n.ID] {
			v.add(ViolationNoIncoming, n.ID, "node %s has no incoming edge", n.ID)
		}
	}
}

// checkCycles runs a coloured DFS over functional nodes and reports one
// violation per back edge, citing the cycle's path.
func (v *validator) checkCycles(nodes []Node, edges []Edge) {
	adjacency := make(map[string][]string)
	for _, e := range edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}
	for id := range adjacency {
		slices.Sort(adjacency[id])
		adjacency[id] = slices.Compact(adjacency[id])
	}

	// Colors: 0 = unvisited, 1 = in progress, 2 = done
	color := make(map[string]int)
	var path []string

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = 1
		path = append(path, id)
		for _, next := range adjacency[id] {
			switch color[next] {
			case 0:
				dfs(next)
			case 1:
				start := slices.Index(path, next)
				cycle := append(slices.Clone(path[start:]), next)
				v.violations = append(v.violations, Violation{
					Kind:    ViolationCycle,
					NodeID:  next,
					Path:    cycle,
					Message: "cycle detected: " + strings.Join(cycle, " -> "),
				})
			}
		}
		path = path[:len(path)-1]
		color[id] = 2
	}

	ids := make([]string, 0, len(v.nodes))
	for _, n := range nodes {
		if n.Kind.Functional() && n.ID != "" {
			ids = append(ids, n.ID)
		}
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	for _, id := range ids {
		if color[id] == 0 {
			dfs(id)
		}
	}
}

// configOf returns n's config, or the zero config of its kind when unset.
func configOf(n Node) NodeConfig {
	if n.Config != nil {
		return n.Config
	}
	cfg, _ := decodeConfig(n.Kind, nil)
	return cfg
}
