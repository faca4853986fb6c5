package wfgraph

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Graph is one version of a workflow: an arena of nodes and the edges
// between them, addressed by id.
//
// A Graph is plain data. Build it with NewGraph and the Add methods, or
// decode it from a JSON or YAML document with ParseGraph or LoadGraphFile,
// then call Compile to validate it and get an executable CompiledGraph.
//
// Example:
//
//	g := wfgraph.NewGraph("triage").
//	    AddNode("in", wfgraph.InputConfig{}).
//	    AddNode("check", wfgraph.ConditionConfig{Branches: branches}).
//	    AddNode("out", wfgraph.OutputConfig{}).
//	    AddEdge("in", "check").
//	    AddBranchEdge("check", condition.PortTrue, "out")
//
//	compiled, err := wfgraph.Compile(g)
type Graph struct {
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a unit of computation. Config is the kind-specific variant and
// decides what the node does; Label and Position are display metadata the
// engine ignores.
type Node struct {
	ID       string
	Kind     NodeKind
	Label    string
	Position *Position
	Config   NodeConfig
}

// Position is an editor canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge is a directed connection between two node ports.
//
// SourcePort selects a Condition node's branch ("true", "false" or an
// else-if port) and is ignored for other kinds. TargetPort, when set, is
// the key the source's output is delivered under in the target's inputs.
type Edge struct {
	ID         string `json:"id,omitempty"`
	Source     string `json:"source"`
	SourcePort string `json:"sourceHandle,omitempty"`
	Target     string `json:"target"`
	TargetPort string `json:"targetHandle,omitempty"`
}

// String renders the edge as "source[:port] -> target[:port]".
func (e Edge) String() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.SourcePort != "" {
		b.WriteString(":" + e.SourcePort)
	}
	b.WriteString(" -> ")
	b.WriteString(e.Target)
	if e.TargetPort != "" {
		b.WriteString(":" + e.TargetPort)
	}
	return b.String()
}

// NewGraph creates an empty graph.
func NewGraph(id string) *Graph {
	return &Graph{ID: id}
}

// AddNode adds a node whose kind is taken from cfg.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty or contains whitespace
//   - cfg is nil
//   - id already exists in the graph
//
// Structural problems that depend on the whole graph (dangling edges,
// cycles, missing Input or Output) are reported by Validate, not here.
func (g *Graph) AddNode(id string, cfg NodeConfig) *Graph {
	if id == "" {
		panic("wfgraph: node ID cannot be empty")
	}
	if strings.ContainsAny(id, " \t\n\r") {
		panic("wfgraph: node ID cannot contain whitespace")
	}
	if cfg == nil {
		panic("wfgraph: node config cannot be nil")
	}
	if _, exists := g.Node(id); exists {
		panic(fmt.Sprintf("wfgraph: duplicate node ID: %s", id))
	}

	g.Nodes = append(g.Nodes, Node{ID: id, Kind: cfg.Kind(), Config: cfg})
	return g
}

// AddEdge connects from to to.
// Returns the graph for method chaining.
func (g *Graph) AddEdge(from, to string) *Graph {
	return g.Connect(Edge{Source: from, Target: to})
}

// AddBranchEdge connects a Condition node's branch port to a target.
func (g *Graph) AddBranchEdge(from, port, to string) *Graph {
	return g.Connect(Edge{Source: from, SourcePort: port, Target: to})
}

// Connect adds e, generating an ID if it has none.
func (g *Graph) Connect(e Edge) *Graph {
	if e.ID == "" {
		e.ID = "e-" + uuid.NewString()
	}
	g.Edges = append(g.Edges, e)
	return g
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// clone returns a copy whose node and edge slices are not shared with g.
// Configs are immutable values and are shared.
func (g *Graph) clone() *Graph {
	c := *g
	c.Nodes = append([]Node(nil), g.Nodes...)
	c.Edges = append([]Edge(nil), g.Edges...)
	return &c
}
