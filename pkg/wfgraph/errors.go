// Package wfgraph compiles and runs workflow graphs.
package wfgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph validation.
var (
	// ErrGraphStructure is matched by every *GraphStructureError.
	ErrGraphStructure = errors.New("invalid graph structure")

	// ErrNodeNotFound indicates a lookup of an id that is not in the graph.
	ErrNodeNotFound = errors.New("node not found")
)

// Sentinel errors for execution.
var (
	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNoOutputReached indicates a run finished without any Output node
	// succeeding, for example because every path to Output was pruned.
	ErrNoOutputReached = errors.New("no output node reached")

	// ErrCapabilityMissing indicates a node needs a capability (LLM, tools,
	// HTTP) that the run's Context does not provide.
	ErrCapabilityMissing = errors.New("capability not configured")

	// ErrNotExecutable indicates an attempt to execute a Note node.
	ErrNotExecutable = errors.New("node kind is not executable")
)

// ViolationKind classifies a structural problem.
type ViolationKind string

// Violation kinds reported by Validate.
const (
	ViolationEmptyID        ViolationKind = "empty_id"
	ViolationDuplicateNode  ViolationKind = "duplicate_node"
	ViolationUnknownKind    ViolationKind = "unknown_kind"
	ViolationInvalidConfig  ViolationKind = "invalid_config"
	ViolationNoInput        ViolationKind = "no_input"
	ViolationMultipleInputs ViolationKind = "multiple_inputs"
	ViolationNoOutput       ViolationKind = "no_output"
	ViolationDanglingEdge   ViolationKind = "dangling_edge"
	ViolationEdgeIntoInput  ViolationKind = "edge_into_input"
	ViolationEdgeFromOutput ViolationKind = "edge_from_output"
	ViolationNoIncoming     ViolationKind = "no_incoming"
	ViolationInvalidPort    ViolationKind = "invalid_port"
	ViolationCycle          ViolationKind = "cycle"
)

// Violation is one structural problem found by Validate.
type Violation struct {
	Kind ViolationKind `json:"kind"`

	// NodeID is the node the problem is about, if any.
	NodeID string `json:"nodeId,omitempty"`

	// Path lists the nodes of a cycle, first node repeated at the end.
	Path []string `json:"path,omitempty"`

	Message string `json:"message"`
}

// String returns the violation message prefixed with its kind.
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

// GraphStructureError reports every structural problem Validate found.
type GraphStructureError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *GraphStructureError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	if len(msgs) == 1 {
		return "invalid graph: " + msgs[0]
	}
	return fmt.Sprintf("invalid graph: %d violations: %s", len(msgs), strings.Join(msgs, "; "))
}

// Unwrap returns ErrGraphStructure for errors.Is support.
func (e *GraphStructureError) Unwrap() error {
	return ErrGraphStructure
}

// Has reports whether any violation is of kind k.
func (e *GraphStructureError) Has(k ViolationKind) bool {
	for _, v := range e.Violations {
		if v.Kind == k {
			return true
		}
	}
	return false
}

// NodeExecutionError wraps an error with node context. Every node failure
// recorded in a run is a *NodeExecutionError.
type NodeExecutionError struct {
	// NodeID is the identifier of the node that failed.
	NodeID string
	// Kind is the kind of the node that failed.
	Kind NodeKind
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.NodeID, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeExecutionError) Unwrap() error {
	return e.Err
}

// ExternalCallError wraps a failure of an external capability call.
type ExternalCallError struct {
	// Capability is "llm", "tool" or "http".
	Capability string
	// Target identifies what was called: a model, "server/tool", or
	// "METHOD url".
	Target string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ExternalCallError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s call: %v", e.Capability, e.Err)
	}
	return fmt.Sprintf("%s call %s: %v", e.Capability, e.Target, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ExternalCallError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from node execution.
// It includes the stack trace for debugging.
type PanicError struct {
	// NodeID is the identifier of the node that panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// WorkflowExecutionError reports that a node failure doomed the run.
type WorkflowExecutionError struct {
	// FailingNodeID is the node whose failure failed the run.
	FailingNodeID string
	// Err is the node's error, a *NodeExecutionError.
	Err error
}

// Error implements the error interface.
func (e *WorkflowExecutionError) Error() string {
	return fmt.Sprintf("workflow failed at node %s: %v", e.FailingNodeID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *WorkflowExecutionError) Unwrap() error {
	return e.Err
}
