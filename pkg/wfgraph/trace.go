package wfgraph

import (
	"encoding/json"
	"iter"
	"slices"
	"time"
)

// NodeStatus is a node's state within one run.
//
//	Pending -> Ready -> Running -> Succeeded | Failed
//	Pending -> Skipped
type NodeStatus string

// Node statuses.
const (
	StatusPending   NodeStatus = "pending"
	StatusReady     NodeStatus = "ready"
	StatusRunning   NodeStatus = "running"
	StatusSucceeded NodeStatus = "succeeded"
	StatusFailed    NodeStatus = "failed"
	StatusSkipped   NodeStatus = "skipped"
)

// Terminal reports whether s is a final status.
func (s NodeStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// RunStatus is the outcome of a run.
type RunStatus string

// Run statuses.
const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// TraceEvent records one node status transition.
type TraceEvent struct {
	// Seq is the event's position in the run, starting at 1.
	Seq int `json:"seq"`

	NodeID string     `json:"nodeId"`
	Kind   NodeKind   `json:"kind"`
	Status NodeStatus `json:"status"`
	Time   time.Time  `json:"time"`

	// Output is set on Succeeded events.
	Output any `json:"output,omitempty"`

	// Error is set on Failed events.
	Error string `json:"error,omitempty"`

	// Branch is the selected port on a Condition node's Succeeded event.
	Branch string `json:"branch,omitempty"`

	// Reason explains a Skipped event.
	Reason string `json:"reason,omitempty"`
}

// Trace is the ordered record of a run's status transitions. Events are
// only appended, each with the next sequence number, and the trace is
// sealed when the run ends.
//
// Only the scheduler writes to a trace. Once sealed it is immutable and
// safe to read from any goroutine.
type Trace struct {
	events []TraceEvent
	sealed bool
}

// append records ev with the next sequence number and the current time
// and returns the stored event.
func (t *Trace) append(ev TraceEvent) TraceEvent {
	if t.sealed {
		panic("wfgraph: append to sealed trace")
	}
	ev.Seq = len(t.events) + 1
	ev.Time = time.Now()
	t.events = append(t.events, ev)
	return ev
}

func (t *Trace) seal() {
	t.sealed = true
}

// Sealed reports whether the run has finished recording.
func (t *Trace) Sealed() bool {
	return t.sealed
}

// Len returns the number of events.
func (t *Trace) Len() int {
	return len(t.events)
}

// Events returns a copy of the events in sequence order.
func (t *Trace) Events() []TraceEvent {
	return slices.Clone(t.events)
}

// All iterates over the events in sequence order.
func (t *Trace) All() iter.Seq[TraceEvent] {
	return slices.Values(t.events)
}

// NodeEvents returns the events of one node in sequence order.
func (t *Trace) NodeEvents(nodeID string) []TraceEvent {
	var events []TraceEvent
	for _, ev := range t.events {
		if ev.NodeID == nodeID {
			events = append(events, ev)
		}
	}
	return events
}

// StatusSequence returns the statuses a node passed through.
func (t *Trace) StatusSequence(nodeID string) []NodeStatus {
	var seq []NodeStatus
	for _, ev := range t.events {
		if ev.NodeID == nodeID {
			seq = append(seq, ev.Status)
		}
	}
	return seq
}

// MarshalJSON encodes the trace as an array of events.
func (t *Trace) MarshalJSON() ([]byte, error) {
	if t.events == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.events)
}

// RunResult is what a caller gets back from a run. Trace is complete even
// when the run failed or was cancelled.
type RunResult struct {
	RunID   string
	GraphID string
	Status  RunStatus

	// Output is the result of the Output node, set when Status is
	// RunSucceeded.
	Output any

	// FailingNodeID and Err describe a failed run. Err is a
	// *WorkflowExecutionError when a node failure doomed the run, or
	// ErrNoOutputReached when every path to Output was pruned.
	FailingNodeID string
	Err           error

	Trace      *Trace
	StartedAt  time.Time
	FinishedAt time.Time

	nodes map[string]*nodeState
}

// Duration returns how long the run took.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// NodeStatus returns the final status of a node, or "" for an unknown id.
func (r *RunResult) NodeStatus(nodeID string) NodeStatus {
	if st, ok := r.nodes[nodeID]; ok {
		return st.status
	}
	return ""
}

// NodeOutput returns a succeeded node's output.
func (r *RunResult) NodeOutput(nodeID string) (any, bool) {
	st, ok := r.nodes[nodeID]
	if !ok || st.status != StatusSucceeded {
		return nil, false
	}
	return st.output, true
}

// NodeError returns a failed node's error, or nil.
func (r *RunResult) NodeError(nodeID string) error {
	if st, ok := r.nodes[nodeID]; ok {
		return st.err
	}
	return nil
}

// NodesWithStatus returns the ids of nodes that ended in status, sorted.
func (r *RunResult) NodesWithStatus(status NodeStatus) []string {
	var ids []string
	for id, st := range r.nodes {
		if st.status == status {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

type runResultJSON struct {
	RunID         string    `json:"runId"`
	GraphID       string    `json:"graphId,omitempty"`
	Status        RunStatus `json:"status"`
	Output        any       `json:"output,omitempty"`
	FailingNodeID string    `json:"failingNodeId,omitempty"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	Trace         *Trace    `json:"trace"`
}

// MarshalJSON implements json.Marshaler.
func (r *RunResult) MarshalJSON() ([]byte, error) {
	doc := runResultJSON{
		RunID:         r.RunID,
		GraphID:       r.GraphID,
		Status:        r.Status,
		Output:        r.Output,
		FailingNodeID: r.FailingNodeID,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		Trace:         r.Trace,
	}
	if r.Err != nil {
		doc.Error = r.Err.Error()
	}
	if doc.Trace == nil {
		doc.Trace = &Trace{}
	}
	return json.Marshal(doc)
}
