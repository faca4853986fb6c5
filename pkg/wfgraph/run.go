package wfgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph/condition"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/observability"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/runstore"
)

// Run executes the graph against payload and returns the run's result.
// The returned error is result.Err: nil when the run succeeded or was
// cancelled.
//
// Execution flow:
//  1. Every functional node starts Pending
//  2. For each stage, stop if the run is doomed or ctx is cancelled
//  3. Resolve each node of the stage to Ready or Skipped from the state of
//     its incoming edges
//  4. Run the Ready nodes concurrently and wait for all of them
//  5. Seal the trace and decide the outcome
//
// A node failure fails the run unless every consumer of the failed node is
// pruned by a Condition branch that was not taken. In-flight nodes are
// never interrupted: they run on a context detached from ctx's
// cancellation and are recorded when they finish.
//
// The engine never retries; wrap capabilities (llm.RetryClient,
// httpcap.WithRetry) for that.
//
// Example:
//
//	ctx := wfgraph.NewContext(context.Background(), wfgraph.WithTools(tools))
//	result, err := compiled.Run(ctx, map[string]any{"count": 3})
//	if err != nil {
//	    // result.Trace still holds every recorded transition
//	}
func (cg *CompiledGraph) Run(ctx Context, payload any, opts ...RunOption) (*RunResult, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &run{
		cg:    cg,
		ctx:   contextOf(ctx),
		cfg:   &cfg,
		state: make(map[string]*nodeState, len(cg.order)),
		trace: &Trace{},
		exec: &executor{
			payload:    payload,
			conditions: condition.NewEvaluator(),
		},
	}
	result := r.execute()
	r.persist(result)
	return result, result.Err
}

// nodeState is one node's entry in Run State.
type nodeState struct {
	status NodeStatus
	output any
	err    error
	branch string
}

// run is the state of one execution. Everything except the doomed flag is
// owned by the scheduler goroutine; workers only send messages.
type run struct {
	cg   *CompiledGraph
	ctx  *executionContext
	cfg  *runConfig
	exec *executor

	// detached carries the run span without the caller's cancellation.
	detached context.Context

	state     map[string]*nodeState
	trace     *Trace
	failure   *WorkflowExecutionError
	deferred  []string
	cancelled bool

	// doomed mirrors failure != nil for the dispatcher goroutine.
	doomed atomic.Bool
}

type messageKind int

const (
	msgStarted messageKind = iota
	msgFinished
	msgAbandoned
)

// message is sent by workers and the dispatcher to the scheduler.
type message struct {
	kind     messageKind
	nodeID   string
	result   nodeResult
	err      error
	duration time.Duration
}

// readyNode is a node admitted to run, with its resolved inputs.
type readyNode struct {
	id     string
	inputs Inputs
}

func (r *run) execute() *RunResult {
	start := time.Now()
	runID := r.ctx.RunID()

	spanCtx, span := r.cfg.spans.StartRunSpan(r.ctx, r.cg.ID(), runID)
	r.detached = context.WithoutCancel(spanCtx)
	observability.LogRunStart(r.cfg.logger, runID, r.cg.ID(), len(r.cg.order))

	for _, id := range r.cg.order {
		r.state[id] = &nodeState{}
		r.transition(id, StatusPending, TraceEvent{})
	}

	for _, stage := range r.cg.stages {
		if r.failure != nil {
			break
		}
		if r.ctx.Err() != nil {
			r.cancelled = true
			break
		}
		r.dispatch(r.resolveStage(stage))
		r.recheckDeferred()
	}

	result := r.finish(start)
	r.cfg.spans.EndSpanWithError(span, result.Err)
	return result
}

// transition moves id to status and records the event.
func (r *run) transition(id string, status NodeStatus, ev TraceEvent) {
	r.state[id].status = status
	ev.NodeID = id
	ev.Kind = r.cg.nodes[id].Kind
	ev.Status = status
	stored := r.trace.append(ev)
	if r.cfg.observer != nil {
		r.cfg.observer(stored)
	}
}

type verdict int

const (
	verdictReady verdict = iota
	verdictSkip
	verdictDoom
	verdictBlocked
)

type resolution struct {
	verdict verdict
	inputs  Inputs
	reason  string
	failed  string
}

// resolveStage decides every node of a stage and returns the Ready ones.
// If any node's resolution dooms the run, nothing in the stage changes
// state.
func (r *run) resolveStage(stage []string) []readyNode {
	resolutions := make([]resolution, len(stage))
	for i, id := range stage {
		resolutions[i] = r.resolve(id)
		if resolutions[i].verdict == verdictDoom {
			r.doom(resolutions[i].failed)
			return nil
		}
	}

	var ready []readyNode
	for i, id := range stage {
		res := resolutions[i]
		switch res.verdict {
		case verdictReady:
			r.transition(id, StatusReady, TraceEvent{})
			ready = append(ready, readyNode{id: id, inputs: res.inputs})
		case verdictSkip:
			kind := string(r.cg.nodes[id].Kind)
			r.transition(id, StatusSkipped, TraceEvent{Reason: res.reason})
			observability.LogNodeSkipped(r.cfg.logger, id, res.reason)
			r.cfg.metrics.RecordNodeSkipped(r.detached, id, kind)
		}
	}
	return ready
}

// resolve applies the readiness rule to one node whose predecessors have
// all finished:
//   - an edge from a Succeeded node is live, unless it leaves a Condition
//     node through a port that was not selected
//   - an edge from a Skipped node, or from an unselected port, is dead
//   - with any live edge and no failed one the node is Ready
//   - with only dead edges the node is Skipped
//   - an edge from a Failed node dooms the run, unless the node has no
//     live edge and sits behind a branch that was not taken
func (r *run) resolve(id string) resolution {
	edges := r.cg.incoming[id]
	var in Inputs
	if len(edges) == 0 {
		in.seal()
		return resolution{verdict: verdictReady, inputs: in}
	}

	var live int
	var failed string
	for _, e := range edges {
		src := r.state[e.Source]
		switch src.status {
		case StatusSucceeded:
			if r.cg.nodes[e.Source].Kind == KindCondition && e.SourcePort != src.branch {
				continue
			}
			live++
			key := e.TargetPort
			if key == "" {
				key = e.Source
			}
			in.add(key, src.output, e.TargetPort != "")
		case StatusSkipped:
		case StatusFailed:
			if failed == "" {
				failed = e.Source
			}
		default:
			// Only reachable once dispatch has stopped.
			return resolution{verdict: verdictBlocked}
		}
	}

	switch {
	case failed != "" && live == 0 && r.gated(id) != "":
		return resolution{verdict: verdictSkip, reason: fmt.Sprintf("branch %s not taken; input %s failed", r.gated(id), failed)}
	case failed != "":
		return resolution{verdict: verdictDoom, failed: failed}
	case live > 0:
		in.seal()
		return resolution{verdict: verdictReady, inputs: in}
	default:
		return resolution{verdict: verdictSkip, reason: "all inputs pruned"}
	}
}

// gated returns the first decided Condition node whose selected branch
// cannot reach id, or "" if there is none. Such a node would have been
// pruned whatever its other inputs did.
func (r *run) gated(id string) string {
	for _, cond := range r.cg.upstream[id] {
		st := r.state[cond]
		if st.status == StatusSucceeded && r.cg.gatedBy(cond, st.branch, id) {
			return cond
		}
	}
	return ""
}

// dispatch runs the Ready nodes of a stage and processes their messages
// until all of them have finished. Nodes not yet started when the run is
// doomed or cancelled are abandoned.
func (r *run) dispatch(ready []readyNode) {
	if len(ready) == 0 {
		return
	}

	msgs := make(chan message, 2*len(ready))
	var g errgroup.Group
	if r.cfg.maxConcurrency > 0 {
		g.SetLimit(r.cfg.maxConcurrency)
	}

	go func() {
		for _, rn := range ready {
			if r.doomed.Load() || r.ctx.Err() != nil {
				msgs <- message{kind: msgAbandoned, nodeID: rn.id}
				continue
			}
			g.Go(func() error {
				r.work(rn, msgs)
				return nil
			})
		}
		_ = g.Wait()
		close(msgs)
	}()

	// Barrier: the stage ends when every worker has reported.
	for msg := range msgs {
		r.handle(msg)
	}
}

// work executes one node. It runs on its own goroutine and touches no run
// state.
func (r *run) work(rn readyNode, msgs chan<- message) {
	n := r.cg.nodes[rn.id]
	msgs <- message{kind: msgStarted, nodeID: n.ID}

	spanCtx, span := r.cfg.spans.StartNodeSpan(r.detached, n.ID, string(n.Kind))
	start := time.Now()
	res, err := r.safeExecute(r.ctx.forNode(spanCtx, n), n, rn.inputs)
	if res.branch != "" {
		r.cfg.spans.AddSpanEvent(spanCtx, "branch.selected", attribute.String("port", res.branch))
	}
	r.cfg.spans.EndSpanWithError(span, err)

	msgs <- message{
		kind:     msgFinished,
		nodeID:   n.ID,
		result:   res,
		err:      err,
		duration: time.Since(start),
	}
}

// safeExecute runs the executor with panic recovery and wraps any failure
// in a *NodeExecutionError.
func (r *run) safeExecute(ctx *executionContext, n Node, in Inputs) (res nodeResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &NodeExecutionError{
				NodeID: n.ID,
				Kind:   n.Kind,
				Err:    &PanicError{NodeID: n.ID, Value: p, Stack: string(debug.Stack())},
			}
		}
	}()

	res, err = r.exec.execute(ctx, n, in)
	if err != nil {
		return nodeResult{}, &NodeExecutionError{NodeID: n.ID, Kind: n.Kind, Err: err}
	}
	return res, nil
}

func (r *run) handle(msg message) {
	id := msg.nodeID
	kind := string(r.cg.nodes[id].Kind)

	switch msg.kind {
	case msgStarted:
		r.transition(id, StatusRunning, TraceEvent{})
		observability.LogNodeStart(r.cfg.logger, id, kind)

	case msgFinished:
		r.cfg.metrics.RecordNodeExecution(r.detached, id, kind, msg.duration, msg.err)
		st := r.state[id]
		if msg.err != nil {
			st.err = msg.err
			r.transition(id, StatusFailed, TraceEvent{Error: msg.err.Error()})
			observability.LogNodeError(r.cfg.logger, id, kind, msg.err)
			if r.prunable(id) {
				r.deferred = append(r.deferred, id)
			} else {
				r.doom(id)
			}
			return
		}

		st.output = msg.result.output
		st.branch = msg.result.branch
		r.transition(id, StatusSucceeded, TraceEvent{Output: st.output, Branch: st.branch})
		observability.LogNodeComplete(r.cfg.logger, id, kind, msg.duration)
		if st.branch != "" {
			observability.LogBranchSelected(r.cfg.logger, id, st.branch)
		}

	case msgAbandoned:
		if r.failure == nil {
			r.cancelled = true
		}
	}
}

// doom fails the run at nodeID. The first doom wins.
func (r *run) doom(nodeID string) {
	if r.failure != nil {
		return
	}
	r.failure = &WorkflowExecutionError{FailingNodeID: nodeID, Err: r.state[nodeID].err}
	r.doomed.Store(true)
}

// prunable reports whether every consumer of a failed node may still end
// up Skipped because a Condition branch upstream of it was not taken.
func (r *run) prunable(failedID string) bool {
	out := r.cg.outgoing[failedID]
	if len(out) == 0 {
		return false
	}
	for _, e := range out {
		if !r.consumerPrunable(e.Target) {
			return false
		}
	}
	return true
}

// consumerPrunable reports whether id is Skipped or can still be pruned:
// it has no live incoming edge yet, and a Condition upstream of it is
// either undecided or has already taken a branch that cannot reach it.
func (r *run) consumerPrunable(id string) bool {
	switch r.state[id].status {
	case StatusSkipped:
		return true
	case StatusPending:
	default:
		return false
	}

	for _, e := range r.cg.incoming[id] {
		src := r.state[e.Source]
		if src.status != StatusSucceeded {
			continue
		}
		if r.cg.nodes[e.Source].Kind != KindCondition || e.SourcePort == src.branch {
			return false
		}
	}

	for _, cond := range r.cg.upstream[id] {
		st := r.state[cond]
		switch st.status {
		case StatusSucceeded:
			if r.cg.gatedBy(cond, st.branch, id) {
				return true
			}
		case StatusFailed, StatusSkipped:
		default:
			return true
		}
	}
	return false
}

// recheckDeferred dooms the run if a failure that could have been pruned
// no longer can.
func (r *run) recheckDeferred() {
	for _, id := range r.deferred {
		if r.failure != nil {
			return
		}
		if !r.prunable(id) {
			r.doom(id)
		}
	}
}

// finish seals the trace and builds the result.
func (r *run) finish(start time.Time) *RunResult {
	r.trace.seal()
	result := &RunResult{
		RunID:      r.ctx.RunID(),
		GraphID:    r.cg.ID(),
		Trace:      r.trace,
		StartedAt:  start,
		FinishedAt: time.Now(),
		nodes:      r.state,
	}

	switch {
	case r.failure != nil:
		result.Status = RunFailed
		result.FailingNodeID = r.failure.FailingNodeID
		result.Err = r.failure
	case r.cancelled:
		result.Status = RunCancelled
	default:
		result.Status = RunFailed
		result.Err = ErrNoOutputReached
		for _, id := range r.cg.outputs {
			if st := r.state[id]; st.status == StatusSucceeded {
				result.Status = RunSucceeded
				result.Output = st.output
				result.Err = nil
				break
			}
		}
	}

	duration := result.Duration()
	r.cfg.metrics.RecordRun(r.detached, string(result.Status), duration)
	switch result.Status {
	case RunSucceeded:
		observability.LogRunComplete(r.cfg.logger, result.RunID, duration,
			len(result.NodesWithStatus(StatusSucceeded)), len(result.NodesWithStatus(StatusSkipped)))
	case RunCancelled:
		notDispatched := len(result.NodesWithStatus(StatusPending)) + len(result.NodesWithStatus(StatusReady))
		observability.LogRunCancelled(r.cfg.logger, result.RunID, notDispatched, duration)
	default:
		observability.LogRunFailed(r.cfg.logger, result.RunID, result.FailingNodeID, result.Err, duration)
	}
	return result
}

// persist saves the sealed result to the configured run store. Failures
// are logged and never change the result.
func (r *run) persist(result *RunResult) {
	if r.cfg.store == nil {
		return
	}
	logger := r.cfg.logger
	if logger == nil {
		logger = r.ctx.Logger()
	}

	data, err := json.Marshal(result)
	if err != nil {
		observability.LogRunStoreError(logger, result.RunID, fmt.Errorf("encode result: %w", err))
		return
	}

	rec := runstore.Record{
		RunID:         result.RunID,
		GraphID:       result.GraphID,
		Status:        string(result.Status),
		FailingNodeID: result.FailingNodeID,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
		Data:          data,
	}
	if result.Err != nil {
		rec.Error = result.Err.Error()
	}
	if err := r.cfg.store.Save(r.detached, rec); err != nil {
		observability.LogRunStoreError(logger, result.RunID, err)
		return
	}
	observability.LogRunStored(r.cfg.logger, result.RunID, len(data))
	r.cfg.metrics.RecordRunStored(r.detached, int64(len(data)))
}
