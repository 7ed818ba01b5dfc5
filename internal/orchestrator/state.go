package orchestrator

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/smilemakc/dagflow/internal/config"
	"github.com/smilemakc/dagflow/internal/graph"
	"github.com/smilemakc/dagflow/internal/observer"
	"github.com/smilemakc/dagflow/internal/value"
)

// Status is a task's lifecycle state. Terminal states (Done, Failed) are
// sticky: once set they never change.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// IsTerminal reports whether s is Done or Failed.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// taskState is the mutable record tracked per (workflow, task).
type taskState struct {
	status        Status
	inputs        value.Value
	output        value.Value
	hasOutput     bool
	spawnCount    int
	executionStep int

	// enqueued marks a task already sitting in (or dispatched from) the
	// ready queue, so a discovery pass never enqueues it a second time
	// while it is still pending.
	enqueued bool
}

// queueItem is one entry in the FIFO ready queue.
type queueItem struct {
	taskID string
	inputs value.Value
}

// run holds all mutable state for one registered workflow's lifetime: the
// graph itself, per-task status records, the ready queue, and the
// single-loop-at-a-time flag. One run is the sole owner of its workflow's
// state; every mutation happens under mu.
type run struct {
	mu sync.Mutex

	wf *graph.Workflow

	states map[string]*taskState

	queue       []queueItem
	runningLoop bool
	maxStep     int

	aborted  bool
	abortErr *AbortError

	hooks  *observer.Manager
	cfg    *config.Config
	logger zerolog.Logger
}

func newRun(wf *graph.Workflow, hooks *observer.Manager, cfg *config.Config, logger zerolog.Logger) *run {
	r := &run{
		wf:     wf,
		states: make(map[string]*taskState),
		queue:  make([]queueItem, 0, cfg.QueueBuffer),
		hooks:  hooks,
		cfg:    cfg,
		logger: logger,
	}
	for _, t := range wf.Tasks() {
		r.states[t.ID()] = &taskState{status: StatusPending}
	}
	return r
}

// mustState returns the taskState for id, creating a fresh pending one if
// absent (used right after a spawn inserts a task the caller hasn't
// registered state for yet). Caller must hold r.mu.
func (r *run) mustState(id string) *taskState {
	st, ok := r.states[id]
	if !ok {
		st = &taskState{status: StatusPending}
		r.states[id] = st
	}
	return st
}

// allTerminal reports whether every known task is Done or Failed. Caller
// must hold r.mu.
func (r *run) allTerminal() bool {
	for _, st := range r.states {
		if !st.status.IsTerminal() {
			return false
		}
	}
	return true
}

// snapshot builds an observer.Snapshot for (r.wf.ID(), taskID). Caller
// must hold r.mu.
func (r *run) snapshot(taskID string) observer.Snapshot {
	snap := observer.Snapshot{
		WorkflowID: r.wf.ID(),
		TaskID:     taskID,
	}
	if taskID == "" {
		return snap
	}
	st, ok := r.states[taskID]
	if !ok {
		return snap
	}
	snap.Status = string(st.status)
	snap.ExecutionStep = st.executionStep
	snap.Inputs = st.inputs.String()
	if st.hasOutput {
		snap.Output = st.output.String()
		snap.HasOutput = true
	}
	if t, ok := r.wf.GetTask(taskID); ok {
		snap.Metadata = t.Metadata()
		var tentative []string
		for _, id := range tentativeNextNodes(t) {
			if !r.wf.HasTask(id) {
				tentative = append(tentative, id)
			}
		}
		snap.TentativeNodes = tentative
	}
	return snap
}

// edgeSnapshot builds the observer.Snapshot for an edge_added event.
// Caller must hold r.mu.
func (r *run) edgeSnapshot(src, dst string) observer.Snapshot {
	return observer.Snapshot{WorkflowID: r.wf.ID(), EdgeSrc: src, EdgeDst: dst}
}

// tentativeNextNodes lists the ids named by t's custom valid-next-nodes
// policy, the not-yet-materialized nodes an external renderer may want to
// draw as placeholders until they are actually spawned. Filtering out
// already-registered ids happens in the caller, which has access to the
// workflow.
func tentativeNextNodes(t graph.Task) []string {
	policy, ids := t.Constraint().NextNodes()
	if policy != graph.PolicyCustom {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
