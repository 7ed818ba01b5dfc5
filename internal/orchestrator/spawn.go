package orchestrator

import (
	"strconv"

	"github.com/smilemakc/dagflow/internal/graph"
	"github.com/smilemakc/dagflow/internal/observer"
	"github.com/smilemakc/dagflow/internal/value"
)

// spawnTask inserts a task into the running workflow on behalf of
// creatorID. Any failure at any step aborts the entire workflow: this
// function either returns nil having mutated the graph and possibly
// enqueued a new root, or returns the (already-wrapped-as-abort) error
// having left the run in its aborted state.
func (r *run) spawnTask(creatorID string, newTask graph.Task, newEdges []graph.EdgeRef, inputData value.Value, hasInputData bool, skipVisualEdge bool) error {
	r.mu.Lock()

	if r.aborted {
		r.mu.Unlock()
		return newError(ErrCodeAborted, "workflow "+r.wf.ID()+" already aborted")
	}

	addedEdges, err := r.spawnTaskLocked(creatorID, newTask, newEdges, inputData, hasInputData, skipVisualEdge)
	if err != nil {
		abortErr := r.abortLocked(err)
		wfSnap := r.snapshot("")
		failedSnaps := make([]observer.Snapshot, len(abortErr.ForceFailedTask))
		for i, id := range abortErr.ForceFailedTask {
			failedSnaps[i] = r.snapshot(id)
		}
		r.mu.Unlock()

		r.logger.Error().
			Err(abortErr.Cause).
			Str("workflow_id", abortErr.WorkflowID).
			Strs("force_failed", abortErr.ForceFailedTask).
			Msg("workflow aborted by spawn violation")
		r.notify(observer.KindWorkflowAborted, wfSnap, abortErr)
		for _, snap := range failedSnaps {
			r.notify(observer.KindTaskFailed, snap, abortErr)
		}
		return abortErr
	}

	snap := r.snapshot(newTask.ID())
	edgeSnaps := make([]observer.Snapshot, len(addedEdges))
	for i, e := range addedEdges {
		edgeSnaps[i] = r.edgeSnapshot(e.Src, e.Dst)
	}
	r.mu.Unlock()

	r.notify(observer.KindTaskSpawned, snap, nil)
	for _, edgeSnap := range edgeSnaps {
		r.notify(observer.KindEdgeAdded, edgeSnap, nil)
	}
	return nil
}

// spawnTaskLocked performs the spawn checks and mutations in order,
// returning the dependency edges actually attached (for the edge_added
// notification). Caller must hold r.mu and must route any returned error
// through abortLocked.
func (r *run) spawnTaskLocked(creatorID string, newTask graph.Task, newEdges []graph.EdgeRef, inputData value.Value, hasInputData bool, skipVisualEdge bool) ([]graph.EdgeRef, error) {
	// The creator must be registered.
	creator, ok := r.wf.GetTask(creatorID)
	if !ok {
		return nil, newError(ErrCodeInvalidSpawn, "spawn creator "+creatorID+" not registered in workflow "+r.wf.ID())
	}
	creatorState, ok := r.states[creatorID]
	if !ok {
		return nil, newError(ErrCodeInvalidSpawn, "spawn creator "+creatorID+" has no tracked state")
	}

	// Spawn quota.
	if max, hasMax := creator.Constraint().MaxSpawnCount(); hasMax && creatorState.spawnCount >= max {
		return nil, newError(ErrCodeQuotaExceeded, "task "+creatorID+" already spawned its max_spawn_count of "+strconv.Itoa(max))
	}

	// Node checks in both directions.
	if err := graph.CheckNode(creator, newTask, "next"); err != nil {
		return nil, wrapError(ErrCodeInvalidSpawn, "spawn of "+newTask.ID()+" rejected by node policy", err)
	}
	if err := graph.CheckNode(creator, newTask, "previous"); err != nil {
		return nil, wrapError(ErrCodeInvalidSpawn, "spawn of "+newTask.ID()+" rejected by node policy", err)
	}

	// Insert the new task.
	if r.wf.HasTask(newTask.ID()) {
		return nil, newError(ErrCodeInvalidSpawn, "spawned task "+newTask.ID()+" already registered")
	}
	if err := r.wf.InsertTask(newTask); err != nil {
		return nil, err
	}
	newState := r.mustState(newTask.ID())

	// Charge the spawn against the creator's quota.
	creatorState.spawnCount++

	// Provisional execution step; the next discovery pass overwrites it
	// if the task is still pending then.
	newState.executionStep = creatorState.executionStep + 1

	// Spawn-relationship edge, display only.
	if !skipVisualEdge {
		r.wf.AddVisualEdge(creatorID, newTask.ID())
	}

	// Attach caller-supplied edges.
	addedEdges := make([]graph.EdgeRef, 0, len(newEdges))
	for _, e := range newEdges {
		if e.Src != creatorID && e.Src != newTask.ID() && e.Dst != creatorID && e.Dst != newTask.ID() {
			return nil, newError(ErrCodeInvalidSpawn, "spawn edge "+e.Src+"->"+e.Dst+" touches neither creator nor new task")
		}
		src, ok := r.wf.GetTask(e.Src)
		if !ok {
			return nil, newError(ErrCodeInvalidSpawn, "spawn edge source "+e.Src+" not registered")
		}
		dst, ok := r.wf.GetTask(e.Dst)
		if !ok {
			return nil, newError(ErrCodeInvalidSpawn, "spawn edge destination "+e.Dst+" not registered")
		}
		if err := graph.CheckEdge(src, dst, "outgoing"); err != nil {
			return nil, err
		}
		if err := graph.CheckEdge(src, dst, "incoming"); err != nil {
			return nil, err
		}
		if err := r.wf.AddEdge(e.Src, e.Dst); err != nil {
			return nil, err
		}
		addedEdges = append(addedEdges, e)
	}

	// Global acyclicity.
	if err := r.wf.ValidateAcyclic(); err != nil {
		return nil, err
	}

	// A spawn that created a true root with its own input is enqueued
	// immediately rather than waiting for a discovery pass.
	if hasInputData {
		hasIncoming := false
		for _, e := range r.wf.Edges() {
			if e.Dst == newTask.ID() {
				hasIncoming = true
				break
			}
		}
		if !hasIncoming {
			newState.enqueued = true
			r.queue = append(r.queue, queueItem{taskID: newTask.ID(), inputs: inputData})
		}
	}

	return addedEdges, nil
}

// abortLocked applies the atomic-abort effect: empty the queue,
// force-fail every non-terminal task, clear the running-loop flag, and
// build the AbortError to raise. Caller must hold r.mu; returns the error
// to propagate.
func (r *run) abortLocked(cause error) *AbortError {
	r.aborted = true
	r.queue = nil
	r.runningLoop = false

	var forceFailed []string
	for id, st := range r.states {
		if !st.status.IsTerminal() {
			st.status = StatusFailed
			forceFailed = append(forceFailed, id)
		}
	}

	abortErr := &AbortError{WorkflowID: r.wf.ID(), Cause: cause, ForceFailedTask: forceFailed}
	r.abortErr = abortErr
	return abortErr
}
