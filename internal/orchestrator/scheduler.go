package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smilemakc/dagflow/internal/observer"
	"github.com/smilemakc/dagflow/internal/value"
)

// RunWorkflow drives wfID from its current roots to completion. It blocks
// until every task is terminal, or returns the *AbortError raised by a
// spawn-time violation.
func (o *Orchestrator) RunWorkflow(ctx context.Context, wfID string, inputMap map[string]value.Value) error {
	r, ok := o.runs.Load(wfID)
	if !ok {
		return newError(ErrCodeNotRegistered, "workflow "+wfID+" not registered")
	}

	if err := r.start(inputMap); err != nil {
		return err
	}

	for {
		r.discover()

		if err := r.drain(ctx); err != nil {
			return err
		}

		r.mu.Lock()
		if r.aborted {
			err := r.abortErr
			r.mu.Unlock()
			return err
		}
		if r.allTerminal() {
			r.runningLoop = false
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.runningLoop = false
			r.mu.Unlock()
			return ctx.Err()
		case <-time.After(r.cfg.PollInterval):
		}
	}
}

// start enforces the run preconditions: the workflow must be registered
// (caller already resolved r) and not already looping. It then seeds the
// still-pending roots as execution step 1.
func (r *run) start(inputMap map[string]value.Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.runningLoop {
		return newError(ErrCodeAlreadyRunning, "workflow "+r.wf.ID()+" is already running")
	}
	r.runningLoop = true

	for _, id := range r.wf.Roots() {
		st := r.mustState(id)
		if st.status != StatusPending || st.enqueued {
			continue
		}
		inputs, ok := inputMap[id]
		if !ok {
			inputs = value.Sequence()
		}
		st.executionStep = 1
		st.enqueued = true
		r.queue = append(r.queue, queueItem{taskID: id, inputs: inputs})
	}
	if r.maxStep < 1 {
		r.maxStep = 1
	}
	return nil
}

// discover finds every pending task whose predecessors are all terminal,
// assembles its inputs, assigns it the current execution step, and
// enqueues it. All tasks discovered in one pass share a step number.
func (r *run) discover() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.aborted {
		return
	}

	// The current step is one past the highest step assigned so far. The
	// scan includes the provisional steps spawned tasks carry, so a task
	// unblocked after an immediately-dispatched spawn root always lands
	// on a later step than that root.
	currentStep := 1
	for _, st := range r.states {
		if st.executionStep >= currentStep {
			currentStep = st.executionStep + 1
		}
	}
	var newlyReady []queueItem

	for _, t := range r.wf.Tasks() {
		id := t.ID()
		st := r.states[id]
		if st == nil || st.status != StatusPending || st.enqueued {
			continue
		}
		if !r.predecessorsTerminalLocked(id) {
			continue
		}
		inputs := r.assembleInputsLocked(id)
		st.inputs = inputs
		st.executionStep = currentStep
		st.enqueued = true
		newlyReady = append(newlyReady, queueItem{taskID: id, inputs: inputs})
	}

	if len(newlyReady) > 0 {
		r.maxStep = currentStep
		r.queue = append(r.queue, newlyReady...)
	}
}

// predecessorsTerminalLocked reports whether every dependency-edge
// predecessor of id is Done or Failed. Caller must hold r.mu.
func (r *run) predecessorsTerminalLocked(id string) bool {
	for _, e := range r.wf.Edges() {
		if e.Dst != id {
			continue
		}
		pst := r.states[e.Src]
		if pst == nil || !pst.status.IsTerminal() {
			return false
		}
	}
	return true
}

// assembleInputsLocked builds a non-root task's inputs: an ordered
// sequence of predecessor outputs, in edge-insertion order, omitting
// predecessors whose output is absent or empty. Caller must hold r.mu.
func (r *run) assembleInputsLocked(id string) value.Value {
	var elems []value.Value
	for _, e := range r.wf.Edges() {
		if e.Dst != id {
			continue
		}
		pst := r.states[e.Src]
		if pst == nil || !pst.hasOutput || pst.output.IsEmpty() {
			continue
		}
		elems = append(elems, pst.output)
	}
	return value.Sequence(elems...)
}

// drain repeatedly empties the queue, dispatching each batch with bounded
// concurrency, until nothing remains. A spawned root carrying its own
// input can append to the queue mid-drain; this loop keeps absorbing
// those without waiting for the next discovery pass.
func (r *run) drain(ctx context.Context) error {
	for {
		r.mu.Lock()
		if r.aborted {
			err := r.abortErr
			r.mu.Unlock()
			return err
		}
		if len(r.queue) == 0 {
			r.mu.Unlock()
			return nil
		}
		batch := r.queue
		r.queue = nil
		r.mu.Unlock()

		limit := r.cfg.DispatchConcurrency
		if limit < 1 {
			limit = 1
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for _, item := range batch {
			item := item
			g.Go(func() error {
				r.dispatch(gctx, item)
				return nil
			})
		}
		_ = g.Wait()

		r.mu.Lock()
		aborted := r.aborted
		abortErr := r.abortErr
		r.mu.Unlock()
		if aborted {
			return abortErr
		}
	}
}

// dispatch invokes the task body synchronously (from the dispatching
// goroutine's perspective) and transitions the task to done or failed
// based on the outcome.
func (r *run) dispatch(ctx context.Context, item queueItem) {
	r.mu.Lock()
	st := r.states[item.taskID]
	if st == nil || st.status != StatusPending {
		r.mu.Unlock()
		return
	}
	st.status = StatusRunning
	st.inputs = item.inputs
	snap := r.snapshot(item.taskID)
	wfID := r.wf.ID()
	task, _ := r.wf.GetTask(item.taskID)
	r.mu.Unlock()

	r.logger.Debug().
		Str("workflow_id", wfID).
		Str("task_id", item.taskID).
		Int("execution_step", snap.ExecutionStep).
		Msg("dispatching task")
	r.notify(observer.KindTaskDispatched, snap, nil)

	body, ok := task.Body().(TaskBody)
	if !ok {
		r.finishFailed(item.taskID, newError(ErrCodeInvalidSpawn, "task "+item.taskID+" has no runnable body"))
		return
	}

	output, err := r.invoke(ctx, wfID, item.taskID, item.inputs, body)

	r.mu.Lock()
	if r.aborted {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if err != nil {
		r.finishFailed(item.taskID, err)
		return
	}
	r.finishDone(item.taskID, output)
}

// invoke calls body, converting a panic into an error so one misbehaving
// task body fails only itself rather than taking down the dispatching
// goroutine.
func (r *run) invoke(ctx context.Context, wfID, taskID string, inputs value.Value, body TaskBody) (result value.Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task %s panicked: %v", taskID, rec)
		}
	}()
	return body(ctx, wfID, taskID, inputs, &boundHandle{r: r})
}

func (r *run) finishFailed(taskID string, cause error) {
	r.mu.Lock()
	st := r.states[taskID]
	if st == nil || st.status.IsTerminal() {
		r.mu.Unlock()
		return
	}
	st.status = StatusFailed
	snap := r.snapshot(taskID)
	wfID := r.wf.ID()
	r.mu.Unlock()

	r.logger.Warn().
		Err(cause).
		Str("workflow_id", wfID).
		Str("task_id", taskID).
		Msg("task failed")
	r.notify(observer.KindTaskFailed, snap, cause)
}

func (r *run) finishDone(taskID string, output value.Value) {
	r.mu.Lock()
	st := r.states[taskID]
	if st == nil || st.status.IsTerminal() {
		r.mu.Unlock()
		return
	}
	st.status = StatusDone
	st.output = output
	st.hasOutput = !output.IsEmpty()
	snap := r.snapshot(taskID)
	r.mu.Unlock()

	r.notify(observer.KindTaskCompleted, snap, nil)
}
