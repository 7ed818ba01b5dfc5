package orchestrator

import (
	"github.com/smilemakc/dagflow/internal/observer"
	"github.com/smilemakc/dagflow/internal/value"
)

// checkTaskStatus reports taskID's current status and output. Safe to
// call at any time, including after the run has finished or aborted.
func (r *run) checkTaskStatus(taskID string) (StatusReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[taskID]
	if !ok {
		return StatusReport{}, newError(ErrCodeTaskNotFound, "task "+taskID+" not registered in workflow "+r.wf.ID())
	}
	return StatusReport{Status: st.status, Result: st.output, HasResult: st.hasOutput}, nil
}

// completeTask records result as taskID's output and marks it done:
// called implicitly by the dispatcher on a body's normal return, exposed
// for custom dispatchers. Terminal statuses are sticky, so a second
// completion attempt is rejected rather than silently overwriting the
// first result.
func (r *run) completeTask(taskID string, result value.Value) error {
	r.mu.Lock()
	st, ok := r.states[taskID]
	if !ok {
		r.mu.Unlock()
		return newError(ErrCodeTaskNotFound, "task "+taskID+" not registered in workflow "+r.wf.ID())
	}
	if st.status.IsTerminal() {
		r.mu.Unlock()
		return newError(ErrCodeInvalidSpawn, "task "+taskID+" is already terminal ("+string(st.status)+")")
	}
	st.status = StatusDone
	st.output = result
	st.hasOutput = !result.IsEmpty()
	snap := r.snapshot(taskID)
	r.mu.Unlock()

	r.notify(observer.KindTaskCompleted, snap, nil)
	return nil
}

// notify fires ev through the shared hook manager, if one is configured.
// Never called while r.mu is held: hooks must not be able to deadlock
// against the run they're observing.
func (r *run) notify(kind observer.Kind, snap observer.Snapshot, err error) {
	if r.hooks == nil {
		return
	}
	r.hooks.Notify(observer.NewEvent(kind, snap, err))
}
