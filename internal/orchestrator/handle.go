package orchestrator

import (
	"context"

	"github.com/smilemakc/dagflow/internal/graph"
	"github.com/smilemakc/dagflow/internal/value"
)

// TaskBody is the callable every graph.Task wraps: it receives the
// workflow id, its own task id, its assembled inputs, and a Handle onto
// the spawn service and status queries, and returns its output (or an
// error, which marks the task failed).
type TaskBody func(ctx context.Context, wfID, taskID string, inputs value.Value, h Handle) (value.Value, error)

// StatusReport is the result of CheckTaskStatus.
type StatusReport struct {
	Status    Status
	Result    value.Value
	HasResult bool
}

// Handle is the surface a running task body is given onto the
// orchestrator: the spawn service and status queries, plus the
// CompleteTask escape hatch for custom dispatchers. A Handle is only
// valid for the duration of the body invocation it was passed to.
type Handle interface {
	// SpawnTask inserts newTask into the running workflow, wired to
	// newEdges, after quota, policy and acyclicity checks. creatorID
	// must be the id of the task body calling SpawnTask.
	SpawnTask(creatorID string, newTask graph.Task, newEdges []graph.EdgeRef, inputData value.Value, hasInputData bool, skipVisualEdge bool) error

	// CheckTaskStatus reports the current status (and output, if any)
	// of taskID within this handle's workflow.
	CheckTaskStatus(taskID string) (StatusReport, error)

	// CompleteTask records result as taskID's output and marks it done.
	// The default dispatcher calls this implicitly on a body's normal
	// return; it is exposed here for custom dispatchers that manage
	// their own completion timing. A task already in a terminal state is
	// left untouched and the call returns an error, since terminal
	// statuses are sticky.
	CompleteTask(taskID string, result value.Value) error
}

// boundHandle implements Handle for one (run, creator-agnostic) scope. It
// is a thin adapter over run's already-locking methods.
type boundHandle struct {
	r *run
}

func (h *boundHandle) SpawnTask(creatorID string, newTask graph.Task, newEdges []graph.EdgeRef, inputData value.Value, hasInputData bool, skipVisualEdge bool) error {
	return h.r.spawnTask(creatorID, newTask, newEdges, inputData, hasInputData, skipVisualEdge)
}

func (h *boundHandle) CheckTaskStatus(taskID string) (StatusReport, error) {
	return h.r.checkTaskStatus(taskID)
}

func (h *boundHandle) CompleteTask(taskID string, result value.Value) error {
	return h.r.completeTask(taskID, result)
}
