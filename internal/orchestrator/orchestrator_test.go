package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/dagflow/internal/graph"
	"github.com/smilemakc/dagflow/internal/observer"
	"github.com/smilemakc/dagflow/internal/value"
)

// stepRecorder collects the execution step each task carried on its
// task_dispatched event.
type stepRecorder struct {
	mu    sync.Mutex
	steps map[string]int
}

func newStepRecorder() *stepRecorder {
	return &stepRecorder{steps: make(map[string]int)}
}

func (s *stepRecorder) Notify(ev observer.Event) {
	if ev.Kind != observer.KindTaskDispatched {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[ev.Snapshot.TaskID] = ev.Snapshot.ExecutionStep
}

func (s *stepRecorder) step(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps[id]
}

func TestRegisterWorkflowDuplicateRejected(t *testing.T) {
	nc := noConstraint(t)
	wf := graph.NewWorkflow("dup")
	require.NoError(t, wf.AddTask(mustTask(t, "a", sumPlus(0), nc)))

	o := New(WithConfig(testCfg()))
	require.NoError(t, o.RegisterWorkflow(wf))

	err := o.RegisterWorkflow(graph.NewWorkflow("dup"))
	require.Error(t, err)
	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, ErrCodeAlreadyRunning, oerr.Code)
}

func TestCheckTaskStatusUnknownWorkflowOrTask(t *testing.T) {
	nc := noConstraint(t)
	wf := graph.NewWorkflow("known")
	require.NoError(t, wf.AddTask(mustTask(t, "a", sumPlus(0), nc)))

	o := New(WithConfig(testCfg()))
	require.NoError(t, o.RegisterWorkflow(wf))

	_, err := o.CheckTaskStatus("missing", "a")
	require.Error(t, err)

	_, err = o.CheckTaskStatus("known", "missing")
	require.Error(t, err)
	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, ErrCodeTaskNotFound, oerr.Code)
}

// TestSpawnEdgeUnrelatedEndpointAborts checks that a spawn whose new edge
// touches neither the creator nor the new task is rejected, and that the
// rejection aborts the whole workflow.
func TestSpawnEdgeUnrelatedEndpointAborts(t *testing.T) {
	nc := noConstraint(t)

	creatorBody := func(_ context.Context, _, taskID string, _ value.Value, h Handle) (value.Value, error) {
		n := mustTask(t, "N", sumPlus(0), nc)
		return value.Null(), h.SpawnTask(taskID, n, []graph.EdgeRef{{Src: "B", Dst: "C"}}, value.Value{}, false, false)
	}

	wf := graph.NewWorkflow("unrelated-edge")
	require.NoError(t, wf.AddTask(mustTask(t, "A", creatorBody, nc)))
	require.NoError(t, wf.AddTask(mustTask(t, "B", sumPlus(0), nc)))
	require.NoError(t, wf.AddTask(mustTask(t, "C", sumPlus(0), nc)))

	o := New(WithConfig(testCfg()))
	require.NoError(t, o.RegisterWorkflow(wf))

	err := o.RunWorkflow(context.Background(), "unrelated-edge", nil)
	require.Error(t, err)
	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)

	for _, id := range []string{"A", "B", "C"} {
		rep, statusErr := o.CheckTaskStatus("unrelated-edge", id)
		require.NoError(t, statusErr)
		assert.Equal(t, StatusFailed, rep.Status, id)
	}
}

// TestCompleteTaskTerminalGuard exercises the Handle.CompleteTask surface
// exposed for custom dispatchers: the first completion wins, a second one
// is rejected, and the default dispatcher does not overwrite a result the
// body already recorded for itself.
func TestCompleteTaskTerminalGuard(t *testing.T) {
	nc := noConstraint(t)

	body := func(_ context.Context, _, taskID string, _ value.Value, h Handle) (value.Value, error) {
		require.NoError(t, h.CompleteTask(taskID, value.Int(5)))
		err := h.CompleteTask(taskID, value.Int(99))
		require.Error(t, err)
		return value.Int(9), nil
	}

	wf := graph.NewWorkflow("complete-guard")
	require.NoError(t, wf.AddTask(mustTask(t, "a", body, nc)))

	o := New(WithConfig(testCfg()))
	require.NoError(t, o.RegisterWorkflow(wf))
	require.NoError(t, o.RunWorkflow(context.Background(), "complete-guard", nil))

	rep, err := o.CheckTaskStatus("complete-guard", "a")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, rep.Status)
	assert.Equal(t, int64(5), rep.Result.Int64())
}

// TestSpawnImmediateRootDispatchedSameRun checks that a spawn carrying
// its own input and no incoming edge is enqueued as a root of the
// post-mutation graph and executes within the same run, one step after
// its creator.
func TestSpawnImmediateRootDispatchedSameRun(t *testing.T) {
	nc := noConstraint(t)

	starterBody := func(_ context.Context, _, taskID string, _ value.Value, h Handle) (value.Value, error) {
		side := mustTask(t, "Side", sumPlus(1), nc)
		return value.Null(), h.SpawnTask(taskID, side, nil, value.Int(3), true, false)
	}

	wf := graph.NewWorkflow("immediate-root")
	require.NoError(t, wf.AddTask(mustTask(t, "Starter", starterBody, nc)))

	rec := newStepRecorder()
	o := New(WithConfig(testCfg()), WithHook(rec))
	require.NoError(t, o.RegisterWorkflow(wf))
	require.NoError(t, o.RunWorkflow(context.Background(), "immediate-root", nil))

	rep, err := o.CheckTaskStatus("immediate-root", "Side")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, rep.Status)
	assert.Equal(t, int64(4), rep.Result.Int64())

	assert.Equal(t, 1, rec.step("Starter"))
	assert.Equal(t, 2, rec.step("Side"))
}

// TestExecutionStepMonotonicAcrossChain asserts that every edge's
// destination is dispatched at a strictly later step than its source.
func TestExecutionStepMonotonicAcrossChain(t *testing.T) {
	nc := noConstraint(t)

	wf := graph.NewWorkflow("chain")
	require.NoError(t, wf.AddTask(mustTask(t, "a", sumPlus(1), nc)))
	require.NoError(t, wf.AddTask(mustTask(t, "b", sumPlus(1), nc), "a"))
	require.NoError(t, wf.AddTask(mustTask(t, "c", sumPlus(1), nc), "b"))

	rec := newStepRecorder()
	o := New(WithConfig(testCfg()), WithHook(rec))
	require.NoError(t, o.RegisterWorkflow(wf))
	require.NoError(t, o.RunWorkflow(context.Background(), "chain", nil))

	assert.Equal(t, 1, rec.step("a"))
	assert.Equal(t, 2, rec.step("b"))
	assert.Equal(t, 3, rec.step("c"))
}

// TestSpawnRespectsVisualEdgeWithoutDependency checks that the
// spawn-relationship visual edge does not impose a scheduling dependency,
// and that suppressing it leaves no display edge either.
func TestSpawnRespectsVisualEdgeWithoutDependency(t *testing.T) {
	nc := noConstraint(t)

	starterBody := func(_ context.Context, _, taskID string, _ value.Value, h Handle) (value.Value, error) {
		shown := mustTask(t, "Shown", sumPlus(0), nc)
		if err := h.SpawnTask(taskID, shown, nil, value.Value{}, false, false); err != nil {
			return value.Null(), err
		}
		hidden := mustTask(t, "Hidden", sumPlus(0), nc)
		return value.Null(), h.SpawnTask(taskID, hidden, nil, value.Value{}, false, true)
	}

	wf := graph.NewWorkflow("visual")
	require.NoError(t, wf.AddTask(mustTask(t, "Starter", starterBody, nc)))

	o := New(WithConfig(testCfg()))
	require.NoError(t, o.RegisterWorkflow(wf))
	require.NoError(t, o.RunWorkflow(context.Background(), "visual", nil))

	assert.Empty(t, wf.Edges())
	assert.Contains(t, wf.VisualEdges(), graph.EdgeRef{Src: "Starter", Dst: "Shown"})
	assert.NotContains(t, wf.VisualEdges(), graph.EdgeRef{Src: "Starter", Dst: "Hidden"})

	for _, id := range []string{"Starter", "Shown", "Hidden"} {
		rep, err := o.CheckTaskStatus("visual", id)
		require.NoError(t, err)
		assert.Equal(t, StatusDone, rep.Status, id)
	}
}
