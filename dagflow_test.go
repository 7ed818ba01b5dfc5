package dagflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/dagflow"
)

func sumPlus(n int64) dagflow.TaskBody {
	return func(_ context.Context, _, _ string, inputs dagflow.Value, _ dagflow.Handle) (dagflow.Value, error) {
		return dagflow.Int(dagflow.Sum(inputs).Int64() + n), nil
	}
}

func TestPublicAPILinearFanIn(t *testing.T) {
	c, err := dagflow.NewConstraint()
	require.NoError(t, err)

	a, err := dagflow.NewTask("a", sumPlus(1), c, nil)
	require.NoError(t, err)
	b, err := dagflow.NewTask("b", sumPlus(10), c, nil)
	require.NoError(t, err)

	wf := dagflow.NewWorkflow("wf")
	require.NoError(t, wf.AddTask(a))
	require.NoError(t, wf.AddTask(b, "a"))

	buffered := dagflow.NewBufferedObserver()
	orch := dagflow.NewOrchestrator(dagflow.WithHook(buffered))
	require.NoError(t, orch.RegisterWorkflow(wf))

	inputs := map[string]dagflow.Value{
		"a": dagflow.Sequence(dagflow.Int(1), dagflow.Int(2)),
	}
	require.NoError(t, orch.RunWorkflow(context.Background(), "wf", inputs))

	aRep, err := orch.CheckTaskStatus("wf", "a")
	require.NoError(t, err)
	assert.Equal(t, dagflow.StatusDone, aRep.Status)
	assert.Equal(t, int64(4), aRep.Result.Int64())

	bRep, err := orch.CheckTaskStatus("wf", "b")
	require.NoError(t, err)
	assert.Equal(t, dagflow.StatusDone, bRep.Status)
	assert.Equal(t, int64(14), bRep.Result.Int64())
}

func TestRunningAlreadyRunningWorkflowRejected(t *testing.T) {
	c, err := dagflow.NewConstraint()
	require.NoError(t, err)
	blocker := make(chan struct{})
	body := func(_ context.Context, _, _ string, _ dagflow.Value, _ dagflow.Handle) (dagflow.Value, error) {
		<-blocker
		return dagflow.Null(), nil
	}
	task, err := dagflow.NewTask("a", body, c, nil)
	require.NoError(t, err)

	wf := dagflow.NewWorkflow("wf2")
	require.NoError(t, wf.AddTask(task))

	orch := dagflow.NewOrchestrator()
	require.NoError(t, orch.RegisterWorkflow(wf))

	done := make(chan error, 1)
	go func() { done <- orch.RunWorkflow(context.Background(), "wf2", nil) }()

	// Wait for the first run to mark the task running, then attempt a
	// second concurrent run, which must be rejected.
	for {
		rep, statusErr := orch.CheckTaskStatus("wf2", "a")
		require.NoError(t, statusErr)
		if rep.Status == dagflow.StatusRunning {
			break
		}
		time.Sleep(time.Millisecond)
	}
	err = orch.RunWorkflow(context.Background(), "wf2", nil)
	require.Error(t, err)

	close(blocker)
	require.NoError(t, <-done)
}
