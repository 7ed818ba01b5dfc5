package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskFor(t *testing.T, id string, opts ...ConstraintOption) Task {
	t.Helper()
	c := mustConstraint(t, opts...)
	task, err := NewTask(id, nil, c, nil)
	require.NoError(t, err)
	return task
}

func TestWorkflowAddTaskWiresDependencies(t *testing.T) {
	wf := NewWorkflow("wf1")
	require.NoError(t, wf.AddTask(taskFor(t, "a")))
	require.NoError(t, wf.AddTask(taskFor(t, "b")))
	require.NoError(t, wf.AddTask(taskFor(t, "c"), "a", "b"))

	assert.ElementsMatch(t, []EdgeRef{{Src: "a", Dst: "c"}, {Src: "b", Dst: "c"}}, wf.Edges())
	assert.ElementsMatch(t, []string{"a", "b"}, wf.Roots())
}

func TestWorkflowAddTaskDuplicateRejected(t *testing.T) {
	wf := NewWorkflow("wf1")
	require.NoError(t, wf.AddTask(taskFor(t, "a")))
	err := wf.AddTask(taskFor(t, "a"))
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, ErrCodeAlreadyExists, gerr.Code)
}

func TestWorkflowAddTaskUnknownDependencyRejected(t *testing.T) {
	wf := NewWorkflow("wf1")
	err := wf.AddTask(taskFor(t, "a"), "missing")
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, ErrCodeNotFound, gerr.Code)
}

func TestWorkflowAddTaskPolicyRejection(t *testing.T) {
	wf := NewWorkflow("wf1")
	require.NoError(t, wf.AddTask(taskFor(t, "dep")))
	blocked := taskFor(t, "blocked", WithPreviousNodesPolicy(PolicyAllowNone))

	err := wf.AddTask(blocked, "dep")
	require.Error(t, err)
	var viol *PolicyViolation
	require.ErrorAs(t, err, &viol)

	// The task itself was still inserted before the dependency loop ran,
	// so the workflow is left non-empty and the caller must discard it
	// rather than keep using it.
	assert.True(t, wf.HasTask("blocked"))
}

func TestWorkflowValidateAcyclicDetectsCycle(t *testing.T) {
	wf := NewWorkflow("wf1")
	require.NoError(t, wf.AddTask(taskFor(t, "a")))
	require.NoError(t, wf.AddTask(taskFor(t, "b"), "a"))
	require.NoError(t, wf.InsertTask(taskFor(t, "c")))
	require.NoError(t, wf.AddEdge("b", "c"))
	require.NoError(t, wf.AddEdge("c", "a"))

	err := wf.ValidateAcyclic()
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, ErrCodeCyclicDependency, gerr.Code)
}

func TestWorkflowRootsWithNoEdges(t *testing.T) {
	wf := NewWorkflow("wf1")
	require.NoError(t, wf.AddTask(taskFor(t, "a")))
	require.NoError(t, wf.AddTask(taskFor(t, "b")))
	assert.ElementsMatch(t, []string{"a", "b"}, wf.Roots())
}
