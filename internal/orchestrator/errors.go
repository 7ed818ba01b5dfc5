package orchestrator

import (
	"fmt"

	"go.uber.org/multierr"
)

// Error codes for the orchestrator.
const (
	ErrCodeNotRegistered  = "WORKFLOW_NOT_REGISTERED"
	ErrCodeAlreadyRunning = "WORKFLOW_ALREADY_RUNNING"
	ErrCodeTaskNotFound   = "TASK_NOT_FOUND"
	ErrCodeInvalidSpawn   = "INVALID_SPAWN"
	ErrCodeQuotaExceeded  = "SPAWN_QUOTA_EXCEEDED"
	ErrCodeAborted        = "WORKFLOW_ABORTED"
)

// Error is the orchestrator's code-carrying error, mirroring
// internal/graph.Error so callers can switch on Code across both packages
// with the same pattern.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrapError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// AbortError reports a run terminated by the spawn service's atomic-abort
// rule: any spawn-time violation aborts the entire run, forcing every
// non-terminal task to failed. It carries the triggering cause and the
// set of task ids that were force-failed as a result.
type AbortError struct {
	WorkflowID      string
	Cause           error
	ForceFailedTask []string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("workflow %s aborted: %v (force-failed: %v)", e.WorkflowID, e.Cause, e.ForceFailedTask)
}

func (e *AbortError) Unwrap() error { return e.Cause }

// Combined returns the abort cause combined with one synthetic error per
// force-failed task, for callers that want a multierr-flavored summary
// instead of the structured fields.
func (e *AbortError) Combined() error {
	err := e.Cause
	for _, id := range e.ForceFailedTask {
		err = multierr.Append(err, fmt.Errorf("task %s force-failed by abort", id))
	}
	return err
}
