package graph

import "fmt"

// Error codes for the constraint model and the workflow graph.
const (
	ErrCodeInvalidConstraint = "INVALID_CONSTRAINT"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodePolicyRejected    = "POLICY_REJECTED"
	ErrCodeCyclicDependency  = "CYCLIC_DEPENDENCY"
)

// Error is a code-carrying error shared by the constraint model and the
// workflow graph, so callers can switch on Code instead of matching
// message text.
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

// PolicyViolation carries the offending ids, direction and policy for a
// rejected node or edge check.
type PolicyViolation struct {
	Kind      string // "node" or "edge"
	Direction string
	Policy    Policy
	From      string
	To        string
}

func (v *PolicyViolation) Error() string {
	return fmt.Sprintf("%s check rejected %s -> %s under %s policy %s", v.Kind, v.From, v.To, v.Direction, v.Policy)
}
