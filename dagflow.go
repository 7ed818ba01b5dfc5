// Package dagflow is a dynamic workflow orchestrator for directed acyclic
// task graphs whose shape may evolve during execution: task bodies may
// spawn new tasks and edges into the still-running graph, subject to
// per-task structural constraints.
package dagflow

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/smilemakc/dagflow/internal/config"
	"github.com/smilemakc/dagflow/internal/graph"
	"github.com/smilemakc/dagflow/internal/observer"
	"github.com/smilemakc/dagflow/internal/orchestrator"
	"github.com/smilemakc/dagflow/internal/value"
)

// Re-exported value-model types. Task bodies exchange untyped inputs and
// outputs through these tagged-value constructors.
type (
	Value = value.Value
	Kind  = value.Kind
)

const (
	KindNull     = value.KindNull
	KindInt      = value.KindInt
	KindFloat    = value.KindFloat
	KindString   = value.KindString
	KindSequence = value.KindSequence
	KindMap      = value.KindMap
)

var (
	Null     = value.Null
	Int      = value.Int
	Float    = value.Float
	String   = value.String
	Sequence = value.Sequence
	Map      = value.Map
	Sum      = value.Sum
)

// Re-exported graph-model types: the constraint model, policies, and the
// workflow graph itself.
type (
	Policy       = graph.Policy
	EdgeRef      = graph.EdgeRef
	Constraint   = graph.Constraint
	Task         = graph.Task
	Workflow     = graph.Workflow
	TaskBody     = orchestrator.TaskBody
	Handle       = orchestrator.Handle
	Status       = orchestrator.Status
	StatusReport = orchestrator.StatusReport
)

const (
	PolicyAllowAll  = graph.PolicyAllowAll
	PolicyAllowNone = graph.PolicyAllowNone
	PolicyCustom    = graph.PolicyCustom

	StatusPending = orchestrator.StatusPending
	StatusRunning = orchestrator.StatusRunning
	StatusDone    = orchestrator.StatusDone
	StatusFailed  = orchestrator.StatusFailed
)

type ConstraintOption = graph.ConstraintOption

var (
	WithMaxSpawnCount       = graph.WithMaxSpawnCount
	WithNextNodesPolicy     = graph.WithNextNodesPolicy
	WithPreviousNodesPolicy = graph.WithPreviousNodesPolicy
	WithOutgoingEdgesPolicy = graph.WithOutgoingEdgesPolicy
	WithIncomingEdgesPolicy = graph.WithIncomingEdgesPolicy

	NewConstraint = graph.NewConstraint
	NewWorkflow   = graph.NewWorkflow
)

// NewTask builds a Task whose body is a dagflow.TaskBody, wiring it
// through the opaque graph.TaskBody slot the Workflow carries.
func NewTask(id string, body TaskBody, constraint Constraint, metadata map[string]any) (Task, error) {
	return graph.NewTask(id, body, constraint, metadata)
}

// Observation-hook re-exports.
type (
	Hook     = observer.Hook
	Event    = observer.Event
	Snapshot = observer.Snapshot
	HookFunc = observer.HookFunc
	Manager  = observer.Manager
)

var (
	NewLogObserver      = observer.NewLogObserver
	NewBufferedObserver = observer.NewBufferedObserver
)

// Orchestrator drives registered workflows to completion.
type Orchestrator struct {
	inner *orchestrator.Orchestrator
}

// Option configures an Orchestrator built by NewOrchestrator.
type Option = orchestrator.Option

var (
	WithConfig = orchestrator.WithConfig
	WithLogger = orchestrator.WithLogger
	WithHook   = orchestrator.WithHook
)

// NewOrchestrator creates an empty Orchestrator ready to register
// workflows.
func NewOrchestrator(opts ...Option) *Orchestrator {
	return &Orchestrator{inner: orchestrator.New(opts...)}
}

// RegisterWorkflow adds wf to the orchestrator, rejecting a duplicate id.
func (o *Orchestrator) RegisterWorkflow(wf *Workflow) error {
	return o.inner.RegisterWorkflow(wf)
}

// RunWorkflow blocks until every task in wfID is terminal, or returns the
// abort error raised by a spawn-time violation.
func (o *Orchestrator) RunWorkflow(ctx context.Context, wfID string, inputMap map[string]Value) error {
	return o.inner.RunWorkflow(ctx, wfID, inputMap)
}

// CheckTaskStatus reports the current status (and output, if any) of
// (wfID, taskID).
func (o *Orchestrator) CheckTaskStatus(wfID, taskID string) (StatusReport, error) {
	return o.inner.CheckTaskStatus(wfID, taskID)
}

// Hooks returns the Orchestrator's shared observer.Manager so additional
// observers can be registered after construction.
func (o *Orchestrator) Hooks() *Manager { return o.inner.Hooks() }

// LoadConfig loads the runtime tunables from the environment, for callers
// that want to build their own WithConfig option instead of accepting
// defaults.
func LoadConfig() *config.Config { return config.Load() }

// DefaultLogger returns a zerolog.Logger writing to stderr at info level.
func DefaultLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}
