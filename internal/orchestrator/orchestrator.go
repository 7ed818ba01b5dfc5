// Package orchestrator drives a graph.Workflow from its roots to
// completion: a discovery/dispatch scheduler loop plus the spawn service
// task bodies use to grow the graph mid-run, on top of per-(workflow,
// task) execution state.
package orchestrator

import (
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/smilemakc/dagflow/internal/config"
	"github.com/smilemakc/dagflow/internal/graph"
	"github.com/smilemakc/dagflow/internal/observer"
)

// Orchestrator owns every registered workflow's run state. Different
// workflows are independent: the registry is a concurrent map so
// RegisterWorkflow/RunWorkflow for distinct ids never contend with one
// another.
type Orchestrator struct {
	runs   *xsync.MapOf[string, *run]
	hooks  *observer.Manager
	cfg    *config.Config
	logger zerolog.Logger
}

// Option configures an Orchestrator built by New.
type Option func(*Orchestrator)

// WithConfig overrides the default Config (config.Default(), which reads no
// environment variables).
func WithConfig(cfg *config.Config) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

// WithLogger overrides the default (disabled) zerolog.Logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithHook registers h on the Orchestrator's shared observer.Manager at
// construction time. Additional hooks can be registered later via Hooks().
func WithHook(h observer.Hook) Option {
	return func(o *Orchestrator) { o.hooks.Register(h) }
}

// New creates an empty Orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runs:   xsync.NewMapOf[string, *run](),
		hooks:  observer.NewManager(),
		cfg:    config.Default(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Hooks returns the Orchestrator's shared observer.Manager, so callers
// can register additional observers (e.g. observer.NewBufferedObserver())
// after construction.
func (o *Orchestrator) Hooks() *observer.Manager { return o.hooks }

// RegisterWorkflow adds wf to the registry, rejecting an id already
// present.
func (o *Orchestrator) RegisterWorkflow(wf *graph.Workflow) error {
	r := newRun(wf, o.hooks, o.cfg, o.logger)
	_, loaded := o.runs.LoadOrStore(wf.ID(), r)
	if loaded {
		return newError(ErrCodeAlreadyRunning, "workflow "+wf.ID()+" already registered")
	}

	o.hooks.Notify(observer.NewEvent(observer.KindWorkflowRegistered, observer.Snapshot{WorkflowID: wf.ID()}, nil))
	for _, t := range wf.Tasks() {
		r.mu.Lock()
		snap := r.snapshot(t.ID())
		r.mu.Unlock()
		o.hooks.Notify(observer.NewEvent(observer.KindTaskRegistered, snap, nil))
	}
	for _, e := range wf.Edges() {
		snap := observer.Snapshot{WorkflowID: wf.ID(), EdgeSrc: e.Src, EdgeDst: e.Dst}
		o.hooks.Notify(observer.NewEvent(observer.KindEdgeAdded, snap, nil))
	}
	return nil
}

// CheckTaskStatus reports the current status (and output, if any) of
// (wfID, taskID). Safe to call at any time, including after the run has
// finished or aborted.
func (o *Orchestrator) CheckTaskStatus(wfID, taskID string) (StatusReport, error) {
	r, ok := o.runs.Load(wfID)
	if !ok {
		return StatusReport{}, newError(ErrCodeNotRegistered, "workflow "+wfID+" not registered")
	}
	return r.checkTaskStatus(taskID)
}
