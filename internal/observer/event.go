// Package observer implements the orchestrator's observation hook: a
// stable notification surface external renderers and loggers subscribe
// to. Observers never see orchestrator internals directly, only the
// read-only Snapshot attached to each Event, so a renderer cannot mutate
// state.
package observer

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies the notification point an Event was raised from.
type Kind string

const (
	KindWorkflowRegistered Kind = "workflow_registered"
	KindTaskRegistered     Kind = "task_registered"
	KindTaskDispatched     Kind = "task_dispatched"
	KindTaskCompleted      Kind = "task_completed"
	KindTaskFailed         Kind = "task_failed"
	KindTaskSpawned        Kind = "task_spawned"
	KindEdgeAdded          Kind = "edge_added"
	KindWorkflowAborted    Kind = "workflow_aborted"
)

// Snapshot is the read-only payload attached to an Event: enough for an
// external renderer to draw the graph, annotate status/step/inputs/
// outputs per task, and render tentative (not-yet-materialized) nodes
// implied by custom next-node policies.
type Snapshot struct {
	WorkflowID string
	TaskID     string // empty for workflow-level events

	Status        string
	ExecutionStep int
	Inputs        string
	Output        string
	HasOutput     bool

	Metadata map[string]any

	// TentativeNodes lists task ids named by a custom valid-next-nodes
	// policy that have not (yet) been materialized as registered tasks.
	// Populated on every task-level event; nil when the task's next-nodes
	// policy is not custom or every id it names is already registered.
	TentativeNodes []string

	// EdgeSrc and EdgeDst identify the edge an edge_added event refers
	// to. Left empty for every other event kind.
	EdgeSrc string
	EdgeDst string
}

// Event is one notification. Every Event gets its own ID so a renderer or
// log sink can dedupe/correlate notifications independently of the
// developer-supplied workflow/task ids, which stay plain strings.
type Event struct {
	ID   uuid.UUID
	Kind Kind
	At   time.Time
	Err  error // set for task_failed / workflow_aborted

	Snapshot Snapshot
}

// NewEvent stamps a Kind and Snapshot into a fully formed Event.
func NewEvent(kind Kind, snap Snapshot, err error) Event {
	return Event{
		ID:       uuid.New(),
		Kind:     kind,
		At:       time.Now(),
		Err:      err,
		Snapshot: snap,
	}
}
