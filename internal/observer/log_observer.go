package observer

import "github.com/rs/zerolog"

// LogObserver is a Hook that logs every event through a zerolog.Logger,
// bridging the observer surface to structured logging.
type LogObserver struct {
	logger zerolog.Logger
}

// NewLogObserver wraps logger as a Hook.
func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

// Notify implements Hook.
func (lo *LogObserver) Notify(ev Event) {
	var e *zerolog.Event
	if ev.Err != nil {
		e = lo.logger.Error().Err(ev.Err)
	} else {
		e = lo.logger.Info()
	}
	e.Str("event", string(ev.Kind)).
		Str("workflow_id", ev.Snapshot.WorkflowID).
		Str("task_id", ev.Snapshot.TaskID).
		Str("status", ev.Snapshot.Status).
		Int("execution_step", ev.Snapshot.ExecutionStep).
		Msg("workflow event")
}
