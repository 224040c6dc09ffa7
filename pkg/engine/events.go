package engine

import "time"

// EventType identifies an engine notification.
type EventType int

const (
	EventStarted EventType = iota
	EventProgress
	EventCompleted
	EventForceStopped
	EventError
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventForceStopped:
		return "force_stopped"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether t ends a run. Exactly one terminal event is sent
// per run, after which the event channel is closed.
func (t EventType) IsTerminal() bool {
	return t == EventCompleted || t == EventForceStopped || t == EventError
}

// Event is a notification sent on the engine's event channel.
type Event struct {
	Type  EventType
	RunID string

	// Progress is the completed share of (rule set, dataset) pairs, 0 to 100.
	Progress float64

	// Err is set on EventError.
	Err error

	Time time.Time
}
