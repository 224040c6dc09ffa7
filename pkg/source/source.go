package source

import (
	"context"

	"mercator-hq/rulebench/pkg/ruleset"
)

// RuleSetSource loads rule sets and reports changes to them.
type RuleSetSource interface {
	// LoadRuleSets returns every rule set of the source, unbound.
	LoadRuleSets(ctx context.Context) ([]*ruleset.RuleSet, error)

	// Watch reports changes until ctx is cancelled, then closes the channel.
	Watch(ctx context.Context) (<-chan Event, error)
}

// EventType is the kind of change a source reports.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventError
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a change reported by a source.
type Event struct {
	Type  EventType
	Path  string
	Error error
}
