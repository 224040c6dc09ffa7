package source

import (
	"context"
	"sync"

	"mercator-hq/rulebench/pkg/ruleset"
)

// MemorySource is an in-memory rule-set source.
type MemorySource struct {
	mu       sync.RWMutex
	sets     []*ruleset.RuleSet
	watchers map[chan Event]struct{}
}

// NewMemorySource creates a new in-memory rule-set source.
func NewMemorySource(sets ...*ruleset.RuleSet) *MemorySource {
	return &MemorySource{
		sets:     sets,
		watchers: make(map[chan Event]struct{}),
	}
}

// LoadRuleSets returns clones of the stored rule sets, so runs never share
// matrices.
func (s *MemorySource) LoadRuleSets(ctx context.Context) ([]*ruleset.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.sets) == 0 {
		return nil, ErrNoRuleSets
	}
	out := make([]*ruleset.RuleSet, len(s.sets))
	for i, rs := range s.sets {
		out[i] = rs.Clone()
	}
	return out, nil
}

// Watch reports a modification every time SetRuleSets is called. The channel
// is closed when ctx is cancelled.
func (s *MemorySource) Watch(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch, nil
}

// SetRuleSets replaces the stored rule sets and notifies watchers. A watcher
// that has not consumed the previous notification is not sent another.
func (s *MemorySource) SetRuleSets(sets ...*ruleset.RuleSet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets = sets
	for ch := range s.watchers {
		select {
		case ch <- Event{Type: EventModified}:
		default:
		}
	}
}
