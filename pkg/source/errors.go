package source

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRuleSets indicates a source that yielded no rule sets.
	ErrNoRuleSets = errors.New("no rule sets found")

	// ErrInvalidDocument indicates a YAML document that is not a rule set.
	ErrInvalidDocument = errors.New("invalid rule set document")

	// ErrNotCloned indicates a git operation before Clone.
	ErrNotCloned = errors.New("repository not initialized, call Clone() first")
)

// ParseError reports a rule-set file that could not be parsed.
type ParseError struct {
	Path string
	Err  error
}

// Error returns the error message.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse rule set file %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
