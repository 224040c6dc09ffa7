package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyLaunched is returned by a second call to Launch.
	ErrAlreadyLaunched = errors.New("engine already launched")

	// ErrNotLaunched is returned by Wait before Launch.
	ErrNotLaunched = errors.New("engine not launched")

	// ErrStopped is returned by Wait when the run was stopped.
	ErrStopped = errors.New("run stopped")

	// ErrMissingDependency indicates a collaborator required by the run
	// configuration was not provided.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrInvalidConfig indicates an invalid run configuration.
	ErrInvalidConfig = errors.New("invalid run configuration")
)

// ConfigError names the configuration field or dependency that is missing or
// invalid.
type ConfigError struct {
	Field string
	Err   error
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return &ConfigError{Field: field, Err: ErrMissingDependency}
}

// JobError is a failure inside the evaluation job of one rule set.
// DataSet is empty when the failure happened after the dataset loop.
type JobError struct {
	RuleSet string
	DataSet string
	Err     error
}

// Error returns the error message.
func (e *JobError) Error() string {
	if e.DataSet == "" {
		return fmt.Sprintf("ruleset %s: %v", e.RuleSet, e.Err)
	}
	return fmt.Sprintf("ruleset %s dataset %s: %v", e.RuleSet, e.DataSet, e.Err)
}

// Unwrap returns the underlying cause.
func (e *JobError) Unwrap() error {
	return e.Err
}
