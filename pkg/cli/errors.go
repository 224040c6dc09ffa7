package cli

import (
	"errors"
	"fmt"

	"mercator-hq/rulebench/pkg/config"
	"mercator-hq/rulebench/pkg/engine"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
	ExitStopped = 130
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	var (
		cfgErr    *ConfigError
		validErr  config.ValidationError
		engineErr *engine.ConfigError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, engine.ErrStopped):
		return ExitStopped
	case errors.As(err, &cfgErr), errors.As(err, &validErr), errors.As(err, &engineErr):
		return ExitConfig
	default:
		return ExitFailure
	}
}
