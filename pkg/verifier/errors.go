package verifier

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedCorrection matches every UnresolvedCorrectionError.
	ErrUnresolvedCorrection = errors.New("unresolved correction")

	// ErrNoPrompter indicates manual correction was configured without a
	// Prompter.
	ErrNoPrompter = errors.New("manual correction requires a prompter")

	// ErrInvalidConfig indicates invalid verifier configuration.
	ErrInvalidConfig = errors.New("invalid verifier configuration")
)

// UnresolvedCorrectionError reports a token that no vocabulary entry could
// replace.
type UnresolvedCorrectionError struct {
	Kind  TokenKind
	Token string

	// Err is the prompter failure, if any.
	Err error
}

// Error returns the error message.
func (e *UnresolvedCorrectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to replace %s %q: %v", e.Kind, e.Token, e.Err)
	}
	return fmt.Sprintf("failed to replace %s %q", e.Kind, e.Token)
}

// Is reports whether target is ErrUnresolvedCorrection.
func (e *UnresolvedCorrectionError) Is(target error) bool {
	return target == ErrUnresolvedCorrection
}

// Unwrap returns the prompter failure.
func (e *UnresolvedCorrectionError) Unwrap() error {
	return e.Err
}
