package ruleset

import (
	"errors"
	"fmt"

	"mercator-hq/rulebench/pkg/dataset"
)

var (
	// ErrInvalidRecord matches every InvalidRecordError.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrClassificationCondition indicates a classification condition was
	// added where only equations are allowed.
	ErrClassificationCondition = errors.New("classification condition is not allowed in rule conditions")

	// ErrInvalidCondition indicates a condition was built without its
	// required parts.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrUnknownOperator indicates an operator token that is not supported.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrNoSuchCondition indicates an update for a metric the rule does not
	// test.
	ErrNoSuchCondition = errors.New("rule has no condition on metric")

	// ErrUnbound indicates a rule set was tested before vocabularies were
	// bound to it.
	ErrUnbound = errors.New("rule set has no vocabularies bound")
)

// InvalidRecordError reports a record that cannot be tested or recorded,
// such as one with more values than metrics or a label outside the
// classification vocabulary.
type InvalidRecordError struct {
	Record dataset.Record
	Reason string
}

// Error returns the error message.
func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record %q: %s", e.Record.String(), e.Reason)
}

// Is reports whether target is ErrInvalidRecord.
func (e *InvalidRecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}

func invalidRecord(rec dataset.Record, format string, args ...any) error {
	return &InvalidRecordError{Record: rec, Reason: fmt.Sprintf(format, args...)}
}
