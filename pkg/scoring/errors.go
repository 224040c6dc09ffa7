package scoring

import (
	"errors"
	"fmt"
)

var (
	// ErrDivideByZero indicates a metric with an empty denominator.
	ErrDivideByZero = errors.New("division by zero")

	// ErrNotBinary indicates a two-class metric applied to a matrix of
	// another size.
	ErrNotBinary = errors.New("metric requires a 2x2 matrix")

	// ErrDuplicateFormula indicates a formula name already registered.
	ErrDuplicateFormula = errors.New("formula already registered")

	// ErrInvalidFormula indicates a formula without a name or with cells
	// outside the matrix.
	ErrInvalidFormula = errors.New("invalid formula")
)

// MetricError reports why a metric could not be computed.
type MetricError struct {
	Metric string
	Err    error
}

// Error returns the error message.
func (e *MetricError) Error() string {
	return fmt.Sprintf("%s: %v", e.Metric, e.Err)
}

// Unwrap returns the underlying cause.
func (e *MetricError) Unwrap() error {
	return e.Err
}
