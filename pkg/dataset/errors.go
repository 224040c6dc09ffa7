package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyVocabulary indicates a vocabulary file contained no labels.
	ErrEmptyVocabulary = errors.New("vocabulary is empty")

	// ErrMalformedRecord indicates a dataset line could not be split into
	// metric values and a classification.
	ErrMalformedRecord = errors.New("malformed record")
)

// ParseError reports a dataset line that could not be read.
type ParseError struct {
	Path string
	Line int
	Err  error
}

// Error returns the error message.
func (e *ParseError) Error() string {
	return fmt.Sprintf("dataset %s line %d: %v", e.Path, e.Line, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}
