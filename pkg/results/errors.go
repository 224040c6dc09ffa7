package results

import (
	"errors"
	"fmt"
)

var (
	// ErrRunNotFound is returned when a run ID is not present in a store.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunClosed is returned when results are recorded after EndRun.
	ErrRunClosed = errors.New("run already ended")
)

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("begin_run", "record_matrix", ...)
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// ExportError represents an error while exporting a report.
type ExportError struct {
	Format string // Export format ("json", "csv")
	RunID  string
	Cause  error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, run_id=%s]: %v", e.Format, e.RunID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format, runID string, cause error) *ExportError {
	return &ExportError{
		Format: format,
		RunID:  runID,
		Cause:  cause,
	}
}
