package results

import (
	"context"
	"errors"
	"time"
)

// Sink receives the results of evaluation runs.
// Implementations must be safe for concurrent use.
type Sink interface {
	// BeginRun opens a run. Results for the run may be recorded afterwards.
	BeginRun(ctx context.Context, run *Run) error

	// RecordDataset stores the scores of one rule set on one dataset.
	RecordDataset(ctx context.Context, result *DatasetResult) error

	// RecordMatrix stores a cumulative or per-dataset confusion matrix.
	RecordMatrix(ctx context.Context, result *MatrixResult) error

	// RecordDefinition stores the textual rule-set definition.
	RecordDefinition(ctx context.Context, def *Definition) error

	// RecordTrace stores the sequential-mode trace of a rule set.
	RecordTrace(ctx context.Context, trace *TraceResult) error

	// RecordSummary stores the cross-ruleset summary of a run.
	RecordSummary(ctx context.Context, runID string, summary []FunctionSummary) error

	// EndRun closes a run with its final status. runErr is stored when non-nil.
	EndRun(ctx context.Context, runID string, status RunStatus, runErr error) error

	// Close releases resources held by the sink.
	Close() error
}

// Store is a Sink that can also be queried.
type Store interface {
	Sink

	// GetRun returns a run by ID, or ErrRunNotFound.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns returns runs matching the query, newest first.
	ListRuns(ctx context.Context, query *RunQuery) ([]*Run, error)

	// Report returns everything recorded for a run.
	Report(ctx context.Context, runID string) (*Report, error)

	// DeleteRunsBefore removes runs started before t, with all their results.
	// Returns the number of runs deleted.
	DeleteRunsBefore(ctx context.Context, t time.Time) (int64, error)
}

// MultiSink fans every call out to several sinks. Every sink is called even
// when an earlier one fails; the errors are joined.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink writing to every non-nil sink given.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of wrapped sinks.
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

func (m *MultiSink) each(fn func(Sink) error) error {
	var errs []error
	for _, s := range m.sinks {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) BeginRun(ctx context.Context, run *Run) error {
	return m.each(func(s Sink) error { return s.BeginRun(ctx, run) })
}

func (m *MultiSink) RecordDataset(ctx context.Context, result *DatasetResult) error {
	return m.each(func(s Sink) error { return s.RecordDataset(ctx, result) })
}

func (m *MultiSink) RecordMatrix(ctx context.Context, result *MatrixResult) error {
	return m.each(func(s Sink) error { return s.RecordMatrix(ctx, result) })
}

func (m *MultiSink) RecordDefinition(ctx context.Context, def *Definition) error {
	return m.each(func(s Sink) error { return s.RecordDefinition(ctx, def) })
}

func (m *MultiSink) RecordTrace(ctx context.Context, trace *TraceResult) error {
	return m.each(func(s Sink) error { return s.RecordTrace(ctx, trace) })
}

func (m *MultiSink) RecordSummary(ctx context.Context, runID string, summary []FunctionSummary) error {
	return m.each(func(s Sink) error { return s.RecordSummary(ctx, runID, summary) })
}

func (m *MultiSink) EndRun(ctx context.Context, runID string, status RunStatus, runErr error) error {
	return m.each(func(s Sink) error { return s.EndRun(ctx, runID, status, runErr) })
}

func (m *MultiSink) Close() error {
	return m.each(func(s Sink) error { return s.Close() })
}
