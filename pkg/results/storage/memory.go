package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mercator-hq/rulebench/pkg/results"
)

// MemoryStorage implements results.Store in process memory.
// It is intended for tests and for runs that do not need persistence.
type MemoryStorage struct {
	runs    map[string]*results.Run
	reports map[string]*results.Report
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		runs:    make(map[string]*results.Run),
		reports: make(map[string]*results.Report),
	}
}

func (s *MemoryStorage) BeginRun(ctx context.Context, run *results.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; ok {
		return results.NewStorageError("memory", "begin_run", fmt.Errorf("run %s already exists", run.ID))
	}

	// Create a copy to avoid mutation
	runCopy := copyRun(run)
	if runCopy.Status == "" {
		runCopy.Status = results.StatusRunning
	}
	s.runs[run.ID] = runCopy
	s.reports[run.ID] = &results.Report{}
	return nil
}

// report returns the open report of runID. Callers hold s.mu.
func (s *MemoryStorage) report(runID, op string) (*results.Report, error) {
	r, ok := s.reports[runID]
	if !ok {
		return nil, results.NewStorageError("memory", op, fmt.Errorf("%w: %s", results.ErrRunNotFound, runID))
	}
	if s.runs[runID].Status.IsTerminal() {
		return nil, results.NewStorageError("memory", op, fmt.Errorf("%w: %s", results.ErrRunClosed, runID))
	}
	return r, nil
}

func (s *MemoryStorage) RecordDataset(ctx context.Context, result *results.DatasetResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report(result.RunID, "record_dataset")
	if err != nil {
		return err
	}
	c := *result
	c.Scores = append(c.Scores[:0:0], result.Scores...)
	if c.RecordedAt.IsZero() {
		c.RecordedAt = time.Now()
	}
	r.DataSets = append(r.DataSets, c)
	return nil
}

func (s *MemoryStorage) RecordMatrix(ctx context.Context, result *results.MatrixResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report(result.RunID, "record_matrix")
	if err != nil {
		return err
	}
	c := *result
	c.Matrix = copyMatrix(result.Matrix)
	r.Matrices = append(r.Matrices, c)
	return nil
}

func (s *MemoryStorage) RecordDefinition(ctx context.Context, def *results.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report(def.RunID, "record_definition")
	if err != nil {
		return err
	}
	r.Definitions = append(r.Definitions, *def)
	return nil
}

func (s *MemoryStorage) RecordTrace(ctx context.Context, trace *results.TraceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report(trace.RunID, "record_trace")
	if err != nil {
		return err
	}
	c := *trace
	c.Entries = append(c.Entries[:0:0], trace.Entries...)
	r.Traces = append(r.Traces, c)
	return nil
}

func (s *MemoryStorage) RecordSummary(ctx context.Context, runID string, summary []results.FunctionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report(runID, "record_summary")
	if err != nil {
		return err
	}
	r.Summary = append(r.Summary, summary...)
	return nil
}

func (s *MemoryStorage) EndRun(ctx context.Context, runID string, status results.RunStatus, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return results.NewStorageError("memory", "end_run", fmt.Errorf("%w: %s", results.ErrRunNotFound, runID))
	}
	now := time.Now()
	run.Status = status
	run.EndedAt = &now
	if runErr != nil {
		run.Error = runErr.Error()
	}
	return nil
}

func (s *MemoryStorage) GetRun(ctx context.Context, runID string) (*results.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", results.ErrRunNotFound, runID)
	}
	return copyRun(run), nil
}

func (s *MemoryStorage) ListRuns(ctx context.Context, query *results.RunQuery) ([]*results.Run, error) {
	if query == nil {
		query = &results.RunQuery{}
	}

	s.mu.RLock()
	var runs []*results.Run
	for _, run := range s.runs {
		if matchesQuery(run, query) {
			runs = append(runs, copyRun(run))
		}
	}
	s.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	start := query.Offset
	if start > len(runs) {
		return []*results.Run{}, nil
	}
	end := start + limit
	if end > len(runs) {
		end = len(runs)
	}
	return runs[start:end], nil
}

func (s *MemoryStorage) Report(ctx context.Context, runID string) (*results.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", results.ErrRunNotFound, runID)
	}
	r := s.reports[runID]

	out := &results.Report{
		Run:         copyRun(run),
		DataSets:    append([]results.DatasetResult(nil), r.DataSets...),
		Definitions: append([]results.Definition(nil), r.Definitions...),
		Traces:      append([]results.TraceResult(nil), r.Traces...),
		Summary:     append([]results.FunctionSummary(nil), r.Summary...),
	}
	for _, m := range r.Matrices {
		m.Matrix = copyMatrix(m.Matrix)
		out.Matrices = append(out.Matrices, m)
	}
	return out, nil
}

func (s *MemoryStorage) DeleteRunsBefore(ctx context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, run := range s.runs {
		if run.StartedAt.Before(t) {
			delete(s.runs, id)
			delete(s.reports, id)
			count++
		}
	}
	return count, nil
}

// Close is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}

// Len returns the number of stored runs.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func matchesQuery(run *results.Run, query *results.RunQuery) bool {
	if query.Name != "" && run.Name != query.Name {
		return false
	}
	if query.Status != "" && run.Status != query.Status {
		return false
	}
	if query.Since != nil && run.StartedAt.Before(*query.Since) {
		return false
	}
	if query.Until != nil && run.StartedAt.After(*query.Until) {
		return false
	}
	return true
}

func copyRun(run *results.Run) *results.Run {
	c := *run
	c.Functions = append([]string(nil), run.Functions...)
	if run.EndedAt != nil {
		ended := *run.EndedAt
		c.EndedAt = &ended
	}
	return &c
}

func copyMatrix(m [][]int) [][]int {
	out := make([][]int, len(m))
	for i, row := range m {
		out[i] = append([]int(nil), row...)
	}
	return out
}

var _ results.Store = (*MemoryStorage)(nil)
