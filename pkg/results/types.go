package results

import (
	"time"

	"mercator-hq/rulebench/pkg/ruleset"
	"mercator-hq/rulebench/pkg/scoring"
)

// ScopeCumulative is the MatrixResult scope of a rule set's matrix over every
// dataset. Per-dataset matrices use the dataset name as scope.
const ScopeCumulative = "cumulative"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusStopped   RunStatus = "stopped"
	StatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether the status ends a run.
func (s RunStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusStopped || s == StatusFailed
}

// Run describes one evaluation run.
type Run struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Mode        string     `json:"mode"`
	RuleSets    int        `json:"rule_sets"`
	DataSets    int        `json:"data_sets"`
	Functions   []string   `json:"functions"`
	Status      RunStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// Duration returns the elapsed run time, or zero while the run is open.
func (r *Run) Duration() time.Duration {
	if r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// DatasetResult holds the scores of one rule set on one dataset.
type DatasetResult struct {
	RunID      string          `json:"run_id"`
	RuleSet    string          `json:"rule_set"`
	DataSet    string          `json:"data_set"`
	Records    int             `json:"records"`
	Scores     []scoring.Score `json:"scores"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// MatrixResult is a confusion matrix emitted for a rule set.
type MatrixResult struct {
	RunID   string  `json:"run_id"`
	RuleSet string  `json:"rule_set"`
	Scope   string  `json:"scope"`
	Matrix  [][]int `json:"matrix"`
}

// Definition is the textual form of a rule set as it was evaluated.
type Definition struct {
	RunID   string `json:"run_id"`
	RuleSet string `json:"rule_set"`
	Text    string `json:"text"`
}

// TraceResult lists which rule decided each case of a rule set.
type TraceResult struct {
	RunID   string               `json:"run_id"`
	RuleSet string               `json:"rule_set"`
	Entries []ruleset.TraceEntry `json:"entries"`
}

// FunctionSummary aggregates one scoring function over every rule set of a run.
type FunctionSummary struct {
	Function string          `json:"function"`
	Stats    scoring.Summary `json:"stats"`
}

// Report is everything stored for a run.
type Report struct {
	Run         *Run              `json:"run"`
	DataSets    []DatasetResult   `json:"data_sets,omitempty"`
	Matrices    []MatrixResult    `json:"matrices,omitempty"`
	Definitions []Definition      `json:"definitions,omitempty"`
	Traces      []TraceResult     `json:"traces,omitempty"`
	Summary     []FunctionSummary `json:"summary,omitempty"`
}

// RunQuery filters stored runs.
type RunQuery struct {
	Name   string
	Status RunStatus
	Since  *time.Time
	Until  *time.Time

	// Limit defaults to 100 when zero.
	Limit  int
	Offset int
}
