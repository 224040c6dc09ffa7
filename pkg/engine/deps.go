package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/rulebench/pkg/dataset"
	"mercator-hq/rulebench/pkg/pool"
	"mercator-hq/rulebench/pkg/results"
	"mercator-hq/rulebench/pkg/ruleset"
	"mercator-hq/rulebench/pkg/scoring"
)

// DataSetSource provides the datasets of a run. dataset.Loader implements it.
type DataSetSource interface {
	LoadDataSets(ctx context.Context) ([]*dataset.DataSet, error)
}

// RuleSetSource provides the rule sets of a run.
type RuleSetSource interface {
	LoadRuleSets(ctx context.Context) ([]*ruleset.RuleSet, error)
}

// Cleaner removes malformed records. dataset.Cleaner implements it.
type Cleaner interface {
	CleanAll(ctx context.Context, sets []*dataset.DataSet) ([]dataset.CleanReport, error)
}

// Organizer groups dataset records by classification. dataset.Organizer
// implements it.
type Organizer interface {
	OrganizeAll(ctx context.Context, sets []*dataset.DataSet) error
}

// Verifier corrects unknown tokens in rule sets. verifier.Verifier implements
// it.
type Verifier interface {
	VerifyAll(ctx context.Context, sets []*ruleset.RuleSet, sched pool.Scheduler) error
}

// Summarizer aggregates scores across rule sets. results.Summarizer
// implements it.
type Summarizer interface {
	Summarize(sets []*ruleset.RuleSet) []results.FunctionSummary
}

// Recorder receives run measurements, typically for Prometheus.
type Recorder interface {
	RunStarted()
	RunFinished(status string, duration time.Duration)
	JobFinished(duration time.Duration, err error)
	RecordsTested(n int)
	SetProgress(percent float64)
}

// Dependencies are the collaborators of an Engine. DataSets, RuleSets,
// Classes and Metrics are required; the rest are required only when the run
// configuration enables the step that uses them.
type Dependencies struct {
	DataSets DataSetSource
	RuleSets RuleSetSource

	// Classes and Metrics are bound to every rule set before evaluation.
	Classes *dataset.Vocabulary
	Metrics *dataset.Vocabulary

	Cleaner   Cleaner
	Organizer Organizer
	Verifier  Verifier

	// Sink receives results. Required when any output is enabled.
	Sink results.Sink

	// Registry scores matrices. Defaults to the built-in functions.
	Registry *scoring.Registry

	// Summarizer defaults to a results.Summarizer over Registry.
	Summarizer Summarizer

	// Scheduler is shared by verification and evaluation jobs. Defaults to a
	// pool sized by RunConfig.ThreadCount().
	Scheduler pool.Scheduler

	Recorder Recorder
	Tracer   trace.Tracer
	Logger   *slog.Logger
}

// validate checks that every dependency cfg needs is present.
func (d *Dependencies) validate(cfg *RunConfig) error {
	switch {
	case d.DataSets == nil:
		return missing("DataSets")
	case d.RuleSets == nil:
		return missing("RuleSets")
	case d.Classes == nil || d.Classes.Len() == 0:
		return missing("Classes")
	case d.Metrics == nil || d.Metrics.Len() == 0:
		return missing("Metrics")
	case cfg.Clean && d.Cleaner == nil:
		return missing("Cleaner")
	case cfg.Organize && d.Organizer == nil:
		return missing("Organizer")
	case cfg.Verify && d.Verifier == nil:
		return missing("Verifier")
	case cfg.needsSink() && d.Sink == nil:
		return missing("Sink")
	}
	return nil
}

type noopRecorder struct{}

func (noopRecorder) RunStarted()                       {}
func (noopRecorder) RunFinished(string, time.Duration) {}
func (noopRecorder) JobFinished(time.Duration, error)  {}
func (noopRecorder) RecordsTested(int)                 {}
func (noopRecorder) SetProgress(float64)               {}
