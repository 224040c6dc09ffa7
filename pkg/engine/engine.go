package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/rulebench/pkg/dataset"
	"mercator-hq/rulebench/pkg/pool"
	"mercator-hq/rulebench/pkg/results"
	"mercator-hq/rulebench/pkg/ruleset"
	"mercator-hq/rulebench/pkg/scoring"
)

// DefaultEventBuffer is the capacity of the event channel.
const DefaultEventBuffer = 64

// Engine runs every rule set against every dataset. An Engine performs a
// single run; create a new one for each run.
type Engine struct {
	cfg  *RunConfig
	deps Dependencies

	sched      pool.Scheduler
	registry   *scoring.Registry
	summarizer Summarizer
	recorder   Recorder
	tracer     trace.Tracer
	logger     *slog.Logger

	runID  string
	events chan Event

	launched atomic.Bool
	stopped  atomic.Bool
	done     atomic.Bool

	// mu guards progress bookkeeping, cancel and every send on events.
	mu         sync.Mutex
	cancel     context.CancelFunc
	completed  int
	total      int
	progress   float64
	terminated bool

	finished chan struct{}
	err      error
	ruleSets []*ruleset.RuleSet
	dataSets []*dataset.DataSet
}

// Option configures an Engine.
type Option func(*Engine)

// WithEventBuffer sets the event channel capacity. Values below 2 are raised
// to 2 so the terminal event always fits.
func WithEventBuffer(n int) Option {
	return func(e *Engine) {
		if n < 2 {
			n = 2
		}
		e.events = make(chan Event, n)
	}
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.runID = id
	}
}

// New creates an engine for one run.
func New(cfg *RunConfig, deps Dependencies, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultRunConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(cfg); err != nil {
		return nil, err
	}

	c := *cfg
	c.Options = c.Options.Normalize()

	e := &Engine{
		cfg:      &c,
		deps:     deps,
		runID:    uuid.New().String(),
		events:   make(chan Event, DefaultEventBuffer),
		finished: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger = deps.Logger
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "engine", "run_id", e.runID)

	e.sched = deps.Scheduler
	if e.sched == nil {
		e.sched = pool.New(c.ThreadCount())
	}
	e.registry = deps.Registry
	if e.registry == nil {
		e.registry = scoring.NewRegistry(e.logger)
	}
	e.summarizer = deps.Summarizer
	if e.summarizer == nil {
		e.summarizer = results.NewSummarizer(e.registry)
	}
	e.recorder = deps.Recorder
	if e.recorder == nil {
		e.recorder = noopRecorder{}
	}
	e.tracer = deps.Tracer
	if e.tracer == nil {
		e.tracer = otel.Tracer("mercator-hq/rulebench/engine")
	}

	return e, nil
}

// RunID returns the identifier of the run.
func (e *Engine) RunID() string { return e.runID }

// Config returns a copy of the run configuration in effect.
func (e *Engine) Config() RunConfig { return *e.cfg }

// Events returns the event channel. It is closed after the terminal event.
func (e *Engine) Events() <-chan Event { return e.events }

// Done reports whether the run has ended.
func (e *Engine) Done() bool { return e.done.Load() }

// Progress returns the completed share of (rule set, dataset) pairs, 0 to 100.
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// RuleSets returns the evaluated rule sets once the run has ended.
func (e *Engine) RuleSets() []*ruleset.RuleSet {
	if !e.Done() {
		return nil
	}
	return e.ruleSets
}

// Launch starts the run in the background and returns immediately.
func (e *Engine) Launch(ctx context.Context) error {
	if !e.launched.CompareAndSwap(false, true) {
		return ErrAlreadyLaunched
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.send(Event{Type: EventStarted})
	e.mu.Unlock()

	// Stop may have been called before Launch.
	if e.stopped.Load() {
		cancel()
	}

	go e.run(runCtx)
	return nil
}

// Stop requests the run to end. In-flight jobs stop at their next checkpoint
// and the run ends with EventForceStopped. Stop is safe to call at any time
// and more than once.
func (e *Engine) Stop() {
	e.stopped.Store(true)

	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the run ends. It returns nil on completion, ErrStopped
// when stopped, or the run error.
func (e *Engine) Wait() error {
	if !e.launched.Load() {
		return ErrNotLaunched
	}
	<-e.finished
	return e.err
}

// Run launches the engine and waits for it.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Launch(ctx); err != nil {
		return err
	}
	return e.Wait()
}

func (e *Engine) run(ctx context.Context) {
	start := time.Now()
	e.recorder.RunStarted()
	e.logger.Info("run started", "name", e.cfg.Name, "threads", e.sched.Limit())

	ctx, span := e.tracer.Start(ctx, "engine.run", trace.WithAttributes(
		attribute.String("run.id", e.runID),
		attribute.String("run.name", e.cfg.Name),
		attribute.String("run.mode", e.cfg.Options.Mode.String()),
	))

	begun, err := e.execute(ctx)

	status := results.StatusCompleted
	terminal := Event{Type: EventCompleted}
	switch {
	case e.stopped.Load() || (err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled)):
		status = results.StatusStopped
		terminal = Event{Type: EventForceStopped}
		err = ErrStopped
		span.SetStatus(codes.Error, "stopped")
	case err != nil:
		status = results.StatusFailed
		terminal = Event{Type: EventError, Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	if begun {
		var runErr error
		if status == results.StatusFailed {
			runErr = err
		}
		// The run context may already be cancelled; the final status must
		// still be written.
		endCtx := context.WithoutCancel(ctx)
		if sinkErr := e.deps.Sink.EndRun(endCtx, e.runID, status, runErr); sinkErr != nil {
			e.logger.Error("failed to end run in sink", "error", sinkErr)
		}
	}

	e.recorder.RunFinished(string(status), time.Since(start))
	e.logger.Info("run finished",
		"status", status,
		"duration", time.Since(start),
		"error", err,
	)

	e.finish(terminal, err)
}

// execute performs the run steps. begun reports whether the run was opened
// in the sink.
func (e *Engine) execute(ctx context.Context) (begun bool, err error) {
	err = e.step(ctx, "load_datasets", func(ctx context.Context) error {
		sets, err := e.deps.DataSets.LoadDataSets(ctx)
		if err != nil {
			return fmt.Errorf("load datasets: %w", err)
		}
		e.dataSets = sets
		return nil
	})
	if err != nil {
		return false, err
	}

	if e.cfg.Clean {
		if err := e.step(ctx, "clean", e.clean); err != nil {
			return false, err
		}
	}

	if e.cfg.Organize {
		err := e.step(ctx, "organize", func(ctx context.Context) error {
			if err := e.deps.Organizer.OrganizeAll(ctx, e.dataSets); err != nil {
				return fmt.Errorf("organize datasets: %w", err)
			}
			return nil
		})
		if err != nil {
			return false, err
		}
	}

	err = e.step(ctx, "load_rulesets", func(ctx context.Context) error {
		rss, err := e.deps.RuleSets.LoadRuleSets(ctx)
		if err != nil {
			return fmt.Errorf("load rule sets: %w", err)
		}
		for _, rs := range rss {
			rs.Bind(e.deps.Classes, e.deps.Metrics)
		}
		e.ruleSets = rss
		return nil
	})
	if err != nil {
		return false, err
	}

	if e.cfg.Verify {
		err := e.step(ctx, "verify", func(ctx context.Context) error {
			if err := e.deps.Verifier.VerifyAll(ctx, e.ruleSets, e.sched); err != nil {
				return fmt.Errorf("verify rule sets: %w", err)
			}
			return nil
		})
		if err != nil {
			return false, err
		}
	}

	if e.stopped.Load() {
		return false, ErrStopped
	}

	e.mu.Lock()
	e.total = len(e.ruleSets) * len(e.dataSets)
	e.mu.Unlock()

	if e.deps.Sink != nil {
		if err := e.deps.Sink.BeginRun(ctx, e.newRun()); err != nil {
			return false, fmt.Errorf("begin run: %w", err)
		}
		begun = true
	}

	err = e.step(ctx, "jobs", func(ctx context.Context) error {
		tasks := make([]pool.Task, len(e.ruleSets))
		for i, rs := range e.ruleSets {
			rs := rs
			tasks[i] = func(ctx context.Context) error {
				return e.job(ctx, rs)
			}
		}
		return e.sched.Run(ctx, tasks)
	})
	if err != nil {
		return begun, err
	}

	if e.cfg.Summary && !e.stopped.Load() {
		summary := e.summarizer.Summarize(e.ruleSets)
		if err := e.deps.Sink.RecordSummary(ctx, e.runID, summary); err != nil {
			return begun, fmt.Errorf("record summary: %w", err)
		}
	}

	return begun, nil
}

// step runs fn inside a span unless a stop was requested.
func (e *Engine) step(ctx context.Context, name string, fn func(context.Context) error) error {
	if e.stopped.Load() {
		return ErrStopped
	}

	ctx, span := e.tracer.Start(ctx, "engine."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	e.logger.Debug("step finished", "step", name, "duration", time.Since(start), "error", err)
	return err
}

func (e *Engine) clean(ctx context.Context) error {
	reports, err := e.deps.Cleaner.CleanAll(ctx, e.dataSets)
	if err != nil {
		return fmt.Errorf("clean datasets: %w", err)
	}
	if e.cfg.LogClean {
		for _, r := range reports {
			e.logger.Info("dataset cleaned", "dataset", r.DataSet, "kept", r.Kept, "dropped", r.Dropped)
		}
	}
	return nil
}

// job evaluates one rule set against every dataset in order.
func (e *Engine) job(ctx context.Context, rs *ruleset.RuleSet) (err error) {
	id := rs.ID()
	ctx, span := e.tracer.Start(ctx, "engine.job", trace.WithAttributes(
		attribute.String("ruleset", id),
		attribute.Int("ruleset.rules", rs.Len()),
	))
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		e.recorder.JobFinished(time.Since(start), err)
	}()

	opts := e.cfg.Options
	sink := e.deps.Sink

	for _, ds := range e.dataSets {
		if e.stopped.Load() {
			return ErrStopped
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := rs.TestDataSet(ctx, ds, opts); err != nil {
			return &JobError{RuleSet: id, DataSet: ds.Name, Err: err}
		}
		e.recorder.RecordsTested(ds.Len())

		indi := rs.IndiMatrix()
		if e.cfg.RecordResults {
			err := sink.RecordDataset(ctx, &results.DatasetResult{
				RunID:      e.runID,
				RuleSet:    id,
				DataSet:    ds.Name,
				Records:    indi.Sum(),
				Scores:     e.registry.Scores(indi),
				RecordedAt: time.Now(),
			})
			if err != nil {
				return &JobError{RuleSet: id, DataSet: ds.Name, Err: err}
			}
		}
		if e.cfg.IndiMatrix {
			err := sink.RecordMatrix(ctx, &results.MatrixResult{
				RunID:   e.runID,
				RuleSet: id,
				Scope:   ds.Name,
				Matrix:  indi,
			})
			if err != nil {
				return &JobError{RuleSet: id, DataSet: ds.Name, Err: err}
			}
		}
		rs.IndiReset()

		e.advance()
		if e.cfg.Debug {
			e.logger.Info("dataset evaluated", "ruleset", id, "dataset", ds.Name, "records", ds.Len())
		}
	}

	if e.cfg.Definition {
		err := sink.RecordDefinition(ctx, &results.Definition{RunID: e.runID, RuleSet: id, Text: rs.String()})
		if err != nil {
			return &JobError{RuleSet: id, Err: err}
		}
	}
	if e.cfg.Matrix {
		err := sink.RecordMatrix(ctx, &results.MatrixResult{
			RunID:   e.runID,
			RuleSet: id,
			Scope:   results.ScopeCumulative,
			Matrix:  rs.Matrix(),
		})
		if err != nil {
			return &JobError{RuleSet: id, Err: err}
		}
	}
	if opts.Track {
		err := sink.RecordTrace(ctx, &results.TraceResult{RunID: e.runID, RuleSet: id, Entries: rs.Trace()})
		if err != nil {
			return &JobError{RuleSet: id, Err: err}
		}
	}

	e.logger.Debug("job finished", "ruleset", id, "duration", time.Since(start))
	return nil
}

// advance marks one (rule set, dataset) pair as complete.
func (e *Engine) advance() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.completed++
	if e.total > 0 {
		e.progress = float64(e.completed) / float64(e.total) * 100
	}
	e.recorder.SetProgress(e.progress)
	e.send(Event{Type: EventProgress, Progress: e.progress})
}

// send delivers a non-terminal event if it leaves room for the terminal one.
// Callers hold e.mu.
func (e *Engine) send(ev Event) {
	if e.terminated || len(e.events) >= cap(e.events)-1 {
		return
	}
	ev.RunID = e.runID
	ev.Time = time.Now()
	e.events <- ev
}

// finish sends the terminal event and closes the channel.
func (e *Engine) finish(ev Event, err error) {
	e.mu.Lock()
	e.terminated = true
	ev.RunID = e.runID
	ev.Time = time.Now()
	ev.Progress = e.progress
	e.events <- ev
	close(e.events)
	e.err = err
	e.done.Store(true)
	e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	close(e.finished)
}

func (e *Engine) newRun() *results.Run {
	return &results.Run{
		ID:          e.runID,
		Name:        e.cfg.Name,
		Description: e.cfg.Description,
		Mode:        e.cfg.Options.Mode.String(),
		RuleSets:    len(e.ruleSets),
		DataSets:    len(e.dataSets),
		Functions:   e.registry.Names(),
		Status:      results.StatusRunning,
		StartedAt:   time.Now(),
	}
}
