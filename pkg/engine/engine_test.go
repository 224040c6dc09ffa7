package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/rulebench/pkg/dataset"
	"mercator-hq/rulebench/pkg/results"
	"mercator-hq/rulebench/pkg/results/storage"
	"mercator-hq/rulebench/pkg/ruleset"
	"mercator-hq/rulebench/pkg/verifier"
)

type dataSetFunc func(ctx context.Context) ([]*dataset.DataSet, error)

func (f dataSetFunc) LoadDataSets(ctx context.Context) ([]*dataset.DataSet, error) { return f(ctx) }

type ruleSetFunc func(ctx context.Context) ([]*ruleset.RuleSet, error)

func (f ruleSetFunc) LoadRuleSets(ctx context.Context) ([]*ruleset.RuleSet, error) { return f(ctx) }

var (
	testClasses = dataset.NewVocabulary("yes", "no")
	testMetrics = dataset.NewVocabulary("a")
)

func staticDataSets(sets ...*dataset.DataSet) DataSetSource {
	return dataSetFunc(func(context.Context) ([]*dataset.DataSet, error) { return sets, nil })
}

// blockingDataSets waits for cancellation, so a run cannot finish before Stop.
func blockingDataSets() DataSetSource {
	return dataSetFunc(func(ctx context.Context) ([]*dataset.DataSet, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
}

func testDataSets() []*dataset.DataSet {
	return []*dataset.DataSet{
		dataset.New("d1",
			dataset.Record{Values: []string{"7"}, Class: "yes"},
			dataset.Record{Values: []string{"2"}, Class: "no"},
			dataset.Record{Values: []string{"9"}, Class: "no"},
		),
		dataset.New("d2",
			dataset.Record{Values: []string{"6"}, Class: "yes"},
		),
	}
}

// testRuleSets builds fresh rule sets on every load: "yes if a > 5" and an
// always-yes default.
func testRuleSets(t *testing.T, metric string) RuleSetSource {
	t.Helper()
	return ruleSetFunc(func(context.Context) ([]*ruleset.RuleSet, error) {
		cond, err := ruleset.NewEquation(metric, ruleset.OpGreater, "5")
		if err != nil {
			return nil, err
		}
		r, err := ruleset.NewRule("yes", cond)
		if err != nil {
			return nil, err
		}
		threshold := ruleset.New("threshold", "no", nil, nil)
		threshold.AddRule(r)
		return []*ruleset.RuleSet{threshold, ruleset.New("always", "yes", nil, nil)}, nil
	})
}

func collect(t *testing.T, e *Engine) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-e.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d", len(events))
		}
	}
}

func terminals(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type.IsTerminal() {
			out = append(out, ev)
		}
	}
	return out
}

func TestEngine_CompletesAndRecords(t *testing.T) {
	store := storage.NewMemoryStorage()
	cfg := DefaultRunConfig().WithThreads(2)

	e, err := New(cfg, Dependencies{
		DataSets: staticDataSets(testDataSets()...),
		RuleSets: testRuleSets(t, "a"),
		Classes:  testClasses,
		Metrics:  testMetrics,
		Sink:     store,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := e.Launch(context.Background()); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	events := collect(t, e)
	if err := e.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if events[0].Type != EventStarted {
		t.Errorf("first event = %v, want started", events[0].Type)
	}
	term := terminals(events)
	if len(term) != 1 || term[0].Type != EventCompleted {
		t.Fatalf("terminal events = %v, want one completed", term)
	}
	if events[len(events)-1].Type != EventCompleted {
		t.Errorf("last event = %v, want completed", events[len(events)-1].Type)
	}
	if !e.Done() || e.Progress() != 100 {
		t.Errorf("Done() = %v, Progress() = %v, want true, 100", e.Done(), e.Progress())
	}

	report, err := store.Report(context.Background(), e.RunID())
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if report.Run.Status != results.StatusCompleted {
		t.Errorf("Status = %q, want completed", report.Run.Status)
	}
	if got := len(report.DataSets); got != 4 {
		t.Errorf("len(DataSets) = %d, want 4", got)
	}
	if got := len(report.Matrices); got != 6 {
		t.Errorf("len(Matrices) = %d, want 6 (4 per-dataset, 2 cumulative)", got)
	}
	if got := len(report.Definitions); got != 2 {
		t.Errorf("len(Definitions) = %d, want 2", got)
	}
	if got := len(report.Summary); got != 6 {
		t.Errorf("len(Summary) = %d, want 6", got)
	}

	for _, m := range report.Matrices {
		if m.RuleSet != "threshold" || m.Scope != results.ScopeCumulative {
			continue
		}
		want := [][]int{{2, 0}, {1, 1}}
		for i := range want {
			for j := range want[i] {
				if m.Matrix[i][j] != want[i][j] {
					t.Errorf("cumulative matrix = %v, want %v", m.Matrix, want)
				}
			}
		}
	}

	for _, rs := range e.RuleSets() {
		if !rs.IndiMatrix().IsZero() {
			t.Errorf("rule set %s per-dataset matrix not reset", rs.ID())
		}
	}
}

func TestEngine_ProgressMonotonic(t *testing.T) {
	var sets []*dataset.DataSet
	for i := 0; i < 20; i++ {
		sets = append(sets, testDataSets()...)
	}

	e, err := New(DefaultRunConfig().WithThreads(4), Dependencies{
		DataSets: staticDataSets(sets...),
		RuleSets: testRuleSets(t, "a"),
		Classes:  testClasses,
		Metrics:  testMetrics,
		Sink:     storage.NewMemoryStorage(),
	}, WithEventBuffer(1000))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	e.Launch(context.Background())

	last := 0.0
	for _, ev := range collect(t, e) {
		if ev.Type != EventProgress {
			continue
		}
		if ev.Progress < last {
			t.Fatalf("progress went from %v to %v", last, ev.Progress)
		}
		last = ev.Progress
	}
	if last != 100 {
		t.Errorf("final progress = %v, want 100", last)
	}
}

func TestEngine_SmallBufferStillDeliversTerminal(t *testing.T) {
	e, err := New(DefaultRunConfig(), Dependencies{
		DataSets: staticDataSets(testDataSets()...),
		RuleSets: testRuleSets(t, "a"),
		Classes:  testClasses,
		Metrics:  testMetrics,
		Sink:     storage.NewMemoryStorage(),
	}, WithEventBuffer(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	events := collect(t, e)
	if len(events) != 2 || events[0].Type != EventStarted || events[1].Type != EventCompleted {
		t.Errorf("events = %v, want [started completed]", events)
	}
}

func TestEngine_StopImmediatelyAfterLaunch(t *testing.T) {
	e, err := New(DefaultRunConfig(), Dependencies{
		DataSets: blockingDataSets(),
		RuleSets: testRuleSets(t, "a"),
		Classes:  testClasses,
		Metrics:  testMetrics,
		Sink:     storage.NewMemoryStorage(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	e.Launch(context.Background())
	e.Stop()
	events := collect(t, e)

	term := terminals(events)
	if len(term) != 1 || term[0].Type != EventForceStopped {
		t.Fatalf("terminal events = %v, want exactly one force_stopped", term)
	}
	for _, ev := range events {
		if ev.Type == EventCompleted {
			t.Error("got completed event after stop")
		}
	}
	if err := e.Wait(); !errors.Is(err, ErrStopped) {
		t.Errorf("Wait() error = %v, want ErrStopped", err)
	}
}

func TestEngine_StopImmediately_FiveByFive(t *testing.T) {
	const n = 5

	// The datasets are released only after Stop, so the run has to notice the
	// stop between steps rather than finish first.
	release := make(chan struct{})
	data := dataSetFunc(func(ctx context.Context) ([]*dataset.DataSet, error) {
		<-release
		var sets []*dataset.DataSet
		for i := 0; i < n; i++ {
			sets = append(sets, testDataSets()[0])
		}
		return sets, nil
	})
	rules := ruleSetFunc(func(context.Context) ([]*ruleset.RuleSet, error) {
		var sets []*ruleset.RuleSet
		for i := 0; i < n; i++ {
			sets = append(sets, ruleset.New("always", "yes", nil, nil))
		}
		return sets, nil
	})

	e, err := New(DefaultRunConfig().WithThreads(n), Dependencies{
		DataSets: data,
		RuleSets: rules,
		Classes:  testClasses,
		Metrics:  testMetrics,
		Sink:     storage.NewMemoryStorage(),
	}, WithEventBuffer(100))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := e.Launch(context.Background()); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	e.Stop()
	close(release)
	events := collect(t, e)

	term := terminals(events)
	if len(term) != 1 || term[0].Type != EventForceStopped {
		t.Fatalf("terminal events = %v, want exactly one force_stopped", term)
	}
	last := 0.0
	for _, ev := range events {
		switch ev.Type {
		case EventCompleted:
			t.Error("got completed event after stop")
		case EventProgress:
			if ev.Progress < last {
				t.Errorf("progress went from %v to %v", last, ev.Progress)
			}
			last = ev.Progress
		}
	}
	if err := e.Wait(); !errors.Is(err, ErrStopped) {
		t.Errorf("Wait() error = %v, want ErrStopped", err)
	}
}

func TestEngine_StopBeforeLaunch(t *testing.T) {
	e, err := New(DefaultRunConfig(), Dependencies{
		DataSets: staticDataSets(testDataSets()...),
		RuleSets: testRuleSets(t, "a"),
		Classes:  testClasses,
		Metrics:  testMetrics,
		Sink:     storage.NewMemoryStorage(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	e.Stop()
	e.Launch(context.Background())

	term := terminals(collect(t, e))
	if len(term) != 1 || term[0].Type != EventForceStopped {
		t.Errorf("terminal events = %v, want one force_stopped", term)
	}
}

func TestEngine_CancelledParentContext(t *testing.T) {
	e, err := New(DefaultRunConfig(), Dependencies{
		DataSets: blockingDataSets(),
		RuleSets: testRuleSets(t, "a"),
		Classes:  testClasses,
		Metrics:  testMetrics,
		Sink:     storage.NewMemoryStorage(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.Launch(ctx)
	cancel()

	term := terminals(collect(t, e))
	if len(term) != 1 || term[0].Type != EventForceStopped {
		t.Errorf("terminal events = %v, want one force_stopped", term)
	}
}

func TestEngine_LaunchTwice(t *testing.T) {
	e, err := New(DefaultRunConfig(), Dependencies{
		DataSets: staticDataSets(testDataSets()...),
		RuleSets: testRuleSets(t, "a"),
		Classes:  testClasses,
		Metrics:  testMetrics,
		Sink:     storage.NewMemoryStorage(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := e.Launch(context.Background()); err != nil {
		t.Fatalf("first Launch() error = %v", err)
	}
	if err := e.Launch(context.Background()); !errors.Is(err, ErrAlreadyLaunched) {
		t.Errorf("second Launch() error = %v, want ErrAlreadyLaunched", err)
	}
	e.Wait()
}

func TestEngine_WaitBeforeLaunch(t *testing.T) {
	e, err := New(DefaultRunConfig(), Dependencies{
		DataSets: staticDataSets(),
		RuleSets: testRuleSets(t, "a"),
		Classes:  testClasses,
		Metrics:  testMetrics,
		Sink:     storage.NewMemoryStorage(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := e.Wait(); !errors.Is(err, ErrNotLaunched) {
		t.Errorf("Wait() error = %v, want ErrNotLaunched", err)
	}
}

func TestEngine_JobErrorSurfacesOnce(t *testing.T) {
	bad := dataset.New("bad", dataset.Record{Values: []string{"1", "2", "3"}, Class: "yes"})
	store := storage.NewMemoryStorage()

	e, err := New(DefaultRunConfig(), Dependencies{
		DataSets: staticDataSets(bad),
		RuleSets: testRuleSets(t, "a"),
		Classes:  testClasses,
		Metrics:  testMetrics,
		Sink:     store,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	e.Launch(context.Background())

	term := terminals(collect(t, e))
	if len(term) != 1 || term[0].Type != EventError {
		t.Fatalf("terminal events = %v, want one error", term)
	}

	var jobErr *JobError
	if !errors.As(term[0].Err, &jobErr) {
		t.Fatalf("error = %v, want *JobError", term[0].Err)
	}
	if jobErr.DataSet != "bad" {
		t.Errorf("JobError.DataSet = %q, want bad", jobErr.DataSet)
	}
	if !errors.Is(term[0].Err, ruleset.ErrInvalidRecord) {
		t.Errorf("error = %v, want ErrInvalidRecord", term[0].Err)
	}
	if err := e.Wait(); err != term[0].Err {
		t.Errorf("Wait() = %v, want the event error", err)
	}

	run, err := store.GetRun(context.Background(), e.RunID())
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != results.StatusFailed || run.Error == "" {
		t.Errorf("run = %+v, want failed with error", run)
	}
}

func TestEngine_VerifiesAndCleans(t *testing.T) {
	metrics := dataset.NewVocabulary("alpha")
	v, err := verifier.New(verifier.DefaultConfig(), metrics, testClasses)
	if err != nil {
		t.Fatalf("verifier.New() error = %v", err)
	}

	sets := testDataSets()
	sets[0].Add([]string{"?"}, "yes")

	cfg := DefaultRunConfig()
	cfg.Clean = true
	cfg.Verify = true

	e, err := New(cfg, Dependencies{
		DataSets: staticDataSets(sets...),
		RuleSets: testRuleSets(t, "alpa"),
		Classes:  testClasses,
		Metrics:  metrics,
		Cleaner:  dataset.NewCleaner(metrics, testClasses, nil),
		Verifier: v,
		Sink:     storage.NewMemoryStorage(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	rs := e.RuleSets()[0]
	if got := rs.Rule(0).Conditions()[0].Metric(); got != "alpha" {
		t.Errorf("corrected metric = %q, want alpha", got)
	}
	if got := rs.Matrix().Sum(); got != 4 {
		t.Errorf("records tested = %d, want 4 after cleaning", got)
	}
}

func TestNew_MissingDependencies(t *testing.T) {
	full := func() Dependencies {
		return Dependencies{
			DataSets: staticDataSets(),
			RuleSets: testRuleSets(t, "a"),
			Classes:  testClasses,
			Metrics:  testMetrics,
			Sink:     storage.NewMemoryStorage(),
		}
	}

	tests := []struct {
		name   string
		mutate func(*RunConfig, *Dependencies)
		field  string
	}{
		{"datasets", func(_ *RunConfig, d *Dependencies) { d.DataSets = nil }, "DataSets"},
		{"rulesets", func(_ *RunConfig, d *Dependencies) { d.RuleSets = nil }, "RuleSets"},
		{"classes", func(_ *RunConfig, d *Dependencies) { d.Classes = nil }, "Classes"},
		{"metrics", func(_ *RunConfig, d *Dependencies) { d.Metrics = dataset.NewVocabulary() }, "Metrics"},
		{"cleaner", func(c *RunConfig, _ *Dependencies) { c.Clean = true }, "Cleaner"},
		{"organizer", func(c *RunConfig, _ *Dependencies) { c.Organize = true }, "Organizer"},
		{"verifier", func(c *RunConfig, _ *Dependencies) { c.Verify = true }, "Verifier"},
		{"sink", func(_ *RunConfig, d *Dependencies) { d.Sink = nil }, "Sink"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRunConfig()
			deps := full()
			tt.mutate(cfg, &deps)

			_, err := New(cfg, deps)
			if !errors.Is(err, ErrMissingDependency) {
				t.Fatalf("New() error = %v, want ErrMissingDependency", err)
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
				t.Errorf("ConfigError.Field = %v, want %s", cfgErr, tt.field)
			}
		})
	}
}

func TestNew_NoSinkWhenOutputsDisabled(t *testing.T) {
	cfg := &RunConfig{Name: "quiet", Threads: 1}
	e, err := New(cfg, Dependencies{
		DataSets: staticDataSets(testDataSets()...),
		RuleSets: testRuleSets(t, "a"),
		Classes:  testClasses,
		Metrics:  testMetrics,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := e.RuleSets()[0].Matrix().Sum(); got != 4 {
		t.Errorf("records tested = %d, want 4", got)
	}
}
