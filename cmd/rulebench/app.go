package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"mercator-hq/rulebench/pkg/cli"
	"mercator-hq/rulebench/pkg/config"
	"mercator-hq/rulebench/pkg/dataset"
	"mercator-hq/rulebench/pkg/engine"
	"mercator-hq/rulebench/pkg/pool"
	"mercator-hq/rulebench/pkg/results"
	"mercator-hq/rulebench/pkg/results/export"
	"mercator-hq/rulebench/pkg/results/storage"
	"mercator-hq/rulebench/pkg/ruleset"
	"mercator-hq/rulebench/pkg/scoring"
	"mercator-hq/rulebench/pkg/source"
	"mercator-hq/rulebench/pkg/telemetry/health"
	"mercator-hq/rulebench/pkg/telemetry/logging"
	"mercator-hq/rulebench/pkg/telemetry/metrics"
	"mercator-hq/rulebench/pkg/telemetry/tracing"
	"mercator-hq/rulebench/pkg/verifier"
)

// app holds the collaborators shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	tracer    *tracing.Tracer
	collector *metrics.Collector
	store     results.Store
}

// loadConfig initializes the global configuration from --config.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, cli.NewConfigError("config", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()
	if cfg == nil {
		return nil, cli.NewConfigError("config", "configuration not initialized")
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newApp sets up logging, tracing and metrics from cfg. The result store is
// opened lazily by openStore.
func newApp(cfg *config.Config) (*app, error) {
	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Redact:    true,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	tc := cfg.Telemetry.Tracing
	tracer, err := tracing.New(&tracing.Config{
		Enabled:        tc.Enabled,
		Exporter:       tc.Exporter,
		Endpoint:       tc.Endpoint,
		Insecure:       tc.Insecure,
		Sampler:        tc.Sampler,
		SampleRatio:    tc.SampleRatio,
		ServiceName:    tc.ServiceName,
		ServiceVersion: Version,
		Writer:         os.Stderr,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}

	collector := metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Telemetry.Metrics.Enabled,
		Namespace: cfg.Telemetry.Metrics.Namespace,
	}, nil)

	return &app{
		cfg:       cfg,
		logger:    logger,
		tracer:    tracer,
		collector: collector,
	}, nil
}

// Close releases the store and flushes pending spans.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close result store", "error", err)
		}
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to shut down tracer", "error", err)
	}
}

// openStore opens the configured result store once.
func (a *app) openStore() (results.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := newStore(&a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("result store opened", "backend", a.cfg.Storage.Backend)
	a.store = store
	return store, nil
}

func newStore(cfg *config.StorageConfig) (results.Store, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite", "":
		sc := cfg.SQLite
		if sc.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(sc.Path), 0o755); err != nil {
				return nil, fmt.Errorf("create storage directory: %w", err)
			}
		}
		return storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         sc.Path,
			Driver:       sc.Driver,
			MaxOpenConns: sc.MaxOpenConns,
			MaxIdleConns: sc.MaxIdleConns,
			WALMode:      config.Bool(sc.WALMode, true),
			BusyTimeout:  sc.BusyTimeout,
		})
	default:
		return nil, cli.NewConfigError("storage.backend", fmt.Sprintf("unsupported backend %q", cfg.Backend))
	}
}

func loadVocabularies(cfg *config.InputsConfig) (classes, metricNames *dataset.Vocabulary, err error) {
	classes, err = dataset.LoadVocabulary(cfg.Classes)
	if err != nil {
		return nil, nil, fmt.Errorf("load classes: %w", err)
	}
	metricNames, err = dataset.LoadVocabulary(cfg.Metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("load metrics: %w", err)
	}
	return classes, metricNames, nil
}

func newRuleSetSource(cfg *config.RuleSetsConfig, logger *slog.Logger) (source.RuleSetSource, error) {
	switch cfg.Mode {
	case "git":
		g := cfg.Git
		return source.NewGitSource(&source.GitConfig{
			Repository:   g.Repository,
			Branch:       g.Branch,
			Path:         g.Path,
			LocalPath:    g.LocalPath,
			Depth:        g.Depth,
			CleanOnStart: g.CleanOnStart,
			Timeout:      g.Timeout,
			PollInterval: g.PollInterval,
			Auth: source.GitAuthConfig{
				Type:             g.Auth.Type,
				Token:            g.Auth.Token,
				SSHKeyPath:       g.Auth.SSHKeyPath,
				SSHKeyPassphrase: g.Auth.SSHKeyPassphrase,
			},
		}, logger)
	default:
		return source.NewFileSource(cfg.Path,
			source.WithLogger(logger),
			source.WithSkipInvalid(cfg.SkipInvalid),
		), nil
	}
}

func newDataSetLoader(cfg *config.InputsConfig, sched pool.Scheduler, logger *slog.Logger) *dataset.Loader {
	rc := dataset.DefaultReaderConfig()
	rc.HasHeader = cfg.HasHeader
	if r, _ := utf8.DecodeRuneInString(cfg.Delimiter); r != utf8.RuneError {
		rc.Delimiter = r
	}
	return dataset.NewLoader(cfg.DataSets, dataset.NewReader(rc),
		dataset.WithScheduler(sched),
		dataset.WithLogger(logger),
	)
}

// newRegistry returns the built-in scoring functions plus the configured
// cell formulas.
func newRegistry(formulas []config.FormulaConfig, logger *slog.Logger) (*scoring.Registry, error) {
	registry := scoring.NewRegistry(logger)
	for i, f := range formulas {
		cf := scoring.CellFormula{FormulaName: f.Name}
		for _, c := range f.Numerator {
			cf.Numerator = append(cf.Numerator, scoring.Cell(c))
		}
		for _, c := range f.Denominator {
			cf.Denominator = append(cf.Denominator, scoring.Cell(c))
		}
		if err := registry.Register(cf); err != nil {
			return nil, cli.NewConfigError(fmt.Sprintf("formulas[%d]", i), err.Error())
		}
	}
	return registry, nil
}

func newVerifier(cfg *config.VerifierConfig, autoCorrect bool, classes, metricNames *dataset.Vocabulary, recorder verifier.Recorder, logger *slog.Logger) (*verifier.Verifier, error) {
	vc := verifier.DefaultConfig().
		WithAutoCorrect(autoCorrect).
		WithThreshold(cfg.InitialThreshold, cfg.Step).
		WithMaxPromptAttempts(cfg.MaxPromptAttempts)

	return verifier.New(vc, metricNames, classes,
		verifier.WithRecorder(recorder),
		verifier.WithLogger(logger),
		verifier.WithPrompter(verifier.NewReaderPrompter(os.Stdin, os.Stderr)),
	)
}

// buildRunConfig maps the run section onto an engine configuration. A
// preset supplies steps and outputs; mode, range, threads and the name
// still come from cfg.
func buildRunConfig(cfg *config.Config) (*engine.RunConfig, error) {
	run := &cfg.Run

	var rc *engine.RunConfig
	if run.Preset != "" {
		p, err := engine.Preset(run.Preset)
		if err != nil {
			return nil, cli.NewConfigError("run.preset", err.Error())
		}
		rc = p
	} else {
		rc = engine.DefaultRunConfig()
		rc.Clean = run.Clean
		rc.LogClean = run.LogClean
		rc.Organize = run.Organize
		rc.Verify = run.Verify
		rc.AutoCorrect = config.Bool(cfg.Verifier.AutoCorrect, true)
		rc.Debug = run.Debug
		rc.Options.Track = run.Track

		out := run.Outputs
		rc.RecordResults = config.Bool(out.Results, true)
		rc.IndiMatrix = config.Bool(out.IndiMatrix, true)
		rc.Matrix = config.Bool(out.Matrix, true)
		rc.Definition = config.Bool(out.Definition, true)
		rc.Summary = config.Bool(out.Summary, true)
	}

	mode, err := ruleset.ParseMode(run.Mode)
	if err != nil {
		return nil, cli.NewConfigError("run.mode", err.Error())
	}
	rc.Options.Mode = mode
	rc.Options.MatchWithinRange = run.MatchWithinRange
	rc.Options.Range = run.Range

	if !config.Bool(run.AutoDetectCPU, true) {
		rc.WithThreads(run.Threads)
	}
	if run.Name != "" {
		rc.Name = run.Name
	}
	if run.Description != "" {
		rc.Description = run.Description
	}
	if err := rc.Validate(); err != nil {
		return nil, cli.NewConfigError("run", err.Error())
	}
	return rc, nil
}

// newEngine assembles an engine for one run over rules.
func (a *app) newEngine(rc *engine.RunConfig, rules source.RuleSetSource) (*engine.Engine, error) {
	inputs := &a.cfg.Inputs

	classes, metricNames, err := loadVocabularies(inputs)
	if err != nil {
		return nil, err
	}
	registry, err := newRegistry(a.cfg.Formulas, a.logger)
	if err != nil {
		return nil, err
	}
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}

	sched := pool.New(rc.ThreadCount())
	deps := engine.Dependencies{
		DataSets:  newDataSetLoader(inputs, sched, a.logger),
		RuleSets:  rules,
		Classes:   classes,
		Metrics:   metricNames,
		Cleaner:   dataset.NewCleaner(metricNames, classes, a.logger),
		Organizer: dataset.NewOrganizer(inputs.OrganizedDir, classes, a.logger),
		Sink:      store,
		Registry:  registry,
		Scheduler: sched,
		Recorder:  a.collector,
		Tracer:    a.tracer.Tracer(),
		Logger:    a.logger,
	}
	if rc.Verify {
		v, err := newVerifier(&a.cfg.Verifier, rc.AutoCorrect, classes, metricNames, a.collector, a.logger)
		if err != nil {
			return nil, cli.NewConfigError("verifier", err.Error())
		}
		deps.Verifier = v
	}

	return engine.New(rc, deps, engine.WithEventBuffer(a.cfg.Run.EventBuffer))
}

// formatterFor returns the formatter for format, styled when w is a
// terminal.
func formatterFor(format cli.OutputFormat, w io.Writer) cli.Formatter {
	f := cli.NewFormatter(format)
	if tf, ok := f.(*cli.TextFormatter); ok {
		tf.Styled = cli.IsTerminal(w)
	}
	return f
}

// exportReport writes the report of runID to dir and returns the file path.
func exportReport(ctx context.Context, store results.Store, runID, dir string, cfg *config.ExportConfig) (string, error) {
	exp, err := export.New(cfg.Format, export.Options{
		Pretty:        config.Bool(cfg.Pretty, true),
		IncludeHeader: config.Bool(cfg.IncludeHeader, true),
	})
	if err != nil {
		return "", err
	}

	report, err := store.Report(ctx, runID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, runID+export.Extension(cfg.Format))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := exp.Export(ctx, report, f); err != nil {
		return "", err
	}
	return path, f.Close()
}

// serveTelemetry exposes metrics, health and version endpoints when metrics
// are enabled. The returned function shuts the server down.
func (a *app) serveTelemetry(checker *health.Checker) (func(context.Context) error, error) {
	mc := a.cfg.Telemetry.Metrics
	if !mc.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	mux := http.NewServeMux()
	mux.Handle(mc.Path, a.collector.Handler())
	health.Mount(mux, checker, versionInfo())

	ln, err := net.Listen("tcp", mc.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", mc.Address, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("telemetry server failed", "error", err)
		}
	}()

	a.logger.Info("telemetry endpoints listening",
		"address", ln.Addr().String(),
		"metrics_path", mc.Path,
	)
	return srv.Shutdown, nil
}
