package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/rulebench/pkg/cli"
	"mercator-hq/rulebench/pkg/config"
	"mercator-hq/rulebench/pkg/engine"
	"mercator-hq/rulebench/pkg/source"
	"mercator-hq/rulebench/pkg/telemetry/health"
	"mercator-hq/rulebench/pkg/telemetry/logging"
)

var runFlags struct {
	preset     string
	mode       string
	threads    int
	name       string
	exportDir  string
	format     string
	watch      bool
	noProgress bool
	dryRun     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a benchmark",
	Long: `Test every rule set against every dataset and store the results.

The run loads the classification and metric vocabularies, the datasets and
the rule sets, optionally cleans and organizes the datasets and verifies the
rule sets, then evaluates each (rule set, dataset) pair concurrently. Press
Ctrl+C to stop a run; partial results stay in the store with status
"stopped".

Examples:
  # Run with the settings of the config file
  rulebench run --config rulebench.yaml

  # Use a preset with voting mode on 8 threads
  rulebench run --preset high-speed --mode voting --threads 8

  # Re-run whenever a rule set or dataset changes
  rulebench run --watch

  # Show the resolved run settings without running
  rulebench run --dry-run`,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.preset, "preset", "p", "", "run preset (extreme-speed, high-speed, professional)")
	runCmd.Flags().StringVarP(&runFlags.mode, "mode", "m", "", "override testing mode (sequential, voting)")
	runCmd.Flags().IntVarP(&runFlags.threads, "threads", "t", 0, "fixed number of concurrent jobs (disables CPU detection)")
	runCmd.Flags().StringVar(&runFlags.name, "name", "", "run name")
	runCmd.Flags().StringVar(&runFlags.exportDir, "export-dir", "", "write the run report to this directory")
	runCmd.Flags().StringVarP(&runFlags.format, "output", "o", "text", "summary output format (text, json, csv)")
	runCmd.Flags().BoolVarP(&runFlags.watch, "watch", "w", false, "re-run when rule sets or datasets change")
	runCmd.Flags().BoolVar(&runFlags.noProgress, "no-progress", false, "disable the progress bar")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "print the run settings without running")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}

	format, err := cli.ParseOutputFormat(runFlags.format)
	if err != nil {
		return err
	}

	rc, err := buildRunConfig(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprint(out, rc.Describe())
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openStore()
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	rules, err := newRuleSetSource(&cfg.Inputs.RuleSets, a.logger)
	if err != nil {
		return cli.NewConfigError("inputs.rulesets", err.Error())
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	checker := health.New(2 * time.Second)
	checker.RegisterCheck("store", health.StoreCheck(store))
	shutdown, err := a.serveTelemetry(checker)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer shutdown(context.Background())

	r := &runner{
		app:      a,
		out:      out,
		format:   format,
		progress: !runFlags.noProgress,
	}

	if !runFlags.watch {
		_, err := r.runOnce(ctx, rc, rules)
		return err
	}
	return r.watch(ctx, rc, rules)
}

// applyRunFlags copies command-line overrides into cfg and revalidates it.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	if runFlags.preset != "" {
		cfg.Run.Preset = runFlags.preset
	}
	if runFlags.mode != "" {
		cfg.Run.Mode = runFlags.mode
	}
	if cmd.Flags().Changed("threads") {
		detect := false
		cfg.Run.AutoDetectCPU = &detect
		cfg.Run.Threads = runFlags.threads
	}
	if runFlags.name != "" {
		cfg.Run.Name = runFlags.name
	}
	if runFlags.exportDir != "" {
		cfg.Export.Dir = runFlags.exportDir
	}
	return config.Validate(cfg)
}

// runner executes runs for the run and schedule commands.
type runner struct {
	app      *app
	out      io.Writer
	format   cli.OutputFormat
	progress bool
}

// runOnce performs one run and prints its summary. It returns the finished
// engine, or nil when the run could not start.
func (r *runner) runOnce(ctx context.Context, rc *engine.RunConfig, rules source.RuleSetSource) (*engine.Engine, error) {
	a := r.app
	c := *rc

	eng, err := a.newEngine(&c, rules)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithRunID(ctx, eng.RunID())
	a.logger.InfoContext(ctx, "starting run", "name", c.Name, "mode", c.Options.Mode.String())

	if err := eng.Launch(ctx); err != nil {
		return nil, cli.NewCommandError("run", err)
	}

	var progressOut io.Writer = io.Discard
	if r.progress {
		progressOut = os.Stderr
	}
	cli.FollowEvents(eng.Events(), cli.NewProgressReporter(progressOut))

	runErr := eng.Wait()
	switch {
	case errors.Is(runErr, engine.ErrStopped):
		fmt.Fprintf(r.out, "Run %s stopped; partial results stored\n", eng.RunID())
		return eng, runErr
	case runErr != nil:
		return eng, cli.NewCommandError("run", runErr)
	}

	if err := r.report(eng.RunID()); err != nil {
		return eng, err
	}
	return eng, nil
}

// report prints the stored summary of a finished run and exports it when an
// export directory is configured.
func (r *runner) report(runID string) error {
	a := r.app
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	report, err := store.Report(ctx, runID)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if r.format == cli.FormatText {
		run := report.Run
		fmt.Fprintf(r.out, "✓ Run %s completed (%d rule sets, %d datasets) in %s\n",
			run.ID, run.RuleSets, run.DataSets, run.Duration().Round(time.Millisecond))
	}
	if len(report.Summary) > 0 {
		if err := formatterFor(r.format, r.out).FormatTo(r.out, cli.SummaryTable(report.Summary)); err != nil {
			return err
		}
	}

	if dir := a.cfg.Export.Dir; dir != "" {
		path, err := exportReport(ctx, store, runID, dir, &a.cfg.Export)
		if err != nil {
			return cli.NewCommandError("export", err)
		}
		if r.format == cli.FormatText {
			fmt.Fprintf(r.out, "✓ Report written to %s\n", path)
		}
	}
	return nil
}

// watch runs once, then again after every rule-set or dataset change until
// ctx is cancelled. Failed runs are logged and watching continues.
func (r *runner) watch(ctx context.Context, rc *engine.RunConfig, rules source.RuleSetSource) error {
	a := r.app

	ruleEvents, err := rules.Watch(ctx)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	dataWatcher, err := source.NewFileWatcher(&source.FileWatcherConfig{
		Path:             a.cfg.Inputs.DataSets,
		DebounceInterval: 500 * time.Millisecond,
		SkipHidden:       true,
	}, a.logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer dataWatcher.Stop()

	dataChanges := make(chan string, 1)
	go func() {
		err := dataWatcher.Watch(ctx, func(ev source.Event) {
			select {
			case dataChanges <- ev.Path:
			default:
			}
		})
		if err != nil {
			a.logger.Error("dataset watcher failed", "error", err)
		}
	}()

	for {
		if _, err := r.runOnce(ctx, rc, rules); err != nil && ctx.Err() == nil {
			a.logger.Error("run failed", "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		fmt.Fprintln(r.out, "Watching for changes (Ctrl+C to exit)...")
		if !r.waitForChange(ctx, ruleEvents, dataChanges, rules) {
			return nil
		}
	}
}

// waitForChange blocks until a change worth a new run arrives. Rule-set
// changes are only accepted once the rule sets load again. It returns false
// when watching ends.
func (r *runner) waitForChange(ctx context.Context, ruleEvents <-chan source.Event, dataChanges <-chan string, rules source.RuleSetSource) bool {
	a := r.app
	for {
		select {
		case <-ctx.Done():
			return false

		case path := <-dataChanges:
			a.logger.Info("dataset changed", "path", path)
			return true

		case ev, ok := <-ruleEvents:
			if !ok {
				return false
			}
			if ev.Type == source.EventError {
				a.logger.Warn("rule-set source error", "error", ev.Error)
				a.collector.RecordReload(0, ev.Error)
				continue
			}

			sets, err := rules.LoadRuleSets(ctx)
			a.collector.RecordReload(len(sets), err)
			if err != nil {
				a.logger.Error("rule sets failed to reload, keeping previous run", "path", ev.Path, "error", err)
				continue
			}
			a.logger.Info("rule sets changed", "path", ev.Path, "event", ev.Type.String(), "count", len(sets))
			return true
		}
	}
}
