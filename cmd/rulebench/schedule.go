package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/rulebench/pkg/cli"
	"mercator-hq/rulebench/pkg/schedule"
	"mercator-hq/rulebench/pkg/telemetry/health"
)

var scheduleFlags struct {
	runNow bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run benchmarks and pruning on cron schedules",
	Long: `Start a long-running process that triggers benchmark runs on the
schedule.run cron expression and deletes runs older than
schedule.retention_days on the schedule.prune expression.

When metrics are enabled, the process also serves /metrics, /health, /ready
and /version.

Examples:
  # Start the scheduler
  rulebench schedule --config rulebench.yaml

  # Run once immediately, then follow the schedule
  rulebench schedule --run-now`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().BoolVar(&scheduleFlags.runNow, "run-now", false, "start a run immediately")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rc, err := buildRunConfig(cfg)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openStore()
	if err != nil {
		return cli.NewCommandError("schedule", err)
	}
	rules, err := newRuleSetSource(&cfg.Inputs.RuleSets, a.logger)
	if err != nil {
		return cli.NewConfigError("inputs.rulesets", err.Error())
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	r := &runner{app: a, out: out, format: cli.FormatText}
	run := func(ctx context.Context) error {
		_, err := r.runOnce(ctx, rc, rules)
		return err
	}

	// -1 keeps runs forever, which the pruner expresses as 0.
	retention := cfg.Schedule.RetentionDays
	if retention < 0 {
		retention = 0
	}
	pruner := schedule.NewPruner(store, retention, a.logger.With("component", "schedule.pruner"))
	sched := schedule.NewScheduler(&schedule.Config{
		RunSchedule:   cfg.Schedule.Run,
		PruneSchedule: cfg.Schedule.Prune,
		RetentionDays: retention,
	}, run, pruner, a.logger.With("component", "schedule"))
	sched.SetRecorder(a.collector)

	checker := health.New(2 * time.Second)
	checker.RegisterCheck("store", health.StoreCheck(store))
	checker.RegisterCheck("scheduler", func(context.Context) error {
		if !sched.IsRunning() {
			return errors.New("scheduler not running")
		}
		return nil
	})
	shutdown, err := a.serveTelemetry(checker)
	if err != nil {
		return cli.NewCommandError("schedule", err)
	}
	defer shutdown(context.Background())

	if err := sched.Start(ctx); err != nil {
		if errors.Is(err, schedule.ErrNothingScheduled) {
			return cli.NewConfigError("schedule", err.Error())
		}
		return cli.NewCommandError("schedule", err)
	}
	defer sched.Stop()

	fmt.Fprintln(out, "✓ Scheduler started")
	if next := sched.NextRun(); next != nil {
		fmt.Fprintf(out, "  Next run: %s\n", next.Format(time.RFC3339))
	}
	if cfg.Schedule.Prune != "" {
		fmt.Fprintf(out, "  Pruning: %q, retention %d days\n", cfg.Schedule.Prune, cfg.Schedule.RetentionDays)
	}

	if scheduleFlags.runNow {
		sched.RunOnce(ctx)
	}

	<-ctx.Done()
	started, failed := sched.Runs()
	a.logger.Info("shutting down scheduler", "runs_started", started, "runs_failed", failed)
	return nil
}
