package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/rulebench/pkg/cli"
	"mercator-hq/rulebench/pkg/results"
	"mercator-hq/rulebench/pkg/schedule"
)

var runsFlags struct {
	name   string
	status string
	since  time.Duration
	limit  int
	offset int
	format string
	days   int
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query stored runs",
	Long: `List, inspect and prune the runs in the result store.

Examples:
  # List the 20 newest runs
  rulebench runs list

  # List failed runs of the last day as JSON
  rulebench runs list --status failed --since 24h -o json

  # Show the summary of one run
  rulebench runs show 3f1c...

  # Delete runs older than 30 days
  rulebench runs prune --days 30`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show a run and its summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than the retention period",
	Args:  cobra.NoArgs,
	RunE:  runRunsPrune,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsPruneCmd)

	runsListCmd.Flags().StringVar(&runsFlags.name, "name", "", "only runs with this name")
	runsListCmd.Flags().StringVar(&runsFlags.status, "status", "", "only runs with this status (running, completed, stopped, failed)")
	runsListCmd.Flags().DurationVar(&runsFlags.since, "since", 0, "only runs started within this duration")
	runsListCmd.Flags().IntVar(&runsFlags.limit, "limit", 20, "maximum number of runs (0 for all)")
	runsListCmd.Flags().IntVar(&runsFlags.offset, "offset", 0, "number of runs to skip")

	for _, c := range []*cobra.Command{runsListCmd, runsShowCmd} {
		c.Flags().StringVarP(&runsFlags.format, "output", "o", "text", "output format (text, json, csv)")
	}

	runsPruneCmd.Flags().IntVar(&runsFlags.days, "days", 0, "retention in days (defaults to schedule.retention_days)")
}

// openStoreApp loads the configuration and opens the result store.
func openStoreApp() (*app, results.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := a.openStore()
	if err != nil {
		a.Close()
		return nil, nil, cli.NewCommandError("runs", err)
	}
	return a, store, nil
}

func runRunsList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(runsFlags.format)
	if err != nil {
		return err
	}
	query, err := runQuery()
	if err != nil {
		return err
	}

	a, store, err := openStoreApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := store.ListRuns(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("runs list", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 && format == cli.FormatText {
		fmt.Fprintln(out, "No runs found")
		return nil
	}
	return formatterFor(format, out).FormatTo(out, cli.RunsTable(runs))
}

// runQuery builds the list filter from the flags.
func runQuery() (*results.RunQuery, error) {
	q := &results.RunQuery{
		Name:   runsFlags.name,
		Limit:  runsFlags.limit,
		Offset: runsFlags.offset,
	}
	if runsFlags.status != "" {
		status := results.RunStatus(runsFlags.status)
		switch status {
		case results.StatusRunning, results.StatusCompleted, results.StatusStopped, results.StatusFailed:
			q.Status = status
		default:
			return nil, cli.NewConfigError("status", fmt.Sprintf("unknown run status %q", runsFlags.status))
		}
	}
	if runsFlags.since > 0 {
		since := time.Now().Add(-runsFlags.since)
		q.Since = &since
	}
	return q, nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(runsFlags.format)
	if err != nil {
		return err
	}

	a, store, err := openStoreApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := store.Report(cmd.Context(), args[0])
	if err != nil {
		return cli.NewCommandError("runs show", err)
	}

	out := cmd.OutOrStdout()
	formatter := formatterFor(format, out)
	if format == cli.FormatJSON {
		return formatter.FormatTo(out, report)
	}

	if format == cli.FormatText {
		run := report.Run
		fmt.Fprintf(out, "Run:         %s\n", run.ID)
		fmt.Fprintf(out, "Name:        %s\n", run.Name)
		if run.Description != "" {
			fmt.Fprintf(out, "Description: %s\n", run.Description)
		}
		fmt.Fprintf(out, "Mode:        %s\n", run.Mode)
		fmt.Fprintf(out, "Status:      %s\n", run.Status)
		if run.Error != "" {
			fmt.Fprintf(out, "Error:       %s\n", run.Error)
		}
		fmt.Fprintf(out, "Rule sets:   %d\n", run.RuleSets)
		fmt.Fprintf(out, "Datasets:    %d\n", run.DataSets)
		fmt.Fprintf(out, "Started:     %s\n", run.StartedAt.UTC().Format(time.RFC3339))
		if run.EndedAt != nil {
			fmt.Fprintf(out, "Duration:    %s\n", run.Duration().Round(time.Millisecond))
		}
		fmt.Fprintln(out)
	}

	if len(report.Summary) == 0 {
		if format == cli.FormatText {
			fmt.Fprintln(out, "No summary recorded")
		}
		return nil
	}
	return formatter.FormatTo(out, cli.SummaryTable(report.Summary))
}

func runRunsPrune(cmd *cobra.Command, args []string) error {
	a, store, err := openStoreApp()
	if err != nil {
		return err
	}
	defer a.Close()

	days := a.cfg.Schedule.RetentionDays
	if cmd.Flags().Changed("days") {
		days = runsFlags.days
	}
	if days <= 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Retention disabled, nothing pruned")
		return nil
	}

	pruner := schedule.NewPruner(store, days, a.logger.With("component", "schedule.pruner"))
	n, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("runs prune", err)
	}
	a.collector.RecordPruned(n)

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d runs started before %s\n", n, pruner.Cutoff().UTC().Format(time.RFC3339))
	return nil
}
