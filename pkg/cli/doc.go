/*
Package cli provides command-line interface utilities for rulebench.

The cli package includes output formatters, progress reporters, and common CLI
helpers used by the rulebench command.

Output Formatting:

Commands render results as text tables, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatText)
	if err := formatter.FormatTo(os.Stdout, cli.RunsTable(runs)); err != nil {
		return err
	}

Progress Reporting:

A run's events drive a progress bar. On a terminal the bar redraws in place;
otherwise one line is printed per update, throttled:

	progress := cli.NewProgressReporter(os.Stderr)
	err := cli.FollowEvents(eng.Events(), progress)

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
