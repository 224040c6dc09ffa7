package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/rulebench/pkg/cli"
	"mercator-hq/rulebench/pkg/config"
	"mercator-hq/rulebench/pkg/results"
	"mercator-hq/rulebench/pkg/results/export"
)

var exportFlags struct {
	format string
	output string
	all    bool
	pretty bool
}

var exportCmd = &cobra.Command{
	Use:   "export [RUN_ID]",
	Short: "Export a stored run report",
	Long: `Export the full report of a stored run as JSON or CSV.

The report contains the per-dataset scores, the confusion matrices, the
rule-set definitions, the sequential-mode traces and the summary. With
--all, the list of stored runs is exported as JSON instead.

Examples:
  # Print a run report as JSON
  rulebench export 3f1c...

  # Write a CSV report to a file
  rulebench export 3f1c... --format csv --output report.csv

  # Export every stored run
  rulebench export --all --output runs.json`,
	Args: func(cmd *cobra.Command, args []string) error {
		if exportFlags.all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFlags.format, "format", "f", "", "report format (json, csv); defaults to export.format")
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().BoolVar(&exportFlags.all, "all", false, "export the list of stored runs")
	exportCmd.Flags().BoolVar(&exportFlags.pretty, "pretty", true, "indent JSON output")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if exportFlags.format != "" {
		cfg.Export.Format = exportFlags.format
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Export.Pretty = &exportFlags.pretty
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openStore()
	if err != nil {
		return cli.NewCommandError("export", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportFlags.output != "" {
		f, err := os.Create(exportFlags.output)
		if err != nil {
			return cli.NewCommandError("export", err)
		}
		defer f.Close()
		w = f
	}

	ctx := cmd.Context()
	if exportFlags.all {
		runs, err := store.ListRuns(ctx, nil)
		if err != nil {
			return cli.NewCommandError("export", err)
		}
		err = export.NewJSONExporter(config.Bool(cfg.Export.Pretty, true)).ExportRuns(ctx, runs, w)
		if err != nil {
			return cli.NewCommandError("export", results.NewExportError("json", "", err))
		}
		return reportWritten(cmd, fmt.Sprintf("%d runs", len(runs)))
	}

	exp, err := export.New(cfg.Export.Format, export.Options{
		Pretty:        config.Bool(cfg.Export.Pretty, true),
		IncludeHeader: config.Bool(cfg.Export.IncludeHeader, true),
	})
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	report, err := store.Report(ctx, args[0])
	if err != nil {
		return cli.NewCommandError("export", err)
	}
	if err := exp.Export(ctx, report, w); err != nil {
		return cli.NewCommandError("export", err)
	}
	return reportWritten(cmd, "run "+args[0])
}

// reportWritten confirms an export to a file. Nothing is printed when the
// export went to stdout.
func reportWritten(cmd *cobra.Command, what string) error {
	if exportFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %s to %s\n", what, exportFlags.output)
	}
	return nil
}
