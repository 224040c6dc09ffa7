package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/rulebench/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rulebench",
	Short: "rulebench - benchmark classification rule sets against datasets",
	Long: `rulebench tests sets of classification rules against labelled datasets
and scores how well each rule set predicts the classification of every record.

It provides:
  - Sequential (first match) and voting evaluation of rule sets
  - Confusion matrices and scoring functions per dataset and rule set
  - Verification and auto-correction of rule-set tokens
  - Stored runs with JSON and CSV report export
  - Scheduled runs with retention-based pruning`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a code derived from the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and RULEBENCH_* variables when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
