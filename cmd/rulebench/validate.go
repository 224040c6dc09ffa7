package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/rulebench/pkg/cli"
	"mercator-hq/rulebench/pkg/dataset"
	"mercator-hq/rulebench/pkg/pool"
)

var validateFlags struct {
	datasets bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and inputs",
	Long: `Validate the configuration file, then load the vocabularies and rule sets
and report what a run would use. With --datasets, every dataset is read as
well and its malformed records are counted.

Examples:
  # Check the config and rule sets
  rulebench validate --config rulebench.yaml

  # Also read every dataset
  rulebench validate --datasets`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.datasets, "datasets", false, "also read and check every dataset")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rc, err := buildRunConfig(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Configuration valid")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := newRegistry(cfg.Formulas, a.logger); err != nil {
		return err
	}
	if len(cfg.Formulas) > 0 {
		fmt.Fprintf(out, "✓ %d custom scoring functions\n", len(cfg.Formulas))
	}

	classes, metricNames, err := loadVocabularies(&cfg.Inputs)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}
	fmt.Fprintf(out, "✓ Vocabularies loaded (%d classes, %d metrics)\n", classes.Len(), metricNames.Len())

	ctx := cmd.Context()
	rules, err := newRuleSetSource(&cfg.Inputs.RuleSets, a.logger)
	if err != nil {
		return cli.NewConfigError("inputs.rulesets", err.Error())
	}
	sets, err := rules.LoadRuleSets(ctx)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}
	total := 0
	for _, rs := range sets {
		total += rs.Len()
	}
	fmt.Fprintf(out, "✓ Rule sets loaded (%d sets, %d rules)\n", len(sets), total)

	if !validateFlags.datasets {
		return nil
	}

	loader := newDataSetLoader(&cfg.Inputs, pool.New(rc.ThreadCount()), a.logger)
	data, err := loader.LoadDataSets(ctx)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	cleaner := dataset.NewCleaner(metricNames, classes, a.logger)
	records, malformed := 0, 0
	for _, ds := range data {
		for _, rec := range ds.Records {
			if !cleaner.IsClean(rec) {
				malformed++
			}
		}
		records += ds.Len()
	}
	fmt.Fprintf(out, "✓ Datasets loaded (%d sets, %d records)\n", len(data), records)
	if malformed > 0 {
		fmt.Fprintf(out, "! %d malformed records (enable run.clean to drop them)\n", malformed)
	}
	return nil
}
