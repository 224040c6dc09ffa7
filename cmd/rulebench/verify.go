package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/rulebench/pkg/cli"
	"mercator-hq/rulebench/pkg/pool"
	"mercator-hq/rulebench/pkg/source"
	"mercator-hq/rulebench/pkg/verifier"
)

var verifyFlags struct {
	write       string
	interactive bool
	format      string
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check rule-set tokens against the vocabularies",
	Long: `Verify every metric and classification token of the rule sets against the
metric and classification vocabularies.

Unknown tokens are replaced by the closest vocabulary entry. With
--interactive, the replacement is asked for instead. The corrected rule sets
can be written back as YAML.

Examples:
  # List the corrections that a run would apply
  rulebench verify

  # Ask for every unknown token
  rulebench verify --interactive

  # Write the corrected rule sets to a new file
  rulebench verify --write rulesets/corrected.yaml`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyFlags.write, "write", "", "write the corrected rule sets to this YAML file")
	verifyCmd.Flags().BoolVarP(&verifyFlags.interactive, "interactive", "i", false, "prompt for unknown tokens instead of auto-correcting")
	verifyCmd.Flags().StringVarP(&verifyFlags.format, "output", "o", "text", "output format (text, json, csv)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	format, err := cli.ParseOutputFormat(verifyFlags.format)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	classes, metricNames, err := loadVocabularies(&cfg.Inputs)
	if err != nil {
		return cli.NewCommandError("verify", err)
	}

	rules, err := newRuleSetSource(&cfg.Inputs.RuleSets, a.logger)
	if err != nil {
		return cli.NewConfigError("inputs.rulesets", err.Error())
	}
	sets, err := rules.LoadRuleSets(ctx)
	if err != nil {
		return cli.NewCommandError("verify", err)
	}
	for _, rs := range sets {
		rs.Bind(classes, metricNames)
	}

	v, err := newVerifier(&cfg.Verifier, !verifyFlags.interactive, classes, metricNames, a.collector, a.logger)
	if err != nil {
		return cli.NewConfigError("verifier", err.Error())
	}

	// Prompts must not interleave.
	threads := 1
	if !verifyFlags.interactive {
		rc, err := buildRunConfig(cfg)
		if err != nil {
			return err
		}
		threads = rc.ThreadCount()
	}
	if err := v.VerifyAll(ctx, sets, pool.New(threads)); err != nil {
		return cli.NewCommandError("verify", err)
	}

	out := cmd.OutOrStdout()
	corrections := v.Corrections()
	if format == cli.FormatText {
		fmt.Fprintf(out, "✓ Verified %d rule sets, %d corrections\n", len(sets), len(corrections))
	}
	if len(corrections) > 0 {
		if err := formatterFor(format, out).FormatTo(out, correctionsTable(corrections)); err != nil {
			return err
		}
	}

	if verifyFlags.write != "" {
		if err := source.WriteFile(verifyFlags.write, sets); err != nil {
			return cli.NewCommandError("verify", err)
		}
		if format == cli.FormatText {
			fmt.Fprintf(out, "✓ Rule sets written to %s\n", verifyFlags.write)
		}
	}
	return nil
}

// correctionsTable lists the token corrections of a verification.
type correctionsTable []verifier.Correction

func (t correctionsTable) Header() []string {
	return []string{"KIND", "WRONG", "CORRECT", "AUTO"}
}

func (t correctionsTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, c := range t {
		rows = append(rows, []string{c.Kind.String(), c.Wrong, c.Correct, strconv.FormatBool(c.Auto)})
	}
	return rows
}
