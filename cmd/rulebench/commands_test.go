package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mercator-hq/rulebench/pkg/config"
	"mercator-hq/rulebench/pkg/results"
	"mercator-hq/rulebench/pkg/results/storage"
	"mercator-hq/rulebench/pkg/source"
)

const thresholdYAML = "default: no\nrules: [{when: [{metric: m, op: '>', value: 5}], then: yes}]\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// workspace writes a small set of inputs and installs a configuration that
// uses them with a SQLite store in a temporary directory.
func workspace(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "classes.txt"), "yes\nno\n")
	writeFile(t, filepath.Join(dir, "metrics.txt"), "m\n")
	writeFile(t, filepath.Join(dir, "datasets", "a.csv"), "6,yes\n1,no\n7,yes\n2,yes\n")
	writeFile(t, filepath.Join(dir, "datasets", "b.csv"), "9,yes\n3,no\n")
	writeFile(t, filepath.Join(dir, "rulesets", "threshold.yaml"), thresholdYAML)

	cfg := config.NewDefaultConfig()
	cfg.Inputs.Classes = filepath.Join(dir, "classes.txt")
	cfg.Inputs.Metrics = filepath.Join(dir, "metrics.txt")
	cfg.Inputs.DataSets = filepath.Join(dir, "datasets")
	cfg.Inputs.OrganizedDir = filepath.Join(dir, "organized")
	cfg.Inputs.RuleSets.Path = filepath.Join(dir, "rulesets")
	cfg.Storage.SQLite.Path = filepath.Join(dir, "data", "runs.db")
	cfg.Storage.SQLite.Driver = storage.DriverPure
	cfg.Telemetry.Metrics.Enabled = false
	cfg.Telemetry.Tracing.Enabled = false
	cfg.Telemetry.Logging.Level = "error"

	// The first Initialize wins; SetConfig then replaces the loaded defaults.
	config.Initialize("")
	config.SetConfig(cfg)
	return cfg
}

// resetFlags restores every flag of cmd and its subcommands to its default
// and clears the changed state, since flag values live in package globals.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Fatalf("reset flag --%s: %v", f.Name, err)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(t, sub)
	}
}

// execute runs the root command with args and returns its output. Flags
// start from their defaults on every call.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(t, rootCmd)
	t.Cleanup(func() { resetFlags(t, rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands_EndToEnd(t *testing.T) {
	cfg := workspace(t)
	exportDir := filepath.Join(t.TempDir(), "reports")

	out, err := execute(t, "run", "--no-progress", "--name", "e2e", "--export-dir", exportDir)
	if err != nil {
		t.Fatalf("run error = %v\n%s", err, out)
	}
	for _, want := range []string{"✓ Run", "2 datasets", "Accuracy", "✓ Report written to"} {
		if !strings.Contains(out, want) {
			t.Errorf("run output missing %q:\n%s", want, out)
		}
	}
	reports, _ := filepath.Glob(filepath.Join(exportDir, "*.json"))
	if len(reports) != 1 {
		t.Fatalf("exported reports = %v, want 1", reports)
	}

	out, err = execute(t, "runs", "list", "-o", "json")
	if err != nil {
		t.Fatalf("runs list error = %v", err)
	}
	var runs []results.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("runs list output is not JSON: %v\n%s", err, out)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	run := runs[0]
	if run.Name != "e2e" || run.Status != results.StatusCompleted {
		t.Errorf("run = %+v, want completed run named e2e", run)
	}
	if filepath.Base(reports[0]) != run.ID+".json" {
		t.Errorf("report file = %s, want %s.json", reports[0], run.ID)
	}

	t.Run("show", func(t *testing.T) {
		out, err := execute(t, "runs", "show", run.ID, "-o", "text")
		if err != nil {
			t.Fatalf("runs show error = %v", err)
		}
		for _, want := range []string{"Status:      completed", "FUNCTION", "Jindex"} {
			if !strings.Contains(out, want) {
				t.Errorf("runs show output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("show missing", func(t *testing.T) {
		if _, err := execute(t, "runs", "show", "missing", "-o", "text"); err == nil {
			t.Error("runs show missing returned nil error")
		}
	})

	t.Run("export csv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.csv")
		if _, err := execute(t, "export", run.ID, "--format", "csv", "--output", path); err != nil {
			t.Fatalf("export error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), run.ID) {
			t.Errorf("csv report does not mention run %s:\n%s", run.ID, data)
		}
	})

	t.Run("validate", func(t *testing.T) {
		out, err := execute(t, "validate", "--datasets")
		if err != nil {
			t.Fatalf("validate error = %v", err)
		}
		for _, want := range []string{"✓ Configuration valid", "2 classes, 1 metrics", "1 sets, 1 rules", "2 sets, 6 records"} {
			if !strings.Contains(out, want) {
				t.Errorf("validate output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("verify", func(t *testing.T) {
		out, err := execute(t, "verify", "-o", "text")
		if err != nil {
			t.Fatalf("verify error = %v", err)
		}
		if !strings.Contains(out, "✓ Verified 1 rule sets, 0 corrections") {
			t.Errorf("verify output = %q", out)
		}
	})

	t.Run("prune", func(t *testing.T) {
		cfg.Schedule.RetentionDays = 1
		out, err := execute(t, "runs", "prune")
		if err != nil {
			t.Fatalf("runs prune error = %v", err)
		}
		if !strings.Contains(out, "✓ Pruned 0 runs") {
			t.Errorf("runs prune output = %q", out)
		}
	})
}

func TestVerifyCommand_CorrectsTokens(t *testing.T) {
	cfg := workspace(t)
	writeFile(t, filepath.Join(cfg.Inputs.RuleSets.Path, "threshold.yaml"),
		"default: no\nrules: [{when: [{metric: mm, op: '>', value: 5}], then: yess}]\n")

	corrected := filepath.Join(t.TempDir(), "corrected.yaml")
	out, err := execute(t, "verify", "-o", "text", "--write", corrected)
	if err != nil {
		t.Fatalf("verify error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 corrections") {
		t.Errorf("verify output = %q, want 2 corrections", out)
	}

	sets, err := source.ParseFile(corrected)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	r := sets[0].Rule(0)
	if got := r.Conditions()[0].Metric(); got != "m" {
		t.Errorf("metric = %q, want m", got)
	}
	if r.Class() != "yes" {
		t.Errorf("rule class = %q, want yes", r.Class())
	}
}

func TestRunCommand_DryRun(t *testing.T) {
	workspace(t)

	out, err := execute(t, "run", "--dry-run", "--preset", "professional")
	if err != nil {
		t.Fatalf("run --dry-run error = %v", err)
	}
	for _, want := range []string{"Run settings", "Professional", "✓ Configuration valid"} {
		if !strings.Contains(out, want) {
			t.Errorf("dry-run output missing %q:\n%s", want, out)
		}
	}
}

func TestExecute_FlagsDoNotLeakBetweenCalls(t *testing.T) {
	workspace(t)

	out, err := execute(t, "run", "--dry-run", "--name", "custom", "--threads", "3")
	if err != nil {
		t.Fatalf("run --dry-run --name error = %v", err)
	}
	if !strings.Contains(out, "custom") {
		t.Fatalf("dry-run output missing run name custom:\n%s", out)
	}

	out, err = execute(t, "run", "--dry-run", "--preset", "professional")
	if err != nil {
		t.Fatalf("run --dry-run --preset error = %v", err)
	}
	if strings.Contains(out, "custom") || !strings.Contains(out, "Professional") {
		t.Errorf("second run kept flags of the first:\n%s", out)
	}
	if runFlags.name != "" || runCmd.Flags().Changed("threads") {
		t.Errorf("after execute: name = %q, threads changed = %v, want defaults",
			runFlags.name, runCmd.Flags().Changed("threads"))
	}
}

func TestExportCommand_All(t *testing.T) {
	cfg := workspace(t)

	store, err := newStore(&cfg.Storage)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	store.BeginRun(ctx, &results.Run{ID: "r1", Name: "one", StartedAt: time.Now()})
	store.Close()

	out, err := execute(t, "export", "--all")
	if err != nil {
		t.Fatalf("export --all error = %v", err)
	}
	if !strings.Contains(out, `"r1"`) {
		t.Errorf("export --all output = %s, want run r1", out)
	}
}
