package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/rulebench/pkg/cli"
	"mercator-hq/rulebench/pkg/config"
	"mercator-hq/rulebench/pkg/engine"
	"mercator-hq/rulebench/pkg/results"
	"mercator-hq/rulebench/pkg/results/storage"
	"mercator-hq/rulebench/pkg/ruleset"
	"mercator-hq/rulebench/pkg/scoring"
	"mercator-hq/rulebench/pkg/source"
)

func boolPtr(b bool) *bool { return &b }

func TestBuildRunConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		check  func(t *testing.T, rc *engine.RunConfig)
	}{
		{
			name:   "defaults",
			modify: func(*config.Config) {},
			check: func(t *testing.T, rc *engine.RunConfig) {
				if rc.Options.Mode != ruleset.ModeSequential {
					t.Errorf("Mode = %v, want sequential", rc.Options.Mode)
				}
				if !rc.AutoDetectCPU || !rc.Matrix || !rc.Summary || rc.Clean {
					t.Errorf("unexpected defaults: %+v", rc)
				}
			},
		},
		{
			name: "steps and outputs",
			modify: func(c *config.Config) {
				c.Run.Clean = true
				c.Run.Verify = true
				c.Run.Track = true
				c.Run.Outputs.Matrix = boolPtr(false)
			},
			check: func(t *testing.T, rc *engine.RunConfig) {
				if !rc.Clean || !rc.Verify || !rc.Options.Track {
					t.Errorf("steps not applied: %+v", rc)
				}
				if rc.Matrix {
					t.Error("Matrix = true, want false")
				}
				if !rc.AutoCorrect {
					t.Error("AutoCorrect = false, want true")
				}
			},
		},
		{
			name: "preset keeps mode and threads",
			modify: func(c *config.Config) {
				c.Run.Preset = "high-speed"
				c.Run.Mode = "voting"
				c.Run.AutoDetectCPU = boolPtr(false)
				c.Run.Threads = 3
				c.Run.Name = "nightly"
			},
			check: func(t *testing.T, rc *engine.RunConfig) {
				if !rc.Organize || !rc.Verify {
					t.Errorf("preset steps not applied: %+v", rc)
				}
				if rc.Options.Mode != ruleset.ModeVoting {
					t.Errorf("Mode = %v, want voting", rc.Options.Mode)
				}
				if rc.ThreadCount() != 3 {
					t.Errorf("ThreadCount() = %d, want 3", rc.ThreadCount())
				}
				if rc.Name != "nightly" {
					t.Errorf("Name = %q, want nightly", rc.Name)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tt.modify(cfg)

			rc, err := buildRunConfig(cfg)
			if err != nil {
				t.Fatalf("buildRunConfig() error = %v", err)
			}
			tt.check(t, rc)
		})
	}
}

func TestBuildRunConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"unknown preset", func(c *config.Config) { c.Run.Preset = "ludicrous" }},
		{"unknown mode", func(c *config.Config) { c.Run.Mode = "random" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tt.modify(cfg)

			_, err := buildRunConfig(cfg)
			if cli.ExitCode(err) != cli.ExitConfig {
				t.Errorf("buildRunConfig() error = %v, want exit code %d", err, cli.ExitConfig)
			}
		})
	}
}

func TestNewRegistry(t *testing.T) {
	formulas := []config.FormulaConfig{{
		Name:        "TruePositiveShare",
		Numerator:   [][2]int{{0, 0}},
		Denominator: [][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
	}}

	registry, err := newRegistry(formulas, nil)
	if err != nil {
		t.Fatalf("newRegistry() error = %v", err)
	}
	builtins := scoring.NewRegistry(nil).Size()
	if registry.Size() != builtins+1 {
		t.Errorf("Size() = %d, want %d", registry.Size(), builtins+1)
	}
	if got := registry.Name(registry.Size() - 1); got != "TruePositiveShare" {
		t.Errorf("last Name() = %q, want TruePositiveShare", got)
	}

	dup := append(formulas, formulas[0])
	if _, err := newRegistry(dup, nil); err == nil {
		t.Error("newRegistry() with duplicate names returned nil error")
	}
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		wantErr bool
	}{
		{"memory", config.StorageConfig{Backend: "memory"}, false},
		{"sqlite", config.StorageConfig{Backend: "sqlite", SQLite: config.SQLiteConfig{
			Path:        filepath.Join(t.TempDir(), "nested", "runs.db"),
			Driver:      storage.DriverPure,
			BusyTimeout: time.Second,
		}}, false},
		{"unknown", config.StorageConfig{Backend: "postgres"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := newStore(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newStore() error = %v, wantErr %v", err, tt.wantErr)
			}
			if store != nil {
				store.Close()
			}
		})
	}
}

func TestNewRuleSetSource(t *testing.T) {
	src, err := newRuleSetSource(&config.RuleSetsConfig{Mode: "file", Path: "rulesets"}, nil)
	if err != nil {
		t.Fatalf("newRuleSetSource() error = %v", err)
	}
	if _, ok := src.(*source.FileSource); !ok {
		t.Errorf("newRuleSetSource() = %T, want *source.FileSource", src)
	}

	_, err = newRuleSetSource(&config.RuleSetsConfig{Mode: "git"}, nil)
	if err == nil {
		t.Error("newRuleSetSource(git) without repository returned nil error")
	}
}

func TestExportReport(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	store.BeginRun(ctx, &results.Run{ID: "run-1", Name: "x", StartedAt: time.Now()})
	store.EndRun(ctx, "run-1", results.StatusCompleted, nil)

	dir := filepath.Join(t.TempDir(), "reports")
	path, err := exportReport(ctx, store, "run-1", dir, &config.ExportConfig{Format: "json", Pretty: boolPtr(false)})
	if err != nil {
		t.Fatalf("exportReport() error = %v", err)
	}
	if filepath.Base(path) != "run-1.json" {
		t.Errorf("path = %s, want run-1.json", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var report results.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if report.Run == nil || report.Run.ID != "run-1" {
		t.Errorf("report.Run = %+v, want run-1", report.Run)
	}

	if _, err := exportReport(ctx, store, "missing", dir, &config.ExportConfig{Format: "json"}); !errors.Is(err, results.ErrRunNotFound) {
		t.Errorf("exportReport(missing) error = %v, want ErrRunNotFound", err)
	}
	if _, err := exportReport(ctx, store, "run-1", dir, &config.ExportConfig{Format: "xml"}); err == nil || !strings.Contains(err.Error(), "xml") {
		t.Errorf("exportReport(xml) error = %v, want unsupported format", err)
	}
}
