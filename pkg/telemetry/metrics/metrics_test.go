package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/rulebench/pkg/engine"
	"mercator-hq/rulebench/pkg/schedule"
	"mercator-hq/rulebench/pkg/verifier"
)

var (
	_ engine.Recorder   = (*Collector)(nil)
	_ verifier.Recorder = (*Collector)(nil)
	_ schedule.Recorder = (*Collector)(nil)
)

func testCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector(&Config{Enabled: true, Namespace: "test"}, prometheus.NewRegistry())
}

func TestNewCollector_Defaults(t *testing.T) {
	c := NewCollector(nil, nil)

	if c.config.Namespace != "rulebench" {
		t.Errorf("Namespace = %q, want rulebench", c.config.Namespace)
	}
	if len(c.config.RunDurationBuckets) == 0 || len(c.config.JobDurationBuckets) == 0 {
		t.Error("histogram buckets not defaulted")
	}
	if c.Registry() == nil {
		t.Error("Registry() = nil")
	}
}

func TestCollector_RunLifecycle(t *testing.T) {
	c := testCollector(t)

	c.RunStarted()
	if got := testutil.ToFloat64(c.runMetrics.runsActive); got != 1 {
		t.Errorf("runs_in_progress = %v, want 1", got)
	}

	c.JobFinished(10*time.Millisecond, nil)
	c.JobFinished(20*time.Millisecond, nil)
	c.JobFinished(5*time.Millisecond, errors.New("boom"))
	c.RecordsTested(150)
	c.RecordsTested(0)
	c.SetProgress(50)
	c.RunFinished("completed", 2*time.Second)

	tests := []struct {
		name      string
		collector prometheus.Collector
		want      float64
	}{
		{"runs_in_progress", c.runMetrics.runsActive, 0},
		{"runs_total completed", c.runMetrics.runsTotal.WithLabelValues("completed"), 1},
		{"jobs_total success", c.runMetrics.jobsTotal.WithLabelValues("success"), 2},
		{"jobs_total error", c.runMetrics.jobsTotal.WithLabelValues("error"), 1},
		{"records_tested_total", c.runMetrics.recordsTested, 150},
		{"run_progress_percent", c.runMetrics.progress, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.collector); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if got := testutil.CollectAndCount(c.runMetrics.jobDuration); got != 1 {
		t.Errorf("job_duration_seconds series = %d, want 1", got)
	}
}

func TestCollector_Verifier(t *testing.T) {
	c := testCollector(t)

	c.RecordCorrection("metric", true)
	c.RecordCorrection("metric", true)
	c.RecordCorrection("classification", false)
	c.RecordUnresolved("metric")

	if got := testutil.ToFloat64(c.verifierMetrics.corrections.WithLabelValues("metric", "auto")); got != 2 {
		t.Errorf("corrections{metric,auto} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.verifierMetrics.corrections.WithLabelValues("classification", "prompt")); got != 1 {
		t.Errorf("corrections{classification,prompt} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.verifierMetrics.unresolved.WithLabelValues("metric")); got != 1 {
		t.Errorf("unresolved{metric} = %v, want 1", got)
	}
}

func TestCollector_SourceAndSchedule(t *testing.T) {
	c := testCollector(t)

	c.RecordReload(4, nil)
	c.RecordReload(0, errors.New("parse error"))
	c.RecordScheduledRun(nil)
	c.RecordScheduledRun(errors.New("failed"))
	c.RecordPruned(3)
	c.RecordPruned(0)

	if got := testutil.ToFloat64(c.sourceMetrics.loaded); got != 4 {
		t.Errorf("rulesets_loaded = %v, want 4 (kept after failed reload)", got)
	}
	if got := testutil.ToFloat64(c.sourceMetrics.reloads.WithLabelValues("error")); got != 1 {
		t.Errorf("ruleset_reloads_total{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.scheduleMetrics.runs.WithLabelValues("success")); got != 1 {
		t.Errorf("scheduled_runs_total{success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.scheduleMetrics.pruned); got != 3 {
		t.Errorf("pruned_runs_total = %v, want 3", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	c := NewCollector(&Config{Enabled: false}, prometheus.NewRegistry())

	c.RunStarted()
	c.RecordsTested(10)
	c.RecordCorrection("metric", true)
	c.RecordPruned(5)

	if got := testutil.ToFloat64(c.runMetrics.runsActive); got != 0 {
		t.Errorf("runs_in_progress = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.runMetrics.recordsTested); got != 0 {
		t.Errorf("records_tested_total = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.scheduleMetrics.pruned); got != 0 {
		t.Errorf("pruned_runs_total = %v, want 0", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := testCollector(t)
	c.RunStarted()
	c.RunFinished("stopped", time.Second)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `test_runs_total{status="stopped"} 1`) {
		t.Errorf("metrics output missing runs_total:\n%s", body)
	}
}
