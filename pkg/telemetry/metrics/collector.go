package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures a Collector.
type Config struct {
	Enabled   bool
	Namespace string
	Subsystem string

	// RunDurationBuckets and JobDurationBuckets override the histogram
	// buckets, in seconds.
	RunDurationBuckets []float64
	JobDurationBuckets []float64
}

// DefaultConfig returns an enabled configuration in the rulebench namespace.
func DefaultConfig() *Config {
	return &Config{Enabled: true, Namespace: "rulebench"}
}

// Collector is the main orchestrator for all Prometheus metrics in
// rulebench. A disabled Collector accepts every call and records nothing.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	runMetrics      *RunMetrics
	verifierMetrics *VerifierMetrics
	sourceMetrics   *SourceMetrics
	scheduleMetrics *ScheduleMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "rulebench"
	}
	if len(cfg.RunDurationBuckets) == 0 {
		// 1s - 1h
		cfg.RunDurationBuckets = []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600}
	}
	if len(cfg.JobDurationBuckets) == 0 {
		// 1ms - 60s
		cfg.JobDurationBuckets = []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60}
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		runMetrics:      NewRunMetrics(cfg, registry),
		verifierMetrics: NewVerifierMetrics(cfg, registry),
		sourceMetrics:   NewSourceMetrics(cfg, registry),
		scheduleMetrics: NewScheduleMetrics(cfg, registry),
	}
}

// RunStarted records the start of a benchmark run.
func (c *Collector) RunStarted() {
	if !c.config.Enabled {
		return
	}
	c.runMetrics.Started()
}

// RunFinished records the end of a benchmark run with its final status
// ("completed", "stopped", "failed").
func (c *Collector) RunFinished(status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.runMetrics.Finished(status, duration)
}

// JobFinished records one evaluated (rule set, dataset) pair.
func (c *Collector) JobFinished(duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	c.runMetrics.JobFinished(duration, err)
}

// RecordsTested adds n to the number of records classified.
func (c *Collector) RecordsTested(n int) {
	if !c.config.Enabled {
		return
	}
	c.runMetrics.RecordsTested(n)
}

// SetProgress sets the progress of the current run, 0 to 100.
func (c *Collector) SetProgress(percent float64) {
	if !c.config.Enabled {
		return
	}
	c.runMetrics.SetProgress(percent)
}

// RecordCorrection records a verifier token replacement. kind is "metric"
// or "classification".
func (c *Collector) RecordCorrection(kind string, auto bool) {
	if !c.config.Enabled {
		return
	}
	c.verifierMetrics.RecordCorrection(kind, auto)
}

// RecordUnresolved records a token the verifier could not replace.
func (c *Collector) RecordUnresolved(kind string) {
	if !c.config.Enabled {
		return
	}
	c.verifierMetrics.RecordUnresolved(kind)
}

// RecordReload records a rule-set reload and, on success, the number of
// rule sets loaded.
func (c *Collector) RecordReload(count int, err error) {
	if !c.config.Enabled {
		return
	}
	c.sourceMetrics.RecordReload(count, err)
}

// RecordScheduledRun records a run triggered by the scheduler.
func (c *Collector) RecordScheduledRun(err error) {
	if !c.config.Enabled {
		return
	}
	c.scheduleMetrics.RecordRun(err)
}

// RecordPruned adds n to the number of runs removed by retention.
func (c *Collector) RecordPruned(n int64) {
	if !c.config.Enabled {
		return
	}
	c.scheduleMetrics.RecordPruned(n)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
