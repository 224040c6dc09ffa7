package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics tracks benchmark runs and their jobs.
type RunMetrics struct {
	runsTotal     *prometheus.CounterVec
	runsActive    prometheus.Gauge
	runDuration   prometheus.Histogram
	jobsTotal     *prometheus.CounterVec
	jobDuration   prometheus.Histogram
	recordsTested prometheus.Counter
	progress      prometheus.Gauge
}

// NewRunMetrics creates and registers run metrics with the provided registry.
func NewRunMetrics(cfg *Config, registry *prometheus.Registry) *RunMetrics {
	rm := &RunMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "runs_total",
				Help:      "Total number of benchmark runs by final status",
			},
			[]string{"status"},
		),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "runs_in_progress",
			Help:      "Number of benchmark runs currently executing",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "run_duration_seconds",
			Help:      "Duration of benchmark runs in seconds",
			Buckets:   cfg.RunDurationBuckets,
		}),
		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "jobs_total",
				Help:      "Total number of rule set evaluation jobs by result",
			},
			[]string{"result"},
		),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "job_duration_seconds",
			Help:      "Duration of rule set evaluation jobs in seconds",
			Buckets:   cfg.JobDurationBuckets,
		}),
		recordsTested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "records_tested_total",
			Help:      "Total number of dataset records classified",
		}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "run_progress_percent",
			Help:      "Progress of the current benchmark run",
		}),
	}

	registry.MustRegister(
		rm.runsTotal,
		rm.runsActive,
		rm.runDuration,
		rm.jobsTotal,
		rm.jobDuration,
		rm.recordsTested,
		rm.progress,
	)
	return rm
}

// Started records a run start and resets progress.
func (rm *RunMetrics) Started() {
	rm.runsActive.Inc()
	rm.progress.Set(0)
}

// Finished records a run end.
func (rm *RunMetrics) Finished(status string, duration time.Duration) {
	rm.runsActive.Dec()
	rm.runsTotal.WithLabelValues(status).Inc()
	rm.runDuration.Observe(duration.Seconds())
}

// JobFinished records one job.
func (rm *RunMetrics) JobFinished(duration time.Duration, err error) {
	rm.jobsTotal.WithLabelValues(result(err)).Inc()
	rm.jobDuration.Observe(duration.Seconds())
}

// RecordsTested adds n classified records.
func (rm *RunMetrics) RecordsTested(n int) {
	if n > 0 {
		rm.recordsTested.Add(float64(n))
	}
}

// SetProgress sets the current run progress.
func (rm *RunMetrics) SetProgress(percent float64) {
	rm.progress.Set(percent)
}
