package metrics

import "github.com/prometheus/client_golang/prometheus"

// ScheduleMetrics tracks scheduled runs and retention.
type ScheduleMetrics struct {
	runs   *prometheus.CounterVec
	pruned prometheus.Counter
}

// NewScheduleMetrics creates and registers scheduler metrics.
func NewScheduleMetrics(cfg *Config, registry *prometheus.Registry) *ScheduleMetrics {
	sm := &ScheduleMetrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scheduled_runs_total",
				Help:      "Total number of scheduled benchmark runs by result",
			},
			[]string{"result"},
		),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "pruned_runs_total",
			Help:      "Total number of stored runs removed by retention",
		}),
	}

	registry.MustRegister(sm.runs, sm.pruned)
	return sm
}

// RecordRun records one scheduled run.
func (sm *ScheduleMetrics) RecordRun(err error) {
	sm.runs.WithLabelValues(result(err)).Inc()
}

// RecordPruned adds n pruned runs.
func (sm *ScheduleMetrics) RecordPruned(n int64) {
	if n > 0 {
		sm.pruned.Add(float64(n))
	}
}
