package metrics

import "github.com/prometheus/client_golang/prometheus"

// SourceMetrics tracks rule-set loading.
type SourceMetrics struct {
	reloads *prometheus.CounterVec
	loaded  prometheus.Gauge
}

// NewSourceMetrics creates and registers rule-set source metrics.
func NewSourceMetrics(cfg *Config, registry *prometheus.Registry) *SourceMetrics {
	sm := &SourceMetrics{
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ruleset_reloads_total",
				Help:      "Total number of rule-set reloads by result",
			},
			[]string{"result"},
		),
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "rulesets_loaded",
			Help:      "Number of rule sets loaded by the last successful reload",
		}),
	}

	registry.MustRegister(sm.reloads, sm.loaded)
	return sm
}

// RecordReload records one reload. The loaded gauge keeps its value when
// err is non-nil.
func (sm *SourceMetrics) RecordReload(count int, err error) {
	sm.reloads.WithLabelValues(result(err)).Inc()
	if err == nil {
		sm.loaded.Set(float64(count))
	}
}
