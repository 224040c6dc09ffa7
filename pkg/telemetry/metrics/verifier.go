package metrics

import "github.com/prometheus/client_golang/prometheus"

// VerifierMetrics tracks rule-set token corrections.
type VerifierMetrics struct {
	corrections *prometheus.CounterVec
	unresolved  *prometheus.CounterVec
}

// NewVerifierMetrics creates and registers verifier metrics.
func NewVerifierMetrics(cfg *Config, registry *prometheus.Registry) *VerifierMetrics {
	vm := &VerifierMetrics{
		corrections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "verifier_corrections_total",
				Help:      "Total number of unknown tokens replaced in rule sets",
			},
			[]string{"kind", "mode"},
		),
		unresolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "verifier_unresolved_total",
				Help:      "Total number of unknown tokens left unreplaced",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(vm.corrections, vm.unresolved)
	return vm
}

// RecordCorrection records one replacement.
func (vm *VerifierMetrics) RecordCorrection(kind string, auto bool) {
	mode := "prompt"
	if auto {
		mode = "auto"
	}
	vm.corrections.WithLabelValues(kind, mode).Inc()
}

// RecordUnresolved records one unresolved token.
func (vm *VerifierMetrics) RecordUnresolved(kind string) {
	vm.unresolved.WithLabelValues(kind).Inc()
}
