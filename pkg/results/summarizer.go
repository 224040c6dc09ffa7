package results

import (
	"mercator-hq/rulebench/pkg/ruleset"
	"mercator-hq/rulebench/pkg/scoring"
)

// Summarizer aggregates the cumulative score of every rule set, one summary
// per scoring function in registry order.
type Summarizer struct {
	registry *scoring.Registry
}

// NewSummarizer creates a summarizer over the functions of registry.
func NewSummarizer(registry *scoring.Registry) *Summarizer {
	return &Summarizer{registry: registry}
}

// Summarize computes min, max, mean, median and standard deviation of each
// function across sets. Negative scores mark undefined values and are left
// out of the statistics.
func (s *Summarizer) Summarize(sets []*ruleset.RuleSet) []FunctionSummary {
	n := s.registry.Size()
	values := make([][]float64, n)
	for _, rs := range sets {
		m := rs.Matrix()
		for i := 0; i < n; i++ {
			if v := s.registry.Compute(i, m); v >= 0 {
				values[i] = append(values[i], v)
			}
		}
	}

	out := make([]FunctionSummary, n)
	for i := range out {
		out[i] = FunctionSummary{
			Function: s.registry.Name(i),
			Stats:    scoring.Summarize(values[i]),
		}
	}
	return out
}
