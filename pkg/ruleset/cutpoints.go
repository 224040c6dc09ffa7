package ruleset

import "sort"

// CutPoints returns the midpoints between neighbouring numeric values of the
// conditions on metric, taken where the predicted classification changes.
// Conditions are ordered with Condition.Compare.
func (rs *RuleSet) CutPoints(metric string) []float64 {
	type labelled struct {
		cond  *Condition
		class string
	}

	var conds []labelled
	for _, r := range rs.rules {
		c := r.Condition(metric)
		if c == nil || !c.isNumeric {
			continue
		}
		conds = append(conds, labelled{cond: c, class: r.class})
	}

	sort.SliceStable(conds, func(i, j int) bool {
		return conds[i].cond.Compare(conds[j].cond) < 0
	})

	var points []float64
	seen := make(map[float64]bool)
	for i := 0; i+1 < len(conds); i++ {
		a, b := conds[i], conds[i+1]
		if a.class == b.class {
			continue
		}
		cp := (a.cond.numeric + b.cond.numeric) / 2
		if !seen[cp] {
			seen[cp] = true
			points = append(points, cp)
		}
	}
	return points
}

// ValueList returns the distinct numeric values used by conditions on metric,
// in rule order.
func (rs *RuleSet) ValueList(metric string) []float64 {
	var values []float64
	seen := make(map[float64]bool)
	for _, r := range rs.rules {
		c := r.Condition(metric)
		if c == nil || !c.isNumeric {
			continue
		}
		if !seen[c.numeric] {
			seen[c.numeric] = true
			values = append(values, c.numeric)
		}
	}
	return values
}
