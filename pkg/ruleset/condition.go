package ruleset

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

type conditionKind int

const (
	kindEquation conditionKind = iota
	kindClassification
)

// Condition is either an equation ("metric op value") tested against a record
// or a classification label. The kind is fixed at construction.
type Condition struct {
	kind conditionKind

	metric   string
	operator Operator
	value    string
	class    string

	isNumeric bool
	numeric   float64

	ruleIndex int
}

// NewEquation creates an equation condition. Metric, operator and value are
// all required.
func NewEquation(metric string, op Operator, value string) (*Condition, error) {
	metric = strings.TrimSpace(metric)
	value = strings.TrimSpace(value)
	if metric == "" || op == "" || value == "" {
		return nil, fmt.Errorf("%w: equation needs metric, operator and value (got %q %q %q)",
			ErrInvalidCondition, metric, op, value)
	}

	c := &Condition{
		kind:      kindEquation,
		metric:    metric,
		operator:  op,
		ruleIndex: -1,
	}
	c.SetValue(value)
	return c, nil
}

// NewClassification creates a classification condition.
func NewClassification(class string) (*Condition, error) {
	class = strings.TrimSpace(class)
	if class == "" {
		return nil, fmt.Errorf("%w: empty classification", ErrInvalidCondition)
	}
	return &Condition{
		kind:      kindClassification,
		class:     class,
		ruleIndex: -1,
	}, nil
}

func (c *Condition) IsClassification() bool { return c.kind == kindClassification }
func (c *Condition) IsEquation() bool       { return c.kind == kindEquation }
func (c *Condition) Metric() string         { return c.metric }
func (c *Condition) Operator() Operator     { return c.operator }
func (c *Condition) Value() string          { return c.value }
func (c *Condition) Class() string          { return c.class }
func (c *Condition) IsNumeric() bool        { return c.isNumeric }

// Numeric returns the parsed value, or -1 when the value is not numeric.
func (c *Condition) Numeric() float64 { return c.numeric }

// RuleIndex returns the position of the owning rule in its rule set, or -1
// when the condition is not attached.
func (c *Condition) RuleIndex() int { return c.ruleIndex }

// SetValue replaces the value of an equation and re-derives its numeric form.
func (c *Condition) SetValue(value string) {
	if c.kind != kindEquation {
		return
	}
	c.value = value
	if f, ok := parseNumber(value); ok {
		c.isNumeric = true
		c.numeric = f
	} else {
		c.isNumeric = false
		c.numeric = -1
	}
}

// SetMetric renames the metric of an equation.
func (c *Condition) SetMetric(metric string) {
	if c.kind == kindEquation {
		c.metric = metric
	}
}

// SetClass replaces the label of a classification.
func (c *Condition) SetClass(class string) {
	if c.kind == kindClassification {
		c.class = class
	}
}

// IsContinuous reports whether the condition is an equation with a range
// operator.
func (c *Condition) IsContinuous() bool {
	return c.IsEquation() && c.operator.IsContinuous()
}

// IsDiscrete reports whether the condition is an equation with =, == or !=.
func (c *Condition) IsDiscrete() bool {
	return c.IsEquation() && !c.operator.IsContinuous()
}

// Compare orders conditions: classifications first (by label), then equations
// by metric and value. Two numeric values compare by their difference
// truncated to an int, so values less than one apart compare equal.
func (c *Condition) Compare(o *Condition) int {
	switch {
	case c.IsClassification() && o.IsClassification():
		return strings.Compare(c.class, o.class)
	case c.IsClassification():
		return -1
	case o.IsClassification():
		return 1
	}

	if c.metric != o.metric {
		return strings.Compare(c.metric, o.metric)
	}
	if c.isNumeric && o.isNumeric {
		return int(c.numeric - o.numeric)
	}
	return strings.Compare(c.value, o.value)
}

// Contradicts reports whether c and o cannot both hold: opposite bound
// directions on the same metric that leave no overlap.
func (c *Condition) Contradicts(o *Condition) bool {
	if !c.comparable(o) {
		return false
	}
	v1, v2 := c.numeric, o.numeric

	switch {
	case c.operator.IsLess() && o.operator.IsGreater():
		return !(v1 > v2)
	case c.operator.IsGreater() && o.operator.IsLess():
		return !(v1 < v2)
	default:
		return false
	}
}

// Implies reports whether c holding means o holds too.
func (c *Condition) Implies(o *Condition) bool {
	if !c.comparable(o) {
		return false
	}
	v1, v2 := c.numeric, o.numeric

	switch {
	case c.operator.IsGreater() && o.operator.IsGreater():
		return v1 >= v2
	case c.operator.IsLess() && o.operator.IsLess():
		return v1 <= v2
	case c.operator.IsEquality() && o.operator.IsEquality():
		return v1 == v2
	case c.operator == OpNotEqual && o.operator == OpNotEqual:
		return v1 == v2
	default:
		return false
	}
}

func (c *Condition) comparable(o *Condition) bool {
	return c.IsEquation() && o.IsEquation() &&
		c.metric == o.metric &&
		c.isNumeric && o.isNumeric
}

// Equal reports whether two conditions are the same test or the same label.
func (c *Condition) Equal(o *Condition) bool {
	if c.kind != o.kind {
		return false
	}
	if c.IsClassification() {
		return c.class == o.class
	}
	return c.metric == o.metric && c.operator == o.operator && c.value == o.value
}

// Clone returns an unattached copy.
func (c *Condition) Clone() *Condition {
	out := *c
	out.ruleIndex = -1
	return &out
}

// Perturb mutates the condition at random. A classification switches to a
// different label from labels. An equation flips its operator and redraws its
// value from the cut points (continuous operators) or the value list (discrete
// operators) of rs for its metric. Nothing changes when no alternative exists.
func (c *Condition) Perturb(rs *RuleSet, rng *rand.Rand, labels []string) {
	if c.IsClassification() {
		if len(labels) < 2 {
			return
		}
		var candidates []string
		for _, l := range labels {
			if l != c.class {
				candidates = append(candidates, l)
			}
		}
		if len(candidates) > 0 {
			c.class = candidates[rng.IntN(len(candidates))]
		}
		return
	}

	c.operator = c.operator.Negate()

	var values []float64
	if c.operator.IsContinuous() {
		values = rs.CutPoints(c.metric)
	} else {
		values = rs.ValueList(c.metric)
	}
	if len(values) < 2 {
		return
	}

	var candidates []float64
	for _, v := range values {
		if c.isNumeric && v == c.numeric {
			continue
		}
		candidates = append(candidates, v)
	}
	if len(candidates) == 0 {
		return
	}
	c.SetValue(formatNumber(candidates[rng.IntN(len(candidates))]))
}

// String renders the condition as "metric op value" or as the label.
func (c *Condition) String() string {
	if c.IsClassification() {
		return c.class
	}
	return fmt.Sprintf("%s %s %s", c.metric, c.operator, c.value)
}
