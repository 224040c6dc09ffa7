package ruleset

import (
	"fmt"
	"strings"

	"mercator-hq/rulebench/pkg/dataset"
	"mercator-hq/rulebench/pkg/scoring"
)

// Rule is a conjunction of equation conditions that predicts one
// classification when all of them hold.
type Rule struct {
	conditions []*Condition
	class      string

	correct, wrong, failed             int
	prevCorrect, prevWrong, prevFailed int

	// Quality is a caller-assigned score used by SortByQuality.
	Quality float64

	index int
}

// NewRule creates a rule predicting class. Conditions must be equations.
func NewRule(class string, conditions ...*Condition) (*Rule, error) {
	class = strings.TrimSpace(class)
	if class == "" {
		return nil, fmt.Errorf("%w: rule needs a classification", ErrInvalidCondition)
	}
	r := &Rule{class: class, index: -1}
	for _, c := range conditions {
		if err := r.AddCondition(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// AddCondition appends an equation condition.
func (r *Rule) AddCondition(c *Condition) error {
	if c.IsClassification() {
		return ErrClassificationCondition
	}
	c.ruleIndex = r.index
	r.conditions = append(r.conditions, c)
	return nil
}

// Class returns the predicted classification.
func (r *Rule) Class() string { return r.class }

// SetClass replaces the predicted classification.
func (r *Rule) SetClass(class string) { r.class = class }

// IsClassNumeric reports whether the classification is an integer label.
func (r *Rule) IsClassNumeric() bool {
	_, ok := parseInt(r.class)
	return ok
}

// Index returns the position of the rule in its rule set, or -1.
func (r *Rule) Index() int { return r.index }

// Conditions returns the equation conditions in order.
func (r *Rule) Conditions() []*Condition {
	out := make([]*Condition, len(r.conditions))
	copy(out, r.conditions)
	return out
}

// ConditionsWithClass returns the equations followed by a classification
// condition carrying the rule label.
func (r *Rule) ConditionsWithClass() []*Condition {
	out := r.Conditions()
	out = append(out, &Condition{kind: kindClassification, class: r.class, ruleIndex: r.index})
	return out
}

// Len returns the number of conditions.
func (r *Rule) Len() int { return len(r.conditions) }

// Condition returns the condition on metric, or nil.
func (r *Rule) Condition(metric string) *Condition {
	for _, c := range r.conditions {
		if c.metric == metric {
			return c
		}
	}
	return nil
}

// SetConditions replaces the conditions. A classification condition in conds
// sets the rule label instead.
func (r *Rule) SetConditions(conds []*Condition) {
	r.conditions = r.conditions[:0:0]
	for _, c := range conds {
		if c.IsClassification() {
			r.class = c.class
			continue
		}
		c.ruleIndex = r.index
		r.conditions = append(r.conditions, c)
	}
}

// UpdateCondition replaces the condition on the same metric, or the label
// when c is a classification.
func (r *Rule) UpdateCondition(c *Condition) error {
	if c.IsClassification() {
		r.class = c.class
		return nil
	}
	for i, existing := range r.conditions {
		if existing.metric == c.metric {
			c.ruleIndex = r.index
			r.conditions[i] = c
			return nil
		}
	}
	return fmt.Errorf("%w %q", ErrNoSuchCondition, c.metric)
}

func (r *Rule) setIndex(i int) {
	r.index = i
	for _, c := range r.conditions {
		c.ruleIndex = i
	}
}

func (r *Rule) Correct() int { return r.correct }
func (r *Rule) Wrong() int   { return r.wrong }
func (r *Rule) Failed() int  { return r.failed }

func (r *Rule) PreviousCorrect() int { return r.prevCorrect }
func (r *Rule) PreviousWrong() int   { return r.prevWrong }
func (r *Rule) PreviousFailed() int  { return r.prevFailed }

// Accuracy is the share of matched records the rule predicted correctly.
func (r *Rule) Accuracy() float64 {
	return scoring.RuleAccuracy(r.correct, r.correct+r.wrong)
}

// Coverage is the share of tested records the rule matched.
func (r *Rule) Coverage() float64 {
	return scoring.Coverage(r.correct, r.wrong, r.failed)
}

func (r *Rule) PreviousAccuracy() float64 {
	return scoring.RuleAccuracy(r.prevCorrect, r.prevCorrect+r.prevWrong)
}

func (r *Rule) PreviousCoverage() float64 {
	return scoring.Coverage(r.prevCorrect, r.prevWrong, r.prevFailed)
}

// ClearMeasurements moves the counters into the previous snapshot, zeroes
// them and resets Quality.
func (r *Rule) ClearMeasurements() {
	r.prevCorrect, r.prevWrong, r.prevFailed = r.correct, r.wrong, r.failed
	r.correct, r.wrong, r.failed = 0, 0, 0
	r.Quality = 0
}

// Matches reports whether every condition holds for rec without touching
// the counters.
func (r *Rule) Matches(rec dataset.Record, metrics *dataset.Vocabulary) (bool, error) {
	return r.matches(rec, metrics, nil)
}

// Test evaluates the rule on rec. The metric vocabulary names the record
// columns. A non-nil override replaces the rule condition on the same metric
// (equation) or the predicted label (classification) for this call only.
//
// A failed condition counts as Failed and returns false. A match counts as
// Correct or Wrong depending on the actual label and returns true.
func (r *Rule) Test(rec dataset.Record, metrics *dataset.Vocabulary, override *Condition, opts Options) (bool, error) {
	ok, err := r.matches(rec, metrics, override)
	if err != nil {
		return false, err
	}
	predicted := r.class
	if override != nil && override.IsClassification() {
		predicted = override.class
	}
	r.tally(rec, ok, predicted, opts)
	return ok, nil
}

// tally counts one evaluation of r against rec.
func (r *Rule) tally(rec dataset.Record, matched bool, predicted string, opts Options) {
	switch {
	case !matched:
		r.failed++
	case rec.Class == predicted:
		r.correct++
	case opts.MatchWithinRange && withinRange(predicted, rec.Class, opts.Range):
		r.correct++
	default:
		r.wrong++
	}
}

func (r *Rule) matches(rec dataset.Record, metrics *dataset.Vocabulary, override *Condition) (bool, error) {
	if len(rec.Values) > metrics.Len() {
		return false, invalidRecord(rec, "%d values for %d metrics", len(rec.Values), metrics.Len())
	}

	for i, value := range rec.Values {
		metric := metrics.At(i)
		cond := r.Condition(metric)
		if cond == nil {
			continue
		}
		if override != nil && override.IsEquation() && override.metric == metric {
			cond = override
		}
		if !Analyze(value, cond.operator, cond.value) {
			return false, nil
		}
	}
	return true, nil
}

// Implies reports whether r and o predict the same label with the same number
// of conditions and some condition of r implies its counterpart in o.
func (r *Rule) Implies(o *Rule) bool {
	if len(r.conditions) != len(o.conditions) || r.class != o.class {
		return false
	}
	for i := range r.conditions {
		if r.conditions[i].Implies(o.conditions[i]) {
			return true
		}
	}
	return false
}

// Contradicts reports whether r and o test identical conditions but predict
// different labels.
func (r *Rule) Contradicts(o *Rule) bool {
	if len(r.conditions) != len(o.conditions) || r.class == o.class {
		return false
	}
	for i := range r.conditions {
		if !r.conditions[i].Equal(o.conditions[i]) {
			return false
		}
	}
	return true
}

// String renders the rule on one line.
func (r *Rule) String() string {
	parts := make([]string, len(r.conditions))
	for i, c := range r.conditions {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s -> class %s", strings.Join(parts, " AND "), r.class)
}
