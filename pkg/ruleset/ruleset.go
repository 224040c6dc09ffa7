package ruleset

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"mercator-hq/rulebench/pkg/dataset"
)

// ctxCheckInterval is how many records TestDataSet evaluates between
// cancellation checks.
const ctxCheckInterval = 256

// TraceEntry records which rule decided one case in sequential mode.
type TraceEntry struct {
	Case      int    `json:"case"`
	Rule      string `json:"rule"`
	Predicted string `json:"predicted"`
	Actual    string `json:"actual"`
}

// RuleSet is an ordered list of rules with a default classification and the
// confusion matrices of everything it has tested.
type RuleSet struct {
	// Name identifies the rule set, usually its source file name.
	Name string

	// SubID distinguishes rule sets loaded from the same source. -1 when the
	// source holds a single rule set.
	SubID int

	// Source is where the rule set was loaded from.
	Source string

	rules        []*Rule
	defaultClass string

	classes *dataset.Vocabulary
	metrics *dataset.Vocabulary

	matrix Matrix
	indi   Matrix

	trace      []TraceEntry
	caseNumber int
}

// New creates an empty rule set. Vocabularies may be nil and bound later.
func New(name, defaultClass string, classes, metrics *dataset.Vocabulary) *RuleSet {
	rs := &RuleSet{
		Name:         name,
		SubID:        -1,
		defaultClass: strings.TrimSpace(defaultClass),
	}
	rs.Bind(classes, metrics)
	return rs
}

// Bind attaches the classification and metric vocabularies and resizes the
// matrices, discarding anything recorded so far.
func (rs *RuleSet) Bind(classes, metrics *dataset.Vocabulary) {
	rs.classes = classes
	rs.metrics = metrics
	rs.matrix = NewMatrix(classes.Len())
	rs.indi = NewMatrix(classes.Len())
}

// ID returns Name, suffixed with (SubID) when set.
func (rs *RuleSet) ID() string {
	if rs.SubID < 0 {
		return rs.Name
	}
	return fmt.Sprintf("%s(%d)", rs.Name, rs.SubID)
}

func (rs *RuleSet) Classes() *dataset.Vocabulary { return rs.classes }
func (rs *RuleSet) Metrics() *dataset.Vocabulary { return rs.metrics }

// DefaultClass returns the label predicted when no rule matches.
func (rs *RuleSet) DefaultClass() string { return rs.defaultClass }

// SetDefaultClass replaces the default label.
func (rs *RuleSet) SetDefaultClass(class string) {
	rs.defaultClass = strings.TrimSpace(class)
}

// AddRule appends r.
func (rs *RuleSet) AddRule(r *Rule) {
	r.setIndex(len(rs.rules))
	rs.rules = append(rs.rules, r)
}

// SetRules replaces all rules.
func (rs *RuleSet) SetRules(rules []*Rule) {
	rs.rules = rs.rules[:0:0]
	for _, r := range rules {
		rs.AddRule(r)
	}
}

// Rules returns the rules in order.
func (rs *RuleSet) Rules() []*Rule {
	out := make([]*Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Rule returns the rule at index i.
func (rs *RuleSet) Rule(i int) *Rule { return rs.rules[i] }

// Test classifies rec, records the prediction in both matrices and returns
// the predicted label.
func (rs *RuleSet) Test(rec dataset.Record, opts Options) (string, error) {
	if rs.classes == nil || rs.metrics == nil {
		return "", ErrUnbound
	}
	opts = opts.Normalize()

	if opts.Mode == ModeVoting {
		return rs.votingTest(rec, opts)
	}
	return rs.sequentialTest(rec, opts)
}

// TestDataSet tests every record of ds in order.
func (rs *RuleSet) TestDataSet(ctx context.Context, ds *dataset.DataSet, opts Options) error {
	for i, rec := range ds.Records {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if _, err := rs.Test(rec, opts); err != nil {
			return err
		}
	}
	return nil
}

// Rule counters and matrices are only updated once the record is known to be
// valid, so an InvalidRecordError leaves the rule set untouched.
func (rs *RuleSet) sequentialTest(rec dataset.Record, opts Options) (string, error) {
	predicted := rs.defaultClass
	decided := -1

	for i, r := range rs.rules {
		ok, err := r.matches(rec, rs.metrics, nil)
		if err != nil {
			return "", err
		}
		if ok {
			predicted = r.class
			decided = i
			break
		}
	}

	actual, pred, err := rs.indices(rec, predicted, opts)
	if err != nil {
		return "", err
	}
	rs.matrix.Add(actual, pred)
	rs.indi.Add(actual, pred)

	for i, r := range rs.rules {
		r.tally(rec, i == decided, r.class, opts)
		if i == decided {
			break
		}
	}

	if opts.Track {
		name := "Default"
		if decided >= 0 {
			name = fmt.Sprintf("Rule %d", decided)
		}
		rs.trace = append(rs.trace, TraceEntry{
			Case:      rs.caseNumber,
			Rule:      name,
			Predicted: predicted,
			Actual:    rec.Class,
		})
		rs.caseNumber++
	}

	return predicted, nil
}

func (rs *RuleSet) votingTest(rec dataset.Record, opts Options) (string, error) {
	votes := make([]int, rs.classes.Len())

	def := rs.classIndex(rs.defaultClass)
	if def < 0 {
		return "", invalidRecord(rec, "default class %q is not a known classification", rs.defaultClass)
	}
	votes[def]++

	matched := make([]bool, len(rs.rules))
	for i, r := range rs.rules {
		ok, err := r.matches(rec, rs.metrics, nil)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		idx := rs.classIndex(r.class)
		if idx < 0 {
			return "", invalidRecord(rec, "rule class %q is not a known classification", r.class)
		}
		votes[idx]++
		matched[i] = true
	}

	winner := 0
	for i := 1; i < len(votes); i++ {
		if votes[i] > votes[winner] {
			winner = i
		}
	}
	predicted := rs.classes.At(winner)

	actual, pred, err := rs.indices(rec, predicted, opts)
	if err != nil {
		return "", err
	}
	rs.matrix.Add(actual, pred)
	rs.indi.Add(actual, pred)

	for i, r := range rs.rules {
		r.tally(rec, matched[i], r.class, opts)
	}
	return predicted, nil
}

// indices resolves the matrix cell [actual][predicted] of rec. With range
// matching, a numeric prediction within tolerance is counted as the actual
// label.
func (rs *RuleSet) indices(rec dataset.Record, predicted string, opts Options) (actual, pred int, err error) {
	if opts.MatchWithinRange && predicted != rec.Class && withinRange(predicted, rec.Class, opts.Range) {
		predicted = rec.Class
	}

	actual = rs.classIndex(rec.Class)
	if actual < 0 {
		return 0, 0, invalidRecord(rec, "classification %q is not a known label", rec.Class)
	}
	pred = rs.classIndex(predicted)
	if pred < 0 {
		return 0, 0, invalidRecord(rec, "predicted classification %q is not a known label", predicted)
	}
	return actual, pred, nil
}

// classIndex resolves a label to its matrix ordinal. Labels outside the
// vocabulary that are integers in range are used as ordinals directly.
func (rs *RuleSet) classIndex(label string) int {
	if i := rs.classes.IndexOf(label); i >= 0 {
		return i
	}
	if n, ok := parseInt(label); ok && n >= 0 && n < rs.classes.Len() {
		return n
	}
	return -1
}

// Matrix returns a copy of the cumulative confusion matrix.
func (rs *RuleSet) Matrix() Matrix { return rs.matrix.Snapshot() }

// IndiMatrix returns a copy of the per-dataset confusion matrix.
func (rs *RuleSet) IndiMatrix() Matrix { return rs.indi.Snapshot() }

// IndiReset zeroes the per-dataset matrix only.
func (rs *RuleSet) IndiReset() {
	rs.indi.Reset()
}

// ClearMeasurements zeroes both matrices and clears every rule's counters.
func (rs *RuleSet) ClearMeasurements() {
	rs.matrix.Reset()
	rs.indi.Reset()
	for _, r := range rs.rules {
		r.ClearMeasurements()
	}
}

// Trace returns the recorded decisions.
func (rs *RuleSet) Trace() []TraceEntry {
	out := make([]TraceEntry, len(rs.trace))
	copy(out, rs.trace)
	return out
}

// StopTracking drops the recorded decisions and restarts case numbering.
func (rs *RuleSet) StopTracking() {
	rs.trace = nil
	rs.caseNumber = 0
}

// SortByQuality orders rules by descending Quality. Equal qualities keep
// their order.
func (rs *RuleSet) SortByQuality() {
	sort.SliceStable(rs.rules, func(i, j int) bool {
		return rs.rules[i].Quality > rs.rules[j].Quality
	})
	for i, r := range rs.rules {
		r.setIndex(i)
	}
}

// SetOptimalDefault sets the default classification to the most frequent
// actual label among records of ds that no rule matches. Ties go to the
// earliest label in the vocabulary. Rule counters are not touched.
func (rs *RuleSet) SetOptimalDefault(ds *dataset.DataSet) error {
	if rs.classes == nil || rs.metrics == nil {
		return ErrUnbound
	}
	if rs.classes.Len() == 0 {
		return fmt.Errorf("%w: empty classification vocabulary", ErrUnbound)
	}

	counts := make([]int, rs.classes.Len())
	for _, rec := range ds.Records {
		matched := false
		for _, r := range rs.rules {
			ok, err := r.Matches(rec, rs.metrics)
			if err != nil {
				return err
			}
			if ok {
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if idx := rs.classIndex(rec.Class); idx >= 0 {
			counts[idx]++
		}
	}

	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	rs.defaultClass = rs.classes.At(best)
	return nil
}

// Clone returns a deep copy with fresh matrices and no trace.
func (rs *RuleSet) Clone() *RuleSet {
	out := New(rs.Name, rs.defaultClass, rs.classes, rs.metrics)
	out.SubID = rs.SubID
	out.Source = rs.Source
	for _, r := range rs.rules {
		conds := make([]*Condition, len(r.conditions))
		for i, c := range r.conditions {
			conds[i] = c.Clone()
		}
		nr := &Rule{class: r.class, Quality: r.Quality, index: -1}
		nr.conditions = conds
		out.AddRule(nr)
	}
	return out
}

// String renders the rule set definition.
func (rs *RuleSet) String() string {
	var sb strings.Builder
	for i, r := range rs.rules {
		fmt.Fprintf(&sb, "Rule %d:\n", i)
		for _, c := range r.conditions {
			sb.WriteString(c.String())
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "-> class %s\n", r.class)
	}
	fmt.Fprintf(&sb, "Default class: %s\n", rs.defaultClass)
	return sb.String()
}
