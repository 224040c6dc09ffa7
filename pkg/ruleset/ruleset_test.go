package ruleset

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"mercator-hq/rulebench/pkg/dataset"
)

func binaryRuleSet(t *testing.T) *RuleSet {
	t.Helper()
	rs := New("demo", "no", dataset.NewVocabulary("yes", "no"), dataset.NewVocabulary("a", "b"))
	rs.AddRule(rule(t, "yes", equation(t, "a", OpGreater, "5")))
	rs.AddRule(rule(t, "no", equation(t, "b", OpLess, "2")))
	rs.AddRule(rule(t, "yes", equation(t, "b", OpGreaterEqual, "3")))
	return rs
}

func TestRuleSet_SequentialFirstMatch(t *testing.T) {
	rs := binaryRuleSet(t)

	tests := []struct {
		name string
		rec  dataset.Record
		want string
	}{
		{"first rule", record("yes", "9", "1"), "yes"},
		{"second rule wins over third", record("no", "1", "1"), "no"},
		{"third rule", record("yes", "1", "3"), "yes"},
		{"default", record("no", "1", "2"), "no"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rs.Test(tt.rec, Options{})
			if err != nil {
				t.Fatalf("Test() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Test() = %q, want %q", got, tt.want)
			}
		})
	}

	// Only the first rule is tested for a record it matches.
	if got := rs.Rule(1).Failed() + rs.Rule(1).Correct() + rs.Rule(1).Wrong(); got != 3 {
		t.Errorf("rule 1 saw %d records, want 3", got)
	}
}

func TestRuleSet_VotingTieGoesToLowestIndex(t *testing.T) {
	classes := dataset.NewVocabulary("c0", "c1", "c2")
	rs := New("vote", "c2", classes, dataset.NewVocabulary("m"))
	rs.AddRule(rule(t, "c1", equation(t, "m", OpGreater, "0")))
	rs.AddRule(rule(t, "c0", equation(t, "m", OpGreater, "0")))

	got, err := rs.Test(record("c0", "1"), Options{Mode: ModeVoting})
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if got != "c0" {
		t.Errorf("Test() = %q, want c0", got)
	}

	// Two votes beat the default's single vote.
	rs.AddRule(rule(t, "c1", equation(t, "m", OpGreater, "0")))
	got, _ = rs.Test(record("c0", "1"), Options{Mode: ModeVoting})
	if got != "c1" {
		t.Errorf("Test() = %q, want c1", got)
	}

	// Nothing matches: only the default votes.
	got, _ = rs.Test(record("c0", "-1"), Options{Mode: ModeVoting})
	if got != "c2" {
		t.Errorf("Test() = %q, want default c2", got)
	}
}

func TestRuleSet_VotingDisablesTracking(t *testing.T) {
	rs := binaryRuleSet(t)
	if _, err := rs.Test(record("yes", "9", "1"), Options{Mode: ModeVoting, Track: true}); err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if len(rs.Trace()) != 0 {
		t.Errorf("Trace() has %d entries in voting mode, want 0", len(rs.Trace()))
	}
}

func TestRuleSet_MatrixSumEqualsRecords(t *testing.T) {
	rs := binaryRuleSet(t)
	ds := dataset.New("d",
		record("yes", "9", "1"),
		record("no", "1", "1"),
		record("yes", "1", "3"),
		record("no", "1", "-4"),
		record("no", "7", "0"),
	)

	if err := rs.TestDataSet(context.Background(), ds, Options{}); err != nil {
		t.Fatalf("TestDataSet() error = %v", err)
	}

	m := rs.Matrix()
	if m.Sum() != ds.Len() {
		t.Errorf("Matrix().Sum() = %d, want %d", m.Sum(), ds.Len())
	}
	if rs.IndiMatrix().Sum() != ds.Len() {
		t.Errorf("IndiMatrix().Sum() = %d, want %d", rs.IndiMatrix().Sum(), ds.Len())
	}
	// yes->yes twice, no->no twice, no predicted yes once.
	if m.TP() != 2 || m.TN() != 2 || m.FP() != 1 || m.FN() != 0 {
		t.Errorf("TP/TN/FP/FN = %d/%d/%d/%d, want 2/2/1/0", m.TP(), m.TN(), m.FP(), m.FN())
	}
}

func TestRuleSet_RangeTolerance(t *testing.T) {
	labels := make([]string, 13)
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}

	tests := []struct {
		name      string
		tolerance float64
		wantCell  [2]int
	}{
		{"within tolerance counts as correct", 2, [2]int{10, 10}},
		{"zero tolerance counts as wrong", 0, [2]int{10, 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := New("range", "0", dataset.NewVocabulary(labels...), dataset.NewVocabulary("m"))
			rs.AddRule(rule(t, "11", equation(t, "m", OpGreater, "0")))

			got, err := rs.Test(record("10", "1"), Options{MatchWithinRange: true, Range: tt.tolerance})
			if err != nil {
				t.Fatalf("Test() error = %v", err)
			}
			if got != "11" {
				t.Errorf("Test() = %q, want 11 (prediction is not rewritten)", got)
			}

			m := rs.Matrix()
			if m[tt.wantCell[0]][tt.wantCell[1]] != 1 {
				t.Errorf("matrix[%d][%d] = %d, want 1", tt.wantCell[0], tt.wantCell[1], m[tt.wantCell[0]][tt.wantCell[1]])
			}
		})
	}
}

func TestRuleSet_OrdinalFallback(t *testing.T) {
	rs := New("ordinal", "1", dataset.NewVocabulary("low", "high"), dataset.NewVocabulary("m"))

	if _, err := rs.Test(record("0", "5"), Options{}); err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if rs.Matrix()[0][1] != 1 {
		t.Errorf("matrix = %v, want [0][1] == 1", rs.Matrix())
	}
}

func TestRuleSet_InvalidRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  dataset.Record
		mode Mode
	}{
		{"unknown actual label", record("maybe", "1", "1"), ModeSequential},
		{"unknown actual label voting", record("maybe", "1", "1"), ModeVoting},
		{"too many values", record("yes", "1", "1", "1"), ModeSequential},
		{"too many values voting", record("yes", "1", "1", "1"), ModeVoting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := binaryRuleSet(t)
			_, err := rs.Test(tt.rec, Options{Mode: tt.mode})

			var invalid *InvalidRecordError
			if !errors.As(err, &invalid) {
				t.Fatalf("Test() error = %v, want *InvalidRecordError", err)
			}
			if !rs.Matrix().IsZero() || !rs.IndiMatrix().IsZero() {
				t.Errorf("matrix counted an invalid record: %v", rs.Matrix())
			}
			for i, r := range rs.Rules() {
				if r.Correct()+r.Wrong()+r.Failed() != 0 {
					t.Errorf("rule %d counters = %d/%d/%d, want all zero",
						i, r.Correct(), r.Wrong(), r.Failed())
				}
			}
		})
	}
}

func TestRuleSet_RuleCountersFollowDecision(t *testing.T) {
	rs := binaryRuleSet(t)

	// a=1 fails rule 0, b=1 matches rule 1 ("no"), rule 2 is never reached.
	if _, err := rs.Test(record("no", "1", "1"), Options{}); err != nil {
		t.Fatalf("Test() error = %v", err)
	}

	want := [][3]int{{0, 0, 1}, {1, 0, 0}, {0, 0, 0}}
	for i, r := range rs.Rules() {
		got := [3]int{r.Correct(), r.Wrong(), r.Failed()}
		if got != want[i] {
			t.Errorf("rule %d correct/wrong/failed = %v, want %v", i, got, want[i])
		}
	}
}

func TestRuleSet_Unbound(t *testing.T) {
	rs := New("unbound", "no", nil, nil)
	if _, err := rs.Test(record("no", "1"), Options{}); !errors.Is(err, ErrUnbound) {
		t.Errorf("Test() error = %v, want %v", err, ErrUnbound)
	}
}

func TestRuleSet_IndiReset(t *testing.T) {
	rs := binaryRuleSet(t)
	rs.Test(record("yes", "9", "1"), Options{})
	rs.Test(record("no", "1", "1"), Options{})

	rs.IndiReset()
	first := rs.IndiMatrix()
	rs.IndiReset()
	second := rs.IndiMatrix()

	if !first.IsZero() || !second.IsZero() {
		t.Errorf("IndiMatrix() after reset = %v / %v, want zero", first, second)
	}
	if rs.Matrix().Sum() != 2 {
		t.Errorf("IndiReset() touched the cumulative matrix: %v", rs.Matrix())
	}
}

func TestRuleSet_ClearMeasurements(t *testing.T) {
	rs := binaryRuleSet(t)
	rs.Test(record("yes", "9", "1"), Options{})

	rs.ClearMeasurements()

	if !rs.Matrix().IsZero() || !rs.IndiMatrix().IsZero() {
		t.Error("ClearMeasurements() left matrix counts")
	}
	if rs.Rule(0).Correct() != 0 || rs.Rule(0).PreviousCorrect() != 1 {
		t.Errorf("rule 0 counters = %d (prev %d), want 0 (prev 1)", rs.Rule(0).Correct(), rs.Rule(0).PreviousCorrect())
	}
}

func TestRuleSet_MatrixIsCopy(t *testing.T) {
	rs := binaryRuleSet(t)
	rs.Test(record("yes", "9", "1"), Options{})

	m := rs.Matrix()
	m[0][0] = 100
	if rs.Matrix()[0][0] != 1 {
		t.Error("Matrix() exposes internal state")
	}
}

func TestRuleSet_Trace(t *testing.T) {
	rs := binaryRuleSet(t)
	opts := Options{Track: true}

	rs.Test(record("yes", "9", "1"), opts)
	rs.Test(record("no", "1", "2"), opts)

	want := []TraceEntry{
		{Case: 0, Rule: "Rule 0", Predicted: "yes", Actual: "yes"},
		{Case: 1, Rule: "Default", Predicted: "no", Actual: "no"},
	}
	got := rs.Trace()
	if len(got) != len(want) {
		t.Fatalf("Trace() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Trace()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	rs.StopTracking()
	rs.Test(record("no", "1", "2"), opts)
	if got := rs.Trace(); len(got) != 1 || got[0].Case != 0 {
		t.Errorf("Trace() after StopTracking = %v, want case numbering restarted", got)
	}
}

func TestRuleSet_TestDataSetCancelled(t *testing.T) {
	rs := binaryRuleSet(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rs.TestDataSet(ctx, dataset.New("d", record("yes", "9", "1")), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("TestDataSet() error = %v, want context.Canceled", err)
	}
}

func TestRuleSet_ID(t *testing.T) {
	rs := New("rules", "a", nil, nil)
	if rs.ID() != "rules" {
		t.Errorf("ID() = %q, want rules", rs.ID())
	}
	rs.SubID = 3
	if rs.ID() != "rules(3)" {
		t.Errorf("ID() = %q, want rules(3)", rs.ID())
	}
}

func TestRuleSet_SortByQuality(t *testing.T) {
	rs := binaryRuleSet(t)
	rs.Rule(0).Quality = 0.1
	rs.Rule(1).Quality = 0.9
	rs.Rule(2).Quality = 0.1

	first, third := rs.Rule(0), rs.Rule(2)
	rs.SortByQuality()

	if rs.Rule(0).Quality != 0.9 {
		t.Errorf("Rule(0).Quality = %v, want 0.9", rs.Rule(0).Quality)
	}
	if rs.Rule(1) != first || rs.Rule(2) != third {
		t.Error("SortByQuality() is not stable for equal qualities")
	}
	for i, r := range rs.Rules() {
		if r.Index() != i {
			t.Errorf("Rule(%d).Index() = %d", i, r.Index())
		}
	}
}

func TestRuleSet_SetOptimalDefault(t *testing.T) {
	rs := New("opt", "yes", dataset.NewVocabulary("yes", "no", "maybe"), dataset.NewVocabulary("m"))
	rs.AddRule(rule(t, "yes", equation(t, "m", OpGreater, "5")))

	ds := dataset.New("d",
		record("yes", "9"),
		record("maybe", "1"),
		record("no", "1"),
		record("maybe", "2"),
		record("no", "3"),
	)

	if err := rs.SetOptimalDefault(ds); err != nil {
		t.Fatalf("SetOptimalDefault() error = %v", err)
	}
	// no and maybe tie at two; no comes first in the vocabulary.
	if rs.DefaultClass() != "no" {
		t.Errorf("DefaultClass() = %q, want no", rs.DefaultClass())
	}
	if rs.Rule(0).Failed() != 0 {
		t.Error("SetOptimalDefault() changed rule counters")
	}
}

func TestRuleSet_CutPointsAndValueList(t *testing.T) {
	rs := New("cp", "no", dataset.NewVocabulary("yes", "no"), dataset.NewVocabulary("m"))
	rs.AddRule(rule(t, "yes", equation(t, "m", OpLess, "2")))
	rs.AddRule(rule(t, "yes", equation(t, "m", OpLess, "4")))
	rs.AddRule(rule(t, "no", equation(t, "m", OpLess, "8")))
	rs.AddRule(rule(t, "no", equation(t, "m", OpLess, "x")))
	rs.AddRule(rule(t, "yes", equation(t, "m", OpLess, "4")))

	cps := rs.CutPoints("m")
	if len(cps) != 1 || cps[0] != 6 {
		t.Errorf("CutPoints() = %v, want [6]", cps)
	}

	values := rs.ValueList("m")
	want := []float64{2, 4, 8}
	if len(values) != len(want) {
		t.Fatalf("ValueList() = %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("ValueList()[%d] = %v, want %v", i, values[i], want[i])
		}
	}

	if got := rs.CutPoints("unknown"); len(got) != 0 {
		t.Errorf("CutPoints(unknown) = %v, want empty", got)
	}
}

func TestRuleSet_String(t *testing.T) {
	rs := binaryRuleSet(t)
	got := rs.String()

	for _, want := range []string{
		"Rule 0:\na > 5\n-> class yes\n",
		"Rule 2:\nb >= 3\n-> class yes\n",
		"Default class: no\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("String() missing %q in:\n%s", want, got)
		}
	}
}

func TestRuleSet_Clone(t *testing.T) {
	rs := binaryRuleSet(t)
	rs.SubID = 2
	rs.Test(record("yes", "9", "1"), Options{})

	clone := rs.Clone()
	if clone.ID() != rs.ID() || clone.Len() != rs.Len() {
		t.Fatalf("Clone() = %s/%d, want %s/%d", clone.ID(), clone.Len(), rs.ID(), rs.Len())
	}
	if !clone.Matrix().IsZero() {
		t.Error("Clone() copied matrix counts")
	}

	clone.Rule(0).Condition("a").SetValue("100")
	if rs.Rule(0).Condition("a").Value() != "5" {
		t.Error("Clone() shares conditions with the original")
	}
}
