package ruleset

import (
	"errors"
	"testing"

	"mercator-hq/rulebench/pkg/dataset"
)

func TestRule_AddConditionRejectsClassification(t *testing.T) {
	r := rule(t, "yes")
	if err := r.AddCondition(classification(t, "no")); !errors.Is(err, ErrClassificationCondition) {
		t.Errorf("AddCondition() error = %v, want %v", err, ErrClassificationCondition)
	}
	if _, err := NewRule("yes", classification(t, "no")); !errors.Is(err, ErrClassificationCondition) {
		t.Errorf("NewRule() error = %v, want %v", err, ErrClassificationCondition)
	}
}

func TestRule_Test(t *testing.T) {
	metrics := dataset.NewVocabulary("size", "color")

	tests := []struct {
		name        string
		rec         dataset.Record
		override    *Condition
		opts        Options
		wantMatch   bool
		wantCorrect int
		wantWrong   int
		wantFailed  int
	}{
		{
			name:        "match correct",
			rec:         record("big", "10", "red"),
			wantMatch:   true,
			wantCorrect: 1,
		},
		{
			name:      "match wrong",
			rec:       record("small", "10", "red"),
			wantMatch: true,
			wantWrong: 1,
		},
		{
			name:       "first condition fails",
			rec:        record("big", "3", "red"),
			wantFailed: 1,
		},
		{
			name:       "second condition fails",
			rec:        record("big", "10", "blue"),
			wantFailed: 1,
		},
		{
			name:        "equation override substitutes",
			rec:         record("big", "3", "red"),
			override:    equation(t, "size", OpGreater, "1"),
			wantMatch:   true,
			wantCorrect: 1,
		},
		{
			name:        "classification override changes label",
			rec:         record("small", "10", "red"),
			override:    classification(t, "small"),
			wantMatch:   true,
			wantCorrect: 1,
		},
		{
			name:       "override on other metric ignored",
			rec:        record("big", "3", "red"),
			override:   equation(t, "weight", OpGreater, "1"),
			wantFailed: 1,
		},
		{
			name:      "range mode with non-numeric labels",
			rec:       record("small", "10", "red"),
			opts:      Options{MatchWithinRange: true, Range: 100},
			wantMatch: true,
			wantWrong: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rule(t, "big",
				equation(t, "size", OpGreater, "5"),
				equation(t, "color", OpAssign, "red"),
			)

			got, err := r.Test(tt.rec, metrics, tt.override, tt.opts)
			if err != nil {
				t.Fatalf("Test() error = %v", err)
			}
			if got != tt.wantMatch {
				t.Errorf("Test() = %v, want %v", got, tt.wantMatch)
			}
			if r.Correct() != tt.wantCorrect || r.Wrong() != tt.wantWrong || r.Failed() != tt.wantFailed {
				t.Errorf("counters = %d/%d/%d, want %d/%d/%d",
					r.Correct(), r.Wrong(), r.Failed(),
					tt.wantCorrect, tt.wantWrong, tt.wantFailed)
			}
		})
	}
}

func TestRule_TestRange(t *testing.T) {
	metrics := dataset.NewVocabulary("m")

	tests := []struct {
		name        string
		tolerance   float64
		wantCorrect int
		wantWrong   int
	}{
		{"within tolerance", 2, 1, 0},
		{"zero tolerance", 0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rule(t, "11", equation(t, "m", OpGreater, "0"))
			opts := Options{MatchWithinRange: true, Range: tt.tolerance}

			if _, err := r.Test(record("10", "1"), metrics, nil, opts); err != nil {
				t.Fatalf("Test() error = %v", err)
			}
			if r.Correct() != tt.wantCorrect || r.Wrong() != tt.wantWrong {
				t.Errorf("correct/wrong = %d/%d, want %d/%d", r.Correct(), r.Wrong(), tt.wantCorrect, tt.wantWrong)
			}
		})
	}
}

func TestRule_TestTooManyValues(t *testing.T) {
	r := rule(t, "a", equation(t, "m", OpGreater, "0"))
	_, err := r.Test(record("a", "1", "2"), dataset.NewVocabulary("m"), nil, Options{})

	var invalid *InvalidRecordError
	if !errors.As(err, &invalid) {
		t.Fatalf("Test() error = %v, want *InvalidRecordError", err)
	}
	if !errors.Is(err, ErrInvalidRecord) {
		t.Error("InvalidRecordError does not match ErrInvalidRecord")
	}
	if r.Failed() != 0 {
		t.Errorf("Failed() = %d after invalid record, want 0", r.Failed())
	}
}

func TestRule_ClearMeasurements(t *testing.T) {
	metrics := dataset.NewVocabulary("m")
	r := rule(t, "a", equation(t, "m", OpGreater, "0"))
	r.Quality = 0.9

	r.Test(record("a", "1"), metrics, nil, Options{})
	r.Test(record("b", "1"), metrics, nil, Options{})
	r.Test(record("a", "-1"), metrics, nil, Options{})

	if got := r.Accuracy(); got != 0.5 {
		t.Errorf("Accuracy() = %v, want 0.5", got)
	}
	if got := r.Coverage(); got != 2.0/3.0 {
		t.Errorf("Coverage() = %v, want %v", got, 2.0/3.0)
	}

	r.ClearMeasurements()

	if r.Correct() != 0 || r.Wrong() != 0 || r.Failed() != 0 || r.Quality != 0 {
		t.Errorf("counters not cleared: %d/%d/%d q=%v", r.Correct(), r.Wrong(), r.Failed(), r.Quality)
	}
	if r.PreviousCorrect() != 1 || r.PreviousWrong() != 1 || r.PreviousFailed() != 1 {
		t.Errorf("previous = %d/%d/%d, want 1/1/1", r.PreviousCorrect(), r.PreviousWrong(), r.PreviousFailed())
	}
	if r.PreviousAccuracy() != 0.5 {
		t.Errorf("PreviousAccuracy() = %v, want 0.5", r.PreviousAccuracy())
	}
}

func TestRule_UpdateCondition(t *testing.T) {
	r := rule(t, "a", equation(t, "m", OpGreater, "0"), equation(t, "n", OpLess, "5"))

	if err := r.UpdateCondition(equation(t, "n", OpLess, "9")); err != nil {
		t.Fatalf("UpdateCondition() error = %v", err)
	}
	if got := r.Condition("n").Value(); got != "9" {
		t.Errorf("Condition(n).Value() = %q, want 9", got)
	}

	if err := r.UpdateCondition(classification(t, "b")); err != nil {
		t.Fatalf("UpdateCondition(classification) error = %v", err)
	}
	if r.Class() != "b" {
		t.Errorf("Class() = %q, want b", r.Class())
	}

	if err := r.UpdateCondition(equation(t, "zzz", OpLess, "1")); !errors.Is(err, ErrNoSuchCondition) {
		t.Errorf("UpdateCondition(unknown) error = %v, want %v", err, ErrNoSuchCondition)
	}

	withClass := r.ConditionsWithClass()
	if len(withClass) != 3 || !withClass[2].IsClassification() || withClass[2].Class() != "b" {
		t.Errorf("ConditionsWithClass() = %v", withClass)
	}
}

func TestRule_SetConditions(t *testing.T) {
	r := rule(t, "a", equation(t, "m", OpGreater, "0"))
	r.SetConditions([]*Condition{
		equation(t, "x", OpLess, "1"),
		classification(t, "z"),
	})

	if r.Len() != 1 || r.Condition("x") == nil {
		t.Errorf("conditions = %v, want only x", r.Conditions())
	}
	if r.Class() != "z" {
		t.Errorf("Class() = %q, want z", r.Class())
	}
}

func TestRule_ImpliesAndContradicts(t *testing.T) {
	a := rule(t, "yes", equation(t, "m", OpGreater, "10"))
	b := rule(t, "yes", equation(t, "m", OpGreater, "5"))
	c := rule(t, "no", equation(t, "m", OpGreater, "10"))

	if !a.Implies(b) {
		t.Error("a.Implies(b) = false, want true")
	}
	if b.Implies(a) {
		t.Error("b.Implies(a) = true, want false")
	}
	if a.Implies(c) {
		t.Error("a.Implies(c) = true for different labels")
	}
	if !a.Contradicts(c) {
		t.Error("a.Contradicts(c) = false, want true")
	}
	if a.Contradicts(b) {
		t.Error("a.Contradicts(b) = true for same label")
	}
}
