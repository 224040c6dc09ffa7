package ruleset

import (
	"testing"

	"mercator-hq/rulebench/pkg/dataset"
)

func equation(t *testing.T, metric string, op Operator, value string) *Condition {
	t.Helper()
	c, err := NewEquation(metric, op, value)
	if err != nil {
		t.Fatalf("NewEquation(%q, %q, %q) error = %v", metric, op, value, err)
	}
	return c
}

func classification(t *testing.T, class string) *Condition {
	t.Helper()
	c, err := NewClassification(class)
	if err != nil {
		t.Fatalf("NewClassification(%q) error = %v", class, err)
	}
	return c
}

func rule(t *testing.T, class string, conds ...*Condition) *Rule {
	t.Helper()
	r, err := NewRule(class, conds...)
	if err != nil {
		t.Fatalf("NewRule(%q) error = %v", class, err)
	}
	return r
}

func record(class string, values ...string) dataset.Record {
	return dataset.Record{Values: values, Class: class}
}
