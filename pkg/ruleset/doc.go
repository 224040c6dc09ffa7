// Package ruleset implements classification rule sets and their evaluation
// against labelled records.
//
// A RuleSet is an ordered list of Rules plus a default classification. Each
// Rule is a conjunction of equation Conditions ("metric op value") and a
// classification label. Testing a record either takes the first matching rule
// (ModeSequential) or lets every matching rule vote (ModeVoting); the default
// classification applies when nothing matches and casts one implicit vote.
//
// Every tested record is accumulated into two confusion matrices indexed
// [actual][predicted]: the cumulative matrix for the whole run and the
// per-dataset matrix, which callers reset between datasets with IndiReset.
//
// # Options
//
// Evaluation behavior is carried by an Options value passed to every Test call
// rather than by package state, so concurrent runs with different settings do
// not interfere:
//
//	opts := ruleset.Options{Mode: ruleset.ModeSequential, MatchWithinRange: true, Range: 2}
//	label, err := rs.Test(rec, opts)
//
// With MatchWithinRange, a numeric prediction within Range of a numeric actual
// label is counted as correct. The label returned to the caller is unchanged;
// only the matrix cell and the rule counters see the tolerance.
//
// # Operators
//
// Conditions accept =, ==, !=, <, <=, =<, >, >= and =>. Values are compared
// numerically when both sides parse as numbers and lexicographically
// otherwise. An unrecognised operator behaves like >=.
//
// # Concurrency
//
// A RuleSet is not safe for concurrent use. The engine gives each rule set to a
// single job.
package ruleset
