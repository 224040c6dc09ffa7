// Package verifier checks rule sets against the metric and classification
// vocabularies and repairs unknown tokens before evaluation.
//
// Every equation metric, every rule classification and the default
// classification of a rule set must appear in its vocabulary. An unknown token
// is resolved, in order, from:
//
//  1. the correction cache, shared by all rule sets of a run
//  2. fuzzy auto-correction (Config.AutoCorrect) or the configured Prompter
//
// Auto-correction scores each vocabulary entry by the share of the wrong
// token's characters it contains. Entries scoring at least the threshold
// (InitialThreshold, 60 by default) are candidates; the threshold drops by Step
// until something qualifies or it falls below zero. Among candidates, one
// that contains, starts with or ends with the wrong token is preferred,
// otherwise the first in vocabulary order wins:
//
//	v, _ := verifier.New(verifier.DefaultConfig(), metrics, classes)
//	if err := v.Verify(ctx, rs); err != nil {
//	    // *verifier.UnresolvedCorrectionError
//	}
//
// Corrections are applied to the rule set in place. A token that cannot be
// resolved fails verification with an UnresolvedCorrectionError.
package verifier
