// Package source provides rule-set sources for the evaluation engine.
//
// A rule-set source is responsible for loading and watching rule sets.
// This package provides file-based, git-backed and in-memory implementations.
//
// # File Format
//
// Rule sets are YAML documents. A file may hold one rule set, a list of rule
// sets, or several documents separated by "---":
//
//	name: iris
//	default: setosa
//	rules:
//	  - when:
//	      - {metric: petal_length, op: ">", value: 2.45}
//	      - {metric: petal_width, op: "<=", value: 1.75}
//	    then: versicolor
//
// The name defaults to the file name without extension. When a file holds
// more than one rule set they are numbered with SubIDs 0..n-1.
//
// # File Source
//
//	src := source.NewFileSource("rulesets/")
//	sets, err := src.LoadRuleSets(ctx)
//
// # Hot-Reload
//
// File and git sources report changes on the channel returned by Watch:
//
//	events, err := src.Watch(ctx)
//	for event := range events {
//	    if event.Error != nil {
//	        logger.Error("watch error", "error", event.Error)
//	        continue
//	    }
//	    sets, err := src.LoadRuleSets(ctx)
//	}
//
// # In-Memory Source
//
// The in-memory source is useful for testing:
//
//	src := source.NewMemorySource(sets...)
package source
