package engine

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"mercator-hq/rulebench/pkg/ruleset"
)

// Preset names accepted by Preset.
const (
	PresetExtremeSpeed = "extreme-speed"
	PresetHighSpeed    = "high-speed"
	PresetProfessional = "professional"
)

// RunConfig selects which steps and outputs a run performs.
type RunConfig struct {
	// Name identifies the run. Defaults to a timestamp.
	Name string

	// Description is free text stored with the run.
	Description string

	// Options control rule matching.
	Options ruleset.Options

	// Threads bounds the number of concurrent jobs. Zero or less, or
	// AutoDetectCPU, uses runtime.NumCPU().
	Threads       int
	AutoDetectCPU bool

	// Clean drops malformed records before evaluation. LogClean logs the
	// number of records kept and dropped per dataset.
	Clean    bool
	LogClean bool

	// Organize rewrites every dataset grouped by classification.
	Organize bool

	// Verify corrects metric and classification tokens in rule sets before
	// evaluation. AutoCorrect resolves them without prompting.
	Verify      bool
	AutoCorrect bool

	// RecordResults stores per-dataset scores.
	RecordResults bool

	// IndiMatrix stores the per-dataset confusion matrix.
	IndiMatrix bool

	// Matrix stores the cumulative confusion matrix of each rule set.
	Matrix bool

	// Definition stores the textual rule-set definition.
	Definition bool

	// Summary stores min, max, mean, median and standard deviation of every
	// scoring function across rule sets.
	Summary bool

	// Debug logs every finished (rule set, dataset) pair at info level.
	Debug bool
}

// DefaultRunConfig returns a sequential run that records every output but
// skips cleaning, organizing and verification.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Name:          time.Now().UTC().Format("20060102T150405Z"),
		Options:       ruleset.Options{Mode: ruleset.ModeSequential},
		AutoDetectCPU: true,
		RecordResults: true,
		IndiMatrix:    true,
		Matrix:        true,
		Definition:    true,
		Summary:       true,
	}
}

// Preset returns one of the named run configurations.
func Preset(name string) (*RunConfig, error) {
	cfg := DefaultRunConfig()

	switch strings.ToLower(strings.TrimSpace(name)) {
	case PresetExtremeSpeed:
		cfg.Name = "ExtremeSpeed"
		cfg.Description = "Skips dataset cleaning, organizing, verification, " +
			"cumulative matrix and definition production."
		cfg.Matrix = false
		cfg.Definition = false

	case PresetHighSpeed:
		cfg.Name = "HighSpeed"
		cfg.Description = "Enables every step and output, with rule tracking."
		cfg.enableAll()

	case PresetProfessional:
		cfg.Name = "Professional"
		cfg.Description = "Enables every step and output, with rule tracking and per-dataset logging."
		cfg.enableAll()
		cfg.Debug = true

	default:
		return nil, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
	}

	return cfg, nil
}

func (c *RunConfig) enableAll() {
	c.Clean = true
	c.LogClean = true
	c.Organize = true
	c.Verify = true
	c.AutoCorrect = true
	c.Options.Track = true
}

// Validate validates the run configuration.
func (c *RunConfig) Validate() error {
	if err := c.Options.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !c.AutoDetectCPU && c.Threads < 0 {
		return fmt.Errorf("%w: threads must be >= 0, got %d", ErrInvalidConfig, c.Threads)
	}
	return nil
}

// ThreadCount returns the number of concurrent jobs the run uses.
func (c *RunConfig) ThreadCount() int {
	if c.AutoDetectCPU || c.Threads <= 0 {
		return runtime.NumCPU()
	}
	return c.Threads
}

// WithOptions sets the rule matching options.
func (c *RunConfig) WithOptions(opts ruleset.Options) *RunConfig {
	c.Options = opts
	return c
}

// WithThreads sets a fixed thread count and disables CPU detection.
func (c *RunConfig) WithThreads(n int) *RunConfig {
	c.Threads = n
	c.AutoDetectCPU = false
	return c
}

// WithCleaning enables dataset cleaning.
func (c *RunConfig) WithCleaning(log bool) *RunConfig {
	c.Clean = true
	c.LogClean = log
	return c
}

// WithVerification enables rule-set verification.
func (c *RunConfig) WithVerification(autoCorrect bool) *RunConfig {
	c.Verify = true
	c.AutoCorrect = autoCorrect
	return c
}

// Describe renders the configuration as human-readable text.
func (c *RunConfig) Describe() string {
	var b strings.Builder
	line := func(label string, v interface{}) {
		fmt.Fprintf(&b, "%-28s %v\n", label+":", v)
	}

	b.WriteString("---------------Run settings---------------\n")
	line("Name", c.Name)
	line("Description", c.Description)
	line("Testing mode", c.Options.Mode)
	line("Matching within range", c.Options.MatchWithinRange)
	line("Range", c.Options.Range)
	line("Rule tracking", c.Options.Track)
	line("Dataset cleaning", c.Clean)
	line("Dataset clean log", c.LogClean)
	line("Dataset organizing", c.Organize)
	line("Ruleset verification", c.Verify)
	line("Verification auto-correct", c.AutoCorrect)
	line("Ruleset definition", c.Definition)
	line("Ruleset matrix", c.Matrix)
	line("Per-dataset matrix", c.IndiMatrix)
	line("Per-dataset results", c.RecordResults)
	line("Summary", c.Summary)
	line("Threads", c.ThreadCount())
	return b.String()
}

// needsSink reports whether any output is enabled.
func (c *RunConfig) needsSink() bool {
	return c.RecordResults || c.IndiMatrix || c.Matrix || c.Definition || c.Summary || c.Options.Track
}
