package ruleset

import (
	"fmt"
	"strings"
)

// Mode selects how a rule set classifies a record.
type Mode int

const (
	// ModeSequential lets the first matching rule decide.
	ModeSequential Mode = iota

	// ModeVoting lets every matching rule vote for its label.
	ModeVoting
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeVoting:
		return "voting"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential":
		return ModeSequential, nil
	case "voting":
		return ModeVoting, nil
	default:
		return ModeSequential, fmt.Errorf("unknown testing mode %q", s)
	}
}

// Options carry per-run evaluation settings.
type Options struct {
	Mode Mode

	// MatchWithinRange counts numeric predictions within Range of the actual
	// label as correct.
	MatchWithinRange bool
	Range            float64

	// Track records which rule decided each case. Ignored in voting mode.
	Track bool
}

// Normalize returns o with settings that do not apply to the mode turned off.
func (o Options) Normalize() Options {
	if o.Mode == ModeVoting {
		o.Track = false
	}
	if !o.MatchWithinRange {
		o.Range = 0
	}
	return o
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Mode != ModeSequential && o.Mode != ModeVoting {
		return fmt.Errorf("invalid testing mode %d", int(o.Mode))
	}
	if o.MatchWithinRange && o.Range < 0 {
		return fmt.Errorf("range must be non-negative, got %v", o.Range)
	}
	return nil
}

// withinRange reports whether two labels are both integers at most tol apart.
func withinRange(predicted, actual string, tol float64) bool {
	p, ok := parseInt(predicted)
	if !ok {
		return false
	}
	a, ok := parseInt(actual)
	if !ok {
		return false
	}
	diff := float64(p - a)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol
}
