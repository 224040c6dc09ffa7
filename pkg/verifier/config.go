package verifier

import "fmt"

// Config controls how unknown tokens are resolved.
type Config struct {
	// AutoCorrect resolves tokens by fuzzy matching. When false, the
	// Prompter is asked instead.
	// Default: true.
	AutoCorrect bool

	// InitialThreshold is the first overlap percentage a candidate needs.
	// Default: 60.
	InitialThreshold int

	// Step lowers the threshold between attempts.
	// Default: 10.
	Step int

	// MaxPromptAttempts bounds how often the Prompter is asked for one token.
	// Default: 3.
	MaxPromptAttempts int
}

// DefaultConfig returns the default verifier configuration.
func DefaultConfig() *Config {
	return &Config{
		AutoCorrect:       true,
		InitialThreshold:  60,
		Step:              10,
		MaxPromptAttempts: 3,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.InitialThreshold < 0 || c.InitialThreshold > 100 {
		return fmt.Errorf("%w: initial threshold must be within 0..100, got %d", ErrInvalidConfig, c.InitialThreshold)
	}
	if c.Step <= 0 {
		return fmt.Errorf("%w: step must be positive", ErrInvalidConfig)
	}
	if c.MaxPromptAttempts <= 0 {
		return fmt.Errorf("%w: max prompt attempts must be positive", ErrInvalidConfig)
	}
	return nil
}

// WithAutoCorrect enables or disables auto-correction.
func (c *Config) WithAutoCorrect(enabled bool) *Config {
	c.AutoCorrect = enabled
	return c
}

// WithThreshold sets the initial threshold and step.
func (c *Config) WithThreshold(initial, step int) *Config {
	c.InitialThreshold = initial
	c.Step = step
	return c
}

// WithMaxPromptAttempts sets the prompt attempt limit.
func (c *Config) WithMaxPromptAttempts(n int) *Config {
	c.MaxPromptAttempts = n
	return c
}
