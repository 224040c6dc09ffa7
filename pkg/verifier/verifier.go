package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"mercator-hq/rulebench/pkg/dataset"
	"mercator-hq/rulebench/pkg/pool"
	"mercator-hq/rulebench/pkg/ruleset"
)

// TokenKind names the vocabulary a token belongs to.
type TokenKind int

const (
	KindMetric TokenKind = iota
	KindClassification
)

// String returns the kind name.
func (k TokenKind) String() string {
	if k == KindClassification {
		return "classification"
	}
	return "metric"
}

// Prompter asks an operator to replace an unknown token.
type Prompter interface {
	Prompt(ctx context.Context, kind TokenKind, wrong string, candidates []string) (string, error)
}

// Recorder receives correction outcomes, typically for metrics.
type Recorder interface {
	RecordCorrection(kind string, auto bool)
	RecordUnresolved(kind string)
}

// Correction is one resolved token.
type Correction struct {
	Kind    TokenKind
	Wrong   string
	Correct string
	Auto    bool
}

type cacheKey struct {
	kind  TokenKind
	token string
}

// Verifier resolves unknown tokens in rule sets. It is safe for concurrent
// use; the correction cache is shared across all verified rule sets.
type Verifier struct {
	cfg      *Config
	metrics  *dataset.Vocabulary
	classes  *dataset.Vocabulary
	prompter Prompter
	recorder Recorder
	logger   *slog.Logger

	mu          sync.Mutex
	cache       map[cacheKey]string
	corrections []Correction
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithPrompter sets the prompter used when auto-correction is off.
func WithPrompter(p Prompter) Option {
	return func(v *Verifier) {
		v.prompter = p
	}
}

// WithRecorder sets the correction recorder.
func WithRecorder(r Recorder) Option {
	return func(v *Verifier) {
		v.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// New creates a verifier for the given vocabularies.
func New(cfg *Config, metrics, classes *dataset.Vocabulary, opts ...Option) (*Verifier, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	v := &Verifier{
		cfg:     cfg,
		metrics: metrics,
		classes: classes,
		cache:   make(map[cacheKey]string),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default().With("component", "verifier")
	}
	if !cfg.AutoCorrect && v.prompter == nil {
		return nil, ErrNoPrompter
	}
	return v, nil
}

// Verify checks every condition metric, rule classification and the default
// classification of rs, replacing unknown tokens in place.
func (v *Verifier) Verify(ctx context.Context, rs *ruleset.RuleSet) error {
	for _, r := range rs.Rules() {
		for _, c := range r.Conditions() {
			if v.metrics.Contains(c.Metric()) {
				continue
			}
			fixed, err := v.Resolve(ctx, KindMetric, c.Metric())
			if err != nil {
				return err
			}
			c.SetMetric(fixed)
		}

		if !v.classes.Contains(r.Class()) {
			fixed, err := v.Resolve(ctx, KindClassification, r.Class())
			if err != nil {
				return err
			}
			r.SetClass(fixed)
		}
	}

	if !v.classes.Contains(rs.DefaultClass()) {
		fixed, err := v.Resolve(ctx, KindClassification, rs.DefaultClass())
		if err != nil {
			return err
		}
		rs.SetDefaultClass(fixed)
	}
	return nil
}

// VerifyAll verifies every rule set on sched. The first failure cancels the
// rest.
func (v *Verifier) VerifyAll(ctx context.Context, sets []*ruleset.RuleSet, sched pool.Scheduler) error {
	if sched == nil {
		sched = pool.New(0)
	}
	tasks := make([]pool.Task, len(sets))
	for i, rs := range sets {
		rs := rs
		tasks[i] = func(ctx context.Context) error {
			if err := v.Verify(ctx, rs); err != nil {
				return fmt.Errorf("rule set %s: %w", rs.ID(), err)
			}
			return nil
		}
	}
	return sched.Run(ctx, tasks)
}

// Resolve returns the replacement for an unknown token.
func (v *Verifier) Resolve(ctx context.Context, kind TokenKind, wrong string) (string, error) {
	key := cacheKey{kind: kind, token: wrong}

	// The lock is held across prompting so one token is never asked twice.
	v.mu.Lock()
	defer v.mu.Unlock()

	if fixed, ok := v.cache[key]; ok {
		return fixed, nil
	}

	vocab := v.vocabulary(kind)
	var (
		fixed string
		ok    bool
		err   error
	)
	if v.cfg.AutoCorrect {
		fixed, ok = AutoCorrect(wrong, vocab.Labels(), v.cfg.InitialThreshold, v.cfg.Step)
	} else {
		fixed, ok, err = v.prompt(ctx, kind, wrong, vocab)
	}

	if !ok {
		if v.recorder != nil {
			v.recorder.RecordUnresolved(kind.String())
		}
		v.logger.Error("failed to replace token", "kind", kind.String(), "token", wrong, "error", err)
		return "", &UnresolvedCorrectionError{Kind: kind, Token: wrong, Err: err}
	}

	v.cache[key] = fixed
	v.corrections = append(v.corrections, Correction{
		Kind:    kind,
		Wrong:   wrong,
		Correct: fixed,
		Auto:    v.cfg.AutoCorrect,
	})
	if v.recorder != nil {
		v.recorder.RecordCorrection(kind.String(), v.cfg.AutoCorrect)
	}
	v.logger.Info("replaced token",
		"kind", kind.String(),
		"wrong", wrong,
		"correct", fixed,
	)
	return fixed, nil
}

func (v *Verifier) prompt(ctx context.Context, kind TokenKind, wrong string, vocab *dataset.Vocabulary) (string, bool, error) {
	candidates := vocab.Labels()
	for attempt := 0; attempt < v.cfg.MaxPromptAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		answer, err := v.prompter.Prompt(ctx, kind, wrong, candidates)
		if err != nil {
			return "", false, err
		}
		if vocab.Contains(answer) {
			return answer, true, nil
		}
		v.logger.Warn("replacement is not in vocabulary", "kind", kind.String(), "answer", answer)
	}
	return "", false, nil
}

func (v *Verifier) vocabulary(kind TokenKind) *dataset.Vocabulary {
	if kind == KindClassification {
		return v.classes
	}
	return v.metrics
}

// Corrections returns every correction made so far, in order.
func (v *Verifier) Corrections() []Correction {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Correction, len(v.corrections))
	copy(out, v.corrections)
	return out
}
