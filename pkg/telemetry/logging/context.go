package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for run identifiers.
	RunIDKey contextKey = "run_id"

	// RuleSetKey is the context key for rule set identifiers.
	RuleSetKey contextKey = "ruleset"

	// DataSetKey is the context key for dataset names.
	DataSetKey contextKey = "dataset"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	return getString(ctx, RunIDKey)
}

// WithRuleSet adds a rule set identifier to the context.
func WithRuleSet(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RuleSetKey, id)
}

// GetRuleSet retrieves the rule set identifier from the context.
func GetRuleSet(ctx context.Context) string {
	return getString(ctx, RuleSetKey)
}

// WithDataSet adds a dataset name to the context.
func WithDataSet(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, DataSetKey, name)
}

// GetDataSet retrieves the dataset name from the context.
func GetDataSet(ctx context.Context) string {
	return getString(ctx, DataSetKey)
}

func getString(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextAttrs extracts the context fields in a fixed order.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range []contextKey{RunIDKey, RuleSetKey, DataSetKey} {
		if v := getString(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

// ContextHandler adds the run, rule set and dataset fields found in the
// record's context.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
