package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "run.mode").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateRun(&cfg.Run)...)
	errs = append(errs, validateInputs(&cfg.Inputs)...)
	errs = append(errs, validateVerifier(&cfg.Verifier)...)
	errs = append(errs, validateFormulas(cfg.Formulas)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateExport(&cfg.Export)...)
	errs = append(errs, validateSchedule(&cfg.Schedule)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateRun(cfg *RunConfig) []FieldError {
	var errs []FieldError

	if cfg.Preset != "" && !oneOf(cfg.Preset, "extreme-speed", "high-speed", "professional") {
		errs = append(errs, FieldError{
			Field:   "run.preset",
			Message: fmt.Sprintf("must be one of extreme-speed, high-speed, professional (got %q)", cfg.Preset),
		})
	}
	if !oneOf(cfg.Mode, "sequential", "voting") {
		errs = append(errs, FieldError{
			Field:   "run.mode",
			Message: fmt.Sprintf("must be sequential or voting (got %q)", cfg.Mode),
		})
	}
	if cfg.MatchWithinRange && cfg.Range < 0 {
		errs = append(errs, FieldError{
			Field:   "run.range",
			Message: "range must be non-negative",
		})
	}
	if cfg.Threads < 0 {
		errs = append(errs, FieldError{
			Field:   "run.threads",
			Message: "threads must be non-negative",
		})
	}
	if cfg.EventBuffer < 2 {
		errs = append(errs, FieldError{
			Field:   "run.event_buffer",
			Message: "event buffer must be at least 2",
		})
	}
	return errs
}

func validateInputs(cfg *InputsConfig) []FieldError {
	var errs []FieldError

	if utf8.RuneCountInString(cfg.Delimiter) != 1 {
		errs = append(errs, FieldError{
			Field:   "inputs.delimiter",
			Message: fmt.Sprintf("delimiter must be a single character (got %q)", cfg.Delimiter),
		})
	}

	switch cfg.RuleSets.Mode {
	case "file":
		if cfg.RuleSets.Path == "" {
			errs = append(errs, FieldError{
				Field:   "inputs.rulesets.path",
				Message: "path is required when mode is file",
			})
		}
	case "git":
		git := &cfg.RuleSets.Git
		if git.Repository == "" {
			errs = append(errs, FieldError{
				Field:   "inputs.rulesets.git.repository",
				Message: "repository is required when mode is git",
			})
		}
		if git.Timeout < 0 || git.PollInterval < 0 {
			errs = append(errs, FieldError{
				Field:   "inputs.rulesets.git",
				Message: "timeout and poll interval must be positive",
			})
		}
		if !oneOf(git.Auth.Type, "none", "token", "ssh") {
			errs = append(errs, FieldError{
				Field:   "inputs.rulesets.git.auth.type",
				Message: fmt.Sprintf("must be none, token or ssh (got %q)", git.Auth.Type),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "inputs.rulesets.mode",
			Message: fmt.Sprintf("must be file or git (got %q)", cfg.RuleSets.Mode),
		})
	}
	return errs
}

func validateVerifier(cfg *VerifierConfig) []FieldError {
	var errs []FieldError

	if cfg.InitialThreshold < 0 || cfg.InitialThreshold > 100 {
		errs = append(errs, FieldError{
			Field:   "verifier.initial_threshold",
			Message: "threshold must be within 0..100",
		})
	}
	if cfg.Step <= 0 {
		errs = append(errs, FieldError{
			Field:   "verifier.step",
			Message: "step must be positive",
		})
	}
	if cfg.MaxPromptAttempts <= 0 {
		errs = append(errs, FieldError{
			Field:   "verifier.max_prompt_attempts",
			Message: "max prompt attempts must be positive",
		})
	}
	return errs
}

func validateFormulas(formulas []FormulaConfig) []FieldError {
	var errs []FieldError

	seen := make(map[string]bool, len(formulas))
	for i, f := range formulas {
		field := fmt.Sprintf("formulas[%d]", i)
		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "name is required"})
		} else if seen[f.Name] {
			errs = append(errs, FieldError{Field: field + ".name", Message: fmt.Sprintf("duplicate formula %q", f.Name)})
		}
		seen[f.Name] = true

		if len(f.Numerator) == 0 || len(f.Denominator) == 0 {
			errs = append(errs, FieldError{Field: field, Message: "numerator and denominator cells are required"})
		}
		for _, c := range append(append([][2]int(nil), f.Numerator...), f.Denominator...) {
			if c[0] < 0 || c[1] < 0 {
				errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("cell %v must be non-negative", c)})
				break
			}
		}
	}
	return errs
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if !oneOf(cfg.SQLite.Driver, "sqlite3", "sqlite") {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.driver",
				Message: fmt.Sprintf("must be sqlite3 or sqlite (got %q)", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 0 || cfg.SQLite.MaxIdleConns < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite",
				Message: "connection limits must be non-negative",
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.busy_timeout",
				Message: "busy timeout must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("must be sqlite or memory (got %q)", cfg.Backend),
		})
	}
	return errs
}

func validateExport(cfg *ExportConfig) []FieldError {
	if !oneOf(cfg.Format, "json", "csv") {
		return []FieldError{{
			Field:   "export.format",
			Message: fmt.Sprintf("must be json or csv (got %q)", cfg.Format),
		}}
	}
	return nil
}

func validateSchedule(cfg *ScheduleConfig) []FieldError {
	var errs []FieldError

	for _, f := range []struct{ field, spec string }{
		{"schedule.run", cfg.Run},
		{"schedule.prune", cfg.Prune},
	} {
		field, spec := f.field, f.spec
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("invalid cron expression %q: %v", spec, err),
			})
		}
	}
	if cfg.RetentionDays < -1 {
		errs = append(errs, FieldError{
			Field:   "schedule.retention_days",
			Message: "retention days must be positive, or -1 to keep runs forever",
		})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if !oneOf(strings.ToLower(cfg.Logging.Level), "debug", "info", "warn", "error") {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be debug, info, warn or error (got %q)", cfg.Logging.Level),
		})
	}
	if !oneOf(strings.ToLower(cfg.Logging.Format), "json", "text") {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be json or text (got %q)", cfg.Logging.Format),
		})
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "path must start with /",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be within 0.0..1.0",
		})
	}
	if !oneOf(cfg.Tracing.Exporter, "otlp", "stdout") {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.exporter",
			Message: fmt.Sprintf("must be otlp or stdout (got %q)", cfg.Tracing.Exporter),
		})
	}
	if !oneOf(cfg.Tracing.Sampler, "always", "never", "ratio") {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("must be always, never or ratio (got %q)", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Exporter == "otlp" && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}
	return errs
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
