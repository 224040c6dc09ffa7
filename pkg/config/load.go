package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment variable override.
const EnvPrefix = "RULEBENCH_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Use LoadConfigWithEnvOverrides to also apply environment variables.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults without validating.
// Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention RULEBENCH_SECTION_FIELD (e.g., RULEBENCH_RUN_MODE) and always
// take precedence over the file. An empty path loads the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = NewDefaultConfig()
	} else {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, readErr)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Run overrides
	envString("RUN_PRESET", &cfg.Run.Preset)
	envString("RUN_NAME", &cfg.Run.Name)
	envString("RUN_MODE", &cfg.Run.Mode)
	envBool("RUN_MATCH_WITHIN_RANGE", &cfg.Run.MatchWithinRange)
	envFloat("RUN_RANGE", &cfg.Run.Range)
	envBool("RUN_TRACK", &cfg.Run.Track)
	if envInt("RUN_THREADS", &cfg.Run.Threads) {
		off := false
		cfg.Run.AutoDetectCPU = &off
	}
	envBool("RUN_CLEAN", &cfg.Run.Clean)
	envBool("RUN_ORGANIZE", &cfg.Run.Organize)
	envBool("RUN_VERIFY", &cfg.Run.Verify)
	envBool("RUN_DEBUG", &cfg.Run.Debug)

	// Input overrides
	envString("INPUTS_DATASETS", &cfg.Inputs.DataSets)
	envString("INPUTS_CLASSES", &cfg.Inputs.Classes)
	envString("INPUTS_METRICS", &cfg.Inputs.Metrics)
	envString("INPUTS_RULESETS_MODE", &cfg.Inputs.RuleSets.Mode)
	envString("INPUTS_RULESETS_PATH", &cfg.Inputs.RuleSets.Path)
	envString("INPUTS_RULESETS_GIT_REPOSITORY", &cfg.Inputs.RuleSets.Git.Repository)
	envString("INPUTS_RULESETS_GIT_BRANCH", &cfg.Inputs.RuleSets.Git.Branch)
	envString("INPUTS_RULESETS_GIT_TOKEN", &cfg.Inputs.RuleSets.Git.Auth.Token)
	envDuration("INPUTS_RULESETS_GIT_POLL_INTERVAL", &cfg.Inputs.RuleSets.Git.PollInterval)

	// Storage overrides
	envString("STORAGE_BACKEND", &cfg.Storage.Backend)
	envString("STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	envString("STORAGE_SQLITE_DRIVER", &cfg.Storage.SQLite.Driver)

	// Export overrides
	envString("EXPORT_DIR", &cfg.Export.Dir)
	envString("EXPORT_FORMAT", &cfg.Export.Format)

	// Schedule overrides
	envString("SCHEDULE_RUN", &cfg.Schedule.Run)
	envString("SCHEDULE_PRUNE", &cfg.Schedule.Prune)
	envInt("SCHEDULE_RETENTION_DAYS", &cfg.Schedule.RetentionDays)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_ADDRESS", &cfg.Telemetry.Metrics.Address)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_EXPORTER", &cfg.Telemetry.Tracing.Exporter)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) bool {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
			return true
		}
	}
	return false
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
