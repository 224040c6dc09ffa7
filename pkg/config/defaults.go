package config

import "time"

// Default values for configuration fields.
const (
	// Run defaults
	DefaultRunMode        = "sequential"
	DefaultRunEventBuffer = 64

	// Input defaults
	DefaultDataSetsDir     = "datasets"
	DefaultClassesFile     = "classes.txt"
	DefaultMetricsFile     = "metrics.txt"
	DefaultDelimiter       = ","
	DefaultOrganizedDir    = "organized"
	DefaultRuleSetsMode    = "file"
	DefaultRuleSetsPath    = "rulesets"
	DefaultGitBranch       = "main"
	DefaultGitLocalPath    = "data/rulesets-repo"
	DefaultGitTimeout      = 30 * time.Second
	DefaultGitPollInterval = 30 * time.Second
	DefaultGitAuthType     = "none"

	// Verifier defaults
	DefaultVerifierThreshold      = 60
	DefaultVerifierStep           = 10
	DefaultVerifierPromptAttempts = 3

	// Storage defaults
	DefaultStorageBackend     = "sqlite"
	DefaultSQLitePath         = "data/rulebench.db"
	DefaultSQLiteDriver       = "sqlite3"
	DefaultSQLiteMaxOpenConns = 10
	DefaultSQLiteMaxIdleConns = 5
	DefaultSQLiteBusyTimeout  = 5 * time.Second

	// Export defaults
	DefaultExportFormat = "json"

	// Schedule defaults
	DefaultPruneSchedule = "0 3 * * *"
	DefaultRetentionDays = 90

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	DefaultMetricsAddress     = "127.0.0.1:9090"
	DefaultPrometheusPath     = "/metrics"
	DefaultMetricsNamespace   = "rulebench"
	DefaultTracingExporter    = "otlp"
	DefaultTracingSampler     = "ratio"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "rulebench"
)

// NewDefaultConfig returns a configuration with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every unset field of cfg with its default value.
// Fields that are already set are preserved.
func ApplyDefaults(cfg *Config) {
	// Run defaults
	if cfg.Run.Mode == "" {
		cfg.Run.Mode = DefaultRunMode
	}
	if cfg.Run.EventBuffer == 0 {
		cfg.Run.EventBuffer = DefaultRunEventBuffer
	}
	setBool(&cfg.Run.AutoDetectCPU, true)

	outputs := &cfg.Run.Outputs
	for _, p := range []**bool{&outputs.Results, &outputs.IndiMatrix, &outputs.Matrix, &outputs.Definition, &outputs.Summary} {
		setBool(p, true)
	}

	// Input defaults
	in := &cfg.Inputs
	setString(&in.DataSets, DefaultDataSetsDir)
	setString(&in.Classes, DefaultClassesFile)
	setString(&in.Metrics, DefaultMetricsFile)
	setString(&in.Delimiter, DefaultDelimiter)
	setString(&in.OrganizedDir, DefaultOrganizedDir)
	setString(&in.RuleSets.Mode, DefaultRuleSetsMode)
	setString(&in.RuleSets.Path, DefaultRuleSetsPath)

	git := &in.RuleSets.Git
	setString(&git.Branch, DefaultGitBranch)
	setString(&git.LocalPath, DefaultGitLocalPath)
	setString(&git.Auth.Type, DefaultGitAuthType)
	if git.Timeout == 0 {
		git.Timeout = DefaultGitTimeout
	}
	if git.PollInterval == 0 {
		git.PollInterval = DefaultGitPollInterval
	}

	// Verifier defaults
	setBool(&cfg.Verifier.AutoCorrect, true)
	if cfg.Verifier.InitialThreshold == 0 {
		cfg.Verifier.InitialThreshold = DefaultVerifierThreshold
	}
	if cfg.Verifier.Step == 0 {
		cfg.Verifier.Step = DefaultVerifierStep
	}
	if cfg.Verifier.MaxPromptAttempts == 0 {
		cfg.Verifier.MaxPromptAttempts = DefaultVerifierPromptAttempts
	}

	// Storage defaults
	setString(&cfg.Storage.Backend, DefaultStorageBackend)
	sqlite := &cfg.Storage.SQLite
	setString(&sqlite.Path, DefaultSQLitePath)
	setString(&sqlite.Driver, DefaultSQLiteDriver)
	if sqlite.MaxOpenConns == 0 {
		sqlite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if sqlite.MaxIdleConns == 0 {
		sqlite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if sqlite.BusyTimeout == 0 {
		sqlite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	setBool(&sqlite.WALMode, true)

	// Export defaults
	setString(&cfg.Export.Format, DefaultExportFormat)
	setBool(&cfg.Export.Pretty, true)
	setBool(&cfg.Export.IncludeHeader, true)

	// Schedule defaults
	setString(&cfg.Schedule.Prune, DefaultPruneSchedule)
	if cfg.Schedule.RetentionDays == 0 {
		cfg.Schedule.RetentionDays = DefaultRetentionDays
	}

	// Telemetry defaults
	tel := &cfg.Telemetry
	setString(&tel.Logging.Level, DefaultLoggingLevel)
	setString(&tel.Logging.Format, DefaultLoggingFormat)
	setString(&tel.Metrics.Address, DefaultMetricsAddress)
	setString(&tel.Metrics.Path, DefaultPrometheusPath)
	setString(&tel.Metrics.Namespace, DefaultMetricsNamespace)
	setString(&tel.Tracing.Exporter, DefaultTracingExporter)
	setString(&tel.Tracing.Sampler, DefaultTracingSampler)
	setString(&tel.Tracing.Endpoint, DefaultTracingEndpoint)
	setString(&tel.Tracing.ServiceName, DefaultTracingServiceName)
	if tel.Tracing.SampleRatio == 0 {
		tel.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
}

func setString(p *string, def string) {
	if *p == "" {
		*p = def
	}
}

func setBool(p **bool, def bool) {
	if *p == nil {
		v := def
		*p = &v
	}
}
