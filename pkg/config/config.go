package config

import "time"

// Config is the root configuration structure for rulebench.
type Config struct {
	// Run selects the testing mode, the pipeline steps and the outputs of a
	// benchmark run.
	Run RunConfig `yaml:"run"`

	// Inputs locates the datasets, vocabularies and rule sets.
	Inputs InputsConfig `yaml:"inputs"`

	// Verifier tunes how unknown metric and classification tokens in rule
	// sets are corrected.
	Verifier VerifierConfig `yaml:"verifier"`

	// Formulas are extra scoring functions registered after the built-ins.
	Formulas []FormulaConfig `yaml:"formulas"`

	// Storage selects where run results are stored.
	Storage StorageConfig `yaml:"storage"`

	// Export controls report files written after a run.
	Export ExportConfig `yaml:"export"`

	// Schedule contains cron expressions for unattended runs and pruning.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RunConfig contains the settings of one benchmark run.
type RunConfig struct {
	// Preset starts from a named configuration: "extreme-speed",
	// "high-speed" or "professional". Steps and outputs then come from the
	// preset; mode, range and threads still apply.
	Preset string `yaml:"preset"`

	// Name identifies the run. Default: a UTC timestamp.
	Name string `yaml:"name"`

	// Description is stored with the run.
	Description string `yaml:"description"`

	// Mode is the testing mode.
	// Options: "sequential", "voting"
	// Default: "sequential"
	Mode string `yaml:"mode"`

	// MatchWithinRange counts numeric predictions within Range of the actual
	// classification as correct.
	MatchWithinRange bool    `yaml:"match_within_range"`
	Range            float64 `yaml:"range"`

	// Track records which rule decided each case (sequential mode only).
	Track bool `yaml:"track"`

	// Threads is the number of concurrent jobs. Ignored when AutoDetectCPU
	// is true.
	Threads int `yaml:"threads"`

	// AutoDetectCPU sizes the pool to the number of CPUs.
	// Default: true
	AutoDetectCPU *bool `yaml:"auto_detect_cpu"`

	// Clean drops malformed dataset records; LogClean logs the counts.
	Clean    bool `yaml:"clean"`
	LogClean bool `yaml:"log_clean"`

	// Organize rewrites datasets grouped by classification.
	Organize bool `yaml:"organize"`

	// Verify corrects rule-set tokens before evaluation.
	Verify bool `yaml:"verify"`

	// Debug logs every finished rule set and dataset pair.
	Debug bool `yaml:"debug"`

	// EventBuffer is the capacity of the engine event channel.
	// Default: 64
	EventBuffer int `yaml:"event_buffer"`

	// Outputs selects what is stored per run.
	Outputs OutputsConfig `yaml:"outputs"`
}

// OutputsConfig selects the stored results. Every output defaults to true.
type OutputsConfig struct {
	Results    *bool `yaml:"results"`
	IndiMatrix *bool `yaml:"indi_matrix"`
	Matrix     *bool `yaml:"matrix"`
	Definition *bool `yaml:"definition"`
	Summary    *bool `yaml:"summary"`
}

// InputsConfig locates the inputs of a run.
type InputsConfig struct {
	// DataSets is the directory of CSV datasets.
	// Default: "datasets"
	DataSets string `yaml:"datasets"`

	// Classes is the classification vocabulary file (text or YAML list).
	// Default: "classes.txt"
	Classes string `yaml:"classes"`

	// Metrics is the metric vocabulary file, in dataset column order.
	// Default: "metrics.txt"
	Metrics string `yaml:"metrics"`

	// HasHeader skips the first row of every dataset file.
	HasHeader bool `yaml:"has_header"`

	// Delimiter separates dataset fields.
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// OrganizedDir is where organized datasets are written.
	// Default: "organized"
	OrganizedDir string `yaml:"organized_dir"`

	// RuleSets locates the rule sets.
	RuleSets RuleSetsConfig `yaml:"rulesets"`
}

// RuleSetsConfig selects the rule-set source.
type RuleSetsConfig struct {
	// Mode is the source type.
	// Options: "file", "git"
	// Default: "file"
	Mode string `yaml:"mode"`

	// Path is the rule-set file or directory for the file source.
	// Default: "rulesets"
	Path string `yaml:"path"`

	// SkipInvalid skips rule-set files that fail to parse.
	SkipInvalid bool `yaml:"skip_invalid"`

	// Git configures the git source.
	Git GitConfig `yaml:"git"`
}

// GitConfig configures a git rule-set repository.
type GitConfig struct {
	Repository string `yaml:"repository"`

	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the rule-set directory inside the repository.
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned.
	// Default: "data/rulesets-repo"
	LocalPath string `yaml:"local_path"`

	Depth        int  `yaml:"depth"`
	CleanOnStart bool `yaml:"clean_on_start"`

	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Default: 30s
	PollInterval time.Duration `yaml:"poll_interval"`

	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig contains git credentials.
type GitAuthConfig struct {
	// Type is the auth method.
	// Options: "none", "token", "ssh"
	// Default: "none"
	Type             string `yaml:"type"`
	Token            string `yaml:"token"`
	SSHKeyPath       string `yaml:"ssh_key_path"`
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// VerifierConfig tunes rule-set verification.
type VerifierConfig struct {
	// AutoCorrect resolves tokens without asking.
	// Default: true
	AutoCorrect *bool `yaml:"auto_correct"`

	// InitialThreshold is the first overlap percentage a candidate needs.
	// Default: 60
	InitialThreshold int `yaml:"initial_threshold"`

	// Step lowers the threshold between attempts.
	// Default: 10
	Step int `yaml:"step"`

	// MaxPromptAttempts bounds interactive prompts per token.
	// Default: 3
	MaxPromptAttempts int `yaml:"max_prompt_attempts"`
}

// FormulaConfig is a scoring function defined as the ratio of two sums of
// confusion matrix cells, each cell written as [actual, predicted].
type FormulaConfig struct {
	Name        string   `yaml:"name"`
	Numerator   [][2]int `yaml:"numerator"`
	Denominator [][2]int `yaml:"denominator"`
}

// StorageConfig selects the result store.
type StorageConfig struct {
	// Backend is the store type.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig configures the SQLite result store.
type SQLiteConfig struct {
	// Default: "data/rulebench.db"
	Path string `yaml:"path"`

	// Driver selects the SQLite driver.
	// Options: "sqlite3" (cgo), "sqlite" (pure Go)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// Default: true
	WALMode *bool `yaml:"wal_mode"`

	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ExportConfig controls report export.
type ExportConfig struct {
	// Dir receives one report file per run. Empty disables export after
	// runs.
	Dir string `yaml:"dir"`

	// Format is the report format.
	// Options: "json", "csv"
	// Default: "json"
	Format string `yaml:"format"`

	// Default: true
	Pretty *bool `yaml:"pretty"`

	// Default: true
	IncludeHeader *bool `yaml:"include_header"`
}

// ScheduleConfig contains cron expressions.
type ScheduleConfig struct {
	// Run triggers scheduled benchmark runs. Empty disables them.
	Run string `yaml:"run"`

	// Prune triggers run-store pruning.
	// Default: "0 3 * * *"
	Prune string `yaml:"prune"`

	// RetentionDays is how long runs are kept. -1 keeps them forever.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus configuration.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Address is where the metrics endpoint listens.
	// Default: "127.0.0.1:9090"
	Address string `yaml:"address"`

	// Default: "/metrics"
	Path string `yaml:"path"`

	// Default: "rulebench"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry configuration.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter selects where spans go.
	// Options: "otlp", "stdout"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// Sampler is the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of runs traced (0.0 to 1.0) for the
	// ratio sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Default: "rulebench"
	ServiceName string `yaml:"service_name"`
}

// Bool dereferences an optional flag. ApplyDefaults fills every flag, so
// def only matters for configurations built by hand.
func Bool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
