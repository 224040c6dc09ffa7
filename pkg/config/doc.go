// Package config provides configuration management for rulebench.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("rulebench.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("rulebench.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention RULEBENCH_SECTION_FIELD:
//
//   - RULEBENCH_RUN_MODE overrides run.mode
//   - RULEBENCH_INPUTS_DATASETS overrides inputs.datasets
//   - RULEBENCH_STORAGE_SQLITE_PATH overrides storage.sqlite.path
//   - RULEBENCH_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example
//
//	run:
//	  preset: high-speed
//	  mode: sequential
//	  threads: 8
//	inputs:
//	  datasets: data/iris
//	  classes: data/iris/classes.txt
//	  metrics: data/iris/metrics.txt
//	  rulesets:
//	    mode: git
//	    git:
//	      repository: https://github.com/acme/iris-rules.git
//	      path: rulesets
//	formulas:
//	  - name: FalseAlarmRate
//	    numerator: [[1, 0]]
//	    denominator: [[1, 0], [1, 1]]
//	storage:
//	  backend: sqlite
//	schedule:
//	  run: "0 2 * * *"
//
// # Singleton Pattern
//
//	if err := config.Initialize("rulebench.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
package config
