// Package metrics provides Prometheus metrics collection for rulebench.
//
// # Overview
//
// The Collector records benchmark runs, verification corrections, rule-set
// reloads and scheduled jobs. It satisfies the recorder interfaces of the
// engine and verifier packages, so it can be passed to both directly:
//
//	collector := metrics.NewCollector(metrics.DefaultConfig(), nil)
//	deps.Recorder = collector
//	v := verifier.New(cfg, metricsVocab, classes, verifier.WithRecorder(collector))
//
// # Metrics
//
//	rulebench_runs_total{status}                 counter
//	rulebench_runs_in_progress                    gauge
//	rulebench_run_duration_seconds                histogram
//	rulebench_jobs_total{result}                  counter
//	rulebench_job_duration_seconds                histogram
//	rulebench_records_tested_total                counter
//	rulebench_run_progress_percent                gauge
//	rulebench_verifier_corrections_total{kind,mode} counter
//	rulebench_verifier_unresolved_total{kind}     counter
//	rulebench_ruleset_reloads_total{result}       counter
//	rulebench_rulesets_loaded                     gauge
//	rulebench_scheduled_runs_total{result}        counter
//	rulebench_pruned_runs_total                   counter
//
// # Prometheus Endpoint
//
//	http.Handle("/metrics", collector.Handler())
package metrics
