// Package telemetry groups the observability packages of rulebench.
//
// # Components
//
//   - logging: slog construction, context fields and credential redaction
//   - metrics: Prometheus metrics for runs, verification, reloads and schedules
//   - tracing: OpenTelemetry spans exported over OTLP/gRPC
//   - health: liveness and readiness probes for the scheduler daemon
package telemetry
