// Package tracing provides OpenTelemetry tracing for rulebench runs.
//
// # Overview
//
// A Tracer exports spans over OTLP/gRPC, or prints them to stdout when
// debugging. The engine creates one span per
// run, one per step (load, clean, organize, verify) and one per rule-set
// job, so a trace shows where a benchmark spends its time.
//
// # Sampling Strategies
//
//   - always: Sample all traces
//   - never: Sample no traces
//   - ratio: Sample a fraction of traces by trace ID
//
// # Usage
//
//	t, err := tracing.New(&tracing.Config{
//	    Enabled:     true,
//	    Endpoint:    "localhost:4317",
//	    Insecure:    true,
//	    Sampler:     tracing.SamplerRatio,
//	    SampleRatio: 0.5,
//	    ServiceName: "rulebench",
//	})
//	if err != nil {
//	    return err
//	}
//	defer t.Shutdown(context.Background())
//
//	deps.Tracer = t.Tracer()
//
// When Enabled is false the returned Tracer hands out noop spans.
package tracing
