// Package telemetry provides logging, tracing and metrics for prebuild.
//
// The package integrates structured logging (zerolog), tracing
// (OpenTelemetry) and metrics (Prometheus). Apply runs are short-lived CLI
// invocations, so metrics are written to a textfile for the node exporter
// instead of being served over HTTP.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	applier := engine.NewApplier(deps,
//	    engine.WithLogger(tel.Logger.Zerolog()),
//	    engine.WithObserver(tel.Observer()),
//	)
//	report, err := tel.InstrumentApply(ctx, root, func(ctx context.Context) (*engine.Report, error) {
//	    return applier.Apply(ctx, root)
//	})
//
// # Tracing
//
// Every run gets an "apply.run" root span with one child span per phase.
// Isolated failures are added to the phase span as "warning" events.
//
// Supported exporters:
//   - stdout: pretty-printed spans on stderr
//   - otlp: OTLP over gRPC
//   - none: spans are created but not exported
//
// # Metrics
//
//   - apply_runs_started_total
//   - apply_runs_completed_total{phase}
//   - apply_run_duration_seconds{phase}
//   - apply_phases_executed_total{phase,status}
//   - apply_phase_duration_seconds{phase}
//   - apply_warnings_total{platform,tag}
//   - errors_by_class_total{class}, errors_by_code_total{code}
package telemetry
