// Package telemetry groups the observability of valve runs.
//
//   - logging: structured slog logging with run, table and trigger context
//     and optional redaction of cell values
//   - metrics: Prometheus collectors for runs, tables and violations,
//     served over HTTP or written as a node exporter textfile
//   - tracing: one OpenTelemetry trace per run, exported over OTLP
//   - health: liveness and readiness probes for watch and schedule mode
//
// Each subpackage is configured from config.TelemetryConfig and is inert
// when disabled.
package telemetry
