// Package tracing records validation runs as OpenTelemetry traces.
//
// A run is one trace:
//
//	valve.run              run ID, trigger, fingerprint, outcome, counts
//	├── valve.sync         Git source pulled, when configured
//	├── valve.load         input files read
//	└── valve.validate     configuration and data tables
//	    └── valve.table    one per data table, with its violation counts
//
// Spans are exported over OTLP gRPC. When tracing is disabled the Tracer
// is a noop and costs nothing beyond the calls themselves.
package tracing
