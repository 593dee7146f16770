// Package metrics exports validation runs as Prometheus metrics.
//
// A Collector is passed to valve.Validate as its Observer:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	result, err := valve.Validate(ctx, tables, valve.Options{Observer: collector})
//
// One-shot runs write the metrics with WriteTextfile for the node exporter
// textfile collector; watch and schedule modes serve Handler on the
// configured listen address.
//
// Table names become label values. Past 1000 distinct tables further
// names are folded into the "_other" label.
package metrics
