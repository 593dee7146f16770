package metrics

import "github.com/prometheus/client_golang/prometheus"

// TableMetrics tracks individual data tables.
//
// Metrics:
//   - valve_violations_total: violations by table and level
//   - valve_table_duration_seconds: time spent validating a table
//   - valve_table_rows: rows in a table at its last validation
type TableMetrics struct {
	violations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rows       *prometheus.GaugeVec
}

// NewTableMetrics creates and registers table metrics.
func NewTableMetrics(registry *prometheus.Registry) *TableMetrics {
	tm := &TableMetrics{
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "violations_total",
				Help:      "Total number of violations by table and level",
			},
			[]string{"table", "level"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "table_duration_seconds",
				Help:      "Duration of table validation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
			},
			[]string{"table"},
		),
		rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "table_rows",
				Help:      "Number of rows in a table at its last validation",
			},
			[]string{"table"},
		),
	}

	registry.MustRegister(tm.violations, tm.duration, tm.rows)
	return tm
}
