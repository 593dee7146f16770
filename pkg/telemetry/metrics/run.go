package metrics

import "github.com/prometheus/client_golang/prometheus"

// RunMetrics tracks whole validation runs.
//
// Metrics:
//   - valve_runs_total: runs by outcome (pass, fail, config_error)
//   - valve_runs_skipped_total: triggered runs skipped on unchanged inputs
//   - valve_run_duration_seconds: run duration
//   - valve_last_run_violations: violations reported by the last run
//   - valve_last_run_timestamp_seconds: when the last run finished
type RunMetrics struct {
	total          *prometheus.CounterVec
	skipped        prometheus.Counter
	duration       prometheus.Histogram
	lastViolations prometheus.Gauge
	lastTimestamp  prometheus.Gauge
}

// NewRunMetrics creates and registers run metrics.
func NewRunMetrics(registry *prometheus.Registry) *RunMetrics {
	rm := &RunMetrics{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "runs_total",
				Help:      "Total number of validation runs by outcome",
			},
			[]string{"outcome"},
		),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_skipped_total",
			Help:      "Triggered runs skipped because the inputs were unchanged",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of validation runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4m
		}),
		lastViolations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_violations",
			Help:      "Number of violations reported by the last run",
		}),
		lastTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}

	registry.MustRegister(rm.total, rm.skipped, rm.duration, rm.lastViolations, rm.lastTimestamp)
	return rm
}
