package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"valve-hq/valve/pkg/config"
	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/valve"
)

// Namespace prefixes every metric name.
const Namespace = "valve"

// maxTables bounds the number of distinct table label values.
const maxTables = 1000

// overflowTable replaces table names past the cardinality limit.
const overflowTable = "_other"

// Collector records validation runs as Prometheus metrics. It implements
// valve.Observer.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	runMetrics   *RunMetrics
	tableMetrics *TableMetrics

	cardinalityLimiter *CardinalityLimiter
}

var _ valve.Observer = (*Collector)(nil)

// NewCollector creates a collector registering its metrics with registry.
// A nil registry gets a fresh one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Collector{
		config:             cfg,
		registry:           registry,
		runMetrics:         NewRunMetrics(registry),
		tableMetrics:       NewTableMetrics(registry),
		cardinalityLimiter: NewCardinalityLimiter(maxTables),
	}
}

// ObserveTable records the violations found in one table.
func (c *Collector) ObserveTable(name string, violations []report.Violation, elapsed time.Duration) {
	if !c.config.Enabled {
		return
	}
	if !c.cardinalityLimiter.Allow(name) {
		name = overflowTable
	}
	c.tableMetrics.duration.WithLabelValues(name).Observe(elapsed.Seconds())
	for level, n := range report.CountByLevel(violations) {
		c.tableMetrics.violations.WithLabelValues(name, string(level)).Add(float64(n))
	}
}

// ObserveRun records the outcome of a run.
func (c *Collector) ObserveRun(result *valve.Result) {
	if !c.config.Enabled {
		return
	}
	c.runMetrics.total.WithLabelValues(result.Outcome()).Inc()
	c.runMetrics.duration.Observe(result.Duration.Seconds())
	c.runMetrics.lastViolations.Set(float64(len(result.Violations)))
	c.runMetrics.lastTimestamp.SetToCurrentTime()
	if result.Config != nil {
		for _, name := range result.Tables {
			if t, ok := result.Config.Tables().Get(name); ok {
				label := name
				if !c.cardinalityLimiter.Allow(name) {
					label = overflowTable
				}
				c.tableMetrics.rows.WithLabelValues(label).Set(float64(t.Len()))
			}
		}
	}
}

// RecordSkipped counts a triggered run that was skipped because the
// inputs had not changed.
func (c *Collector) RecordSkipped() {
	if !c.config.Enabled {
		return
	}
	c.runMetrics.skipped.Inc()
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label value may be used: it is already known or
// the limit has not been reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
