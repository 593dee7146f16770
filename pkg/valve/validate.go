package valve

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/table"
)

// Options configures a validation run.
type Options struct {
	// RowStart is the row number of the first data row. Zero means
	// report.DefaultRowStart.
	RowStart int

	// Parallelism bounds how many tables are validated at once. Values
	// below one validate tables one at a time.
	Parallelism int

	// Functions are custom condition functions to register.
	Functions []Function

	// Distinct enables distinct-message mode.
	Distinct bool

	Logger   *slog.Logger
	Observer Observer
}

// Observer receives the outcome of each validated table and of each run.
type Observer interface {
	ObserveTable(name string, violations []report.Violation, elapsed time.Duration)
	ObserveRun(result *Result)
}

// Observers fans each observation out to every observer in order. Nil
// entries are skipped.
type Observers []Observer

// ObserveTable implements Observer.
func (obs Observers) ObserveTable(name string, violations []report.Violation, elapsed time.Duration) {
	for _, o := range obs {
		if o != nil {
			o.ObserveTable(name, violations, elapsed)
		}
	}
}

// ObserveRun implements Observer.
func (obs Observers) ObserveRun(result *Result) {
	for _, o := range obs {
		if o != nil {
			o.ObserveRun(result)
		}
	}
}

// DistinctTable pairs a data table with the rows kept for it in
// distinct-message mode.
type DistinctTable struct {
	Source *table.Table
	Table  *table.Table
}

// Result is the outcome of a validation run.
type Result struct {
	// Config is nil when the configuration was rejected.
	Config *Config

	Violations []report.Violation

	// ConfigFailed is set when a configuration table was malformed and
	// no data was validated.
	ConfigFailed bool

	// Tables lists the validated data tables in order.
	Tables []string

	// Distinct holds the distinct tables, in table order, when
	// distinct-message mode is enabled.
	Distinct []DistinctTable

	Duration time.Duration
}

// HasErrors reports whether any violation is at ERROR level.
func (r *Result) HasErrors() bool {
	return report.HasErrors(r.Violations)
}

// Run outcomes.
const (
	OutcomePass        = "pass"
	OutcomeFail        = "fail"
	OutcomeConfigError = "config_error"
)

// Outcome classifies the result as OutcomeConfigError, OutcomeFail when
// any ERROR-level violation exists, or OutcomePass.
func (r *Result) Outcome() string {
	switch {
	case r.ConfigFailed:
		return OutcomeConfigError
	case r.HasErrors():
		return OutcomeFail
	}
	return OutcomePass
}

// Validate configures tables and validates every data table against the
// configuration. The violations are deterministic for identical inputs.
// Configuration faults are returned as violations with ConfigFailed set;
// faults that indicate an inconsistent configuration are returned as an
// error.
func Validate(ctx context.Context, tables *table.Set, opts Options) (*Result, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts.Logger = logger

	cfg, configViolations, err := Configure(tables, opts)
	if err != nil {
		return nil, err
	}
	result := &Result{Config: cfg, Violations: configViolations}
	if cfg == nil {
		result.ConfigFailed = true
		result.Duration = time.Since(start)
		observeRun(opts.Observer, result)
		return result, nil
	}

	names := cfg.DataTables()
	perTable := make([][]report.Violation, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Parallelism, 1))
	for i, name := range names {
		g.Go(func() error {
			tableStart := time.Now()
			vs, err := cfg.ValidateTable(gctx, name)
			if err != nil {
				return err
			}
			perTable[i] = vs
			elapsed := time.Since(tableStart)
			logger.Debug("validated table",
				"table", name,
				"violations", len(vs),
				"duration", elapsed,
			)
			if opts.Observer != nil {
				opts.Observer.ObserveTable(name, vs, elapsed)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Tables = names
	for i, name := range names {
		vs := perTable[i]
		if opts.Distinct {
			t, _ := tables.Get(name)
			dt, moved := report.Distinct(t, vs, cfg.RowStart())
			if dt == nil {
				continue
			}
			result.Distinct = append(result.Distinct, DistinctTable{Source: t, Table: dt})
			vs = moved
		}
		result.Violations = append(result.Violations, vs...)
	}

	result.Duration = time.Since(start)
	logger.Info("validation complete",
		"tables", len(names),
		"violations", len(result.Violations),
		"duration", result.Duration,
	)
	observeRun(opts.Observer, result)
	return result, nil
}

func observeRun(o Observer, r *Result) {
	if o != nil {
		o.ObserveRun(r)
	}
}
