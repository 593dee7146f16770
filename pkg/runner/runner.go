package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"valve-hq/valve/pkg/config"
	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/source"
	"valve-hq/valve/pkg/store"
	"valve-hq/valve/pkg/table"
	"valve-hq/valve/pkg/telemetry/logging"
	"valve-hq/valve/pkg/telemetry/metrics"
	"valve-hq/valve/pkg/telemetry/tracing"
	"valve-hq/valve/pkg/valve"
)

// Triggers name what started a run.
const (
	TriggerCLI      = "cli"
	TriggerWatch    = "watch"
	TriggerSchedule = "schedule"
)

// Options wires optional collaborators into a Runner.
type Options struct {
	// Store records each run when set.
	Store *store.Store

	// Metrics observes each run when set.
	Metrics *metrics.Collector

	// Observer wraps Metrics, for example with a progress bar. When nil
	// the collector is used directly.
	Observer valve.Observer

	// Source is synced before each run when set, and relative inputs
	// are read from its checkout.
	Source *source.Repository

	// Tracer records each run as a trace when set.
	Tracer *tracing.Tracer

	// Functions are registered in addition to the builtins.
	Functions []valve.Function

	// SkipUnchanged skips a run when the inputs have the same fingerprint
	// as the previous completed run.
	SkipUnchanged bool
}

// Outcome is what a single run produced.
type Outcome struct {
	Run     *store.Run
	Result  *valve.Result
	Skipped bool
}

// Runner loads the configured inputs, validates them and writes, records
// and observes the result.
type Runner struct {
	cfg    *config.Config
	logger *logging.Logger
	opts   Options

	// mu serializes runs and guards lastFingerprint.
	mu              sync.Mutex
	lastFingerprint uint64
	haveLast        bool
}

// New creates a runner for cfg.
func New(cfg *config.Config, logger *logging.Logger, opts Options) *Runner {
	r := &Runner{cfg: cfg, logger: logger, opts: opts}
	if r.opts.Observer == nil && opts.Metrics != nil {
		r.opts.Observer = opts.Metrics
	}
	if r.opts.Tracer == nil {
		r.opts.Tracer = tracing.Noop()
	}
	return r
}

// Prime seeds the last fingerprint from the newest stored run so that a
// restarted watcher does not repeat a run on unchanged inputs.
func (r *Runner) Prime(ctx context.Context) error {
	if r.opts.Store == nil {
		return nil
	}
	latest, err := r.opts.Store.Latest(ctx)
	if err != nil || latest == nil {
		return err
	}
	r.mu.Lock()
	r.lastFingerprint, r.haveLast = latest.Fingerprint, true
	r.mu.Unlock()
	return nil
}

// Run performs one validation run.
func (r *Runner) Run(ctx context.Context, trigger string) (out *Outcome, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	ctx = logging.WithTrigger(logging.WithRunID(ctx, id), trigger)
	ctx, span := r.opts.Tracer.Start(ctx, "valve.run", trace.WithAttributes(
		attribute.String(tracing.AttrRunID, id),
		attribute.String(tracing.AttrTrigger, trigger),
	))
	defer func() {
		tracing.SetStatus(span, err)
		span.End()
	}()

	logger := r.logger.WithContext(ctx)
	started := time.Now()
	vc := r.cfg.Validation

	inputs, err := r.sync(ctx)
	if err != nil {
		return nil, err
	}

	loadCtx, loadSpan := r.opts.Tracer.Start(ctx, "valve.load")
	tables, err := table.Load(loadCtx, inputs, table.LoadOptions{
		Parallelism: vc.Parallelism,
		Logger:      logger.Slog(),
	})
	tracing.SetStatus(loadSpan, err)
	loadSpan.End()
	if err != nil {
		return nil, fmt.Errorf("failed to load inputs: %w", err)
	}

	fingerprint := tables.Fingerprint()
	span.SetAttributes(attribute.String(tracing.AttrFingerprint, store.FormatFingerprint(fingerprint)))
	if r.opts.SkipUnchanged && r.haveLast && fingerprint == r.lastFingerprint {
		logger.Info("inputs unchanged, skipping run", "fingerprint", store.FormatFingerprint(fingerprint))
		if r.opts.Metrics != nil {
			r.opts.Metrics.RecordSkipped()
		}
		return &Outcome{Skipped: true}, nil
	}

	validateCtx, validateSpan := r.opts.Tracer.Start(ctx, "valve.validate")
	result, err := valve.Validate(validateCtx, tables, valve.Options{
		RowStart:    vc.RowStart,
		Parallelism: vc.Parallelism,
		Functions:   r.opts.Functions,
		Distinct:    vc.Distinct,
		Logger:      logger.Slog(),
		Observer: valve.Observers{
			r.opts.Observer,
			r.opts.Tracer.NewTableObserver(validateCtx),
		},
	})
	tracing.SetStatus(validateSpan, err)
	validateSpan.End()
	if err != nil {
		return nil, err
	}
	r.lastFingerprint, r.haveLast = fingerprint, true

	if err := r.write(result); err != nil {
		return nil, err
	}

	paths := make([]string, 0, tables.Len())
	for _, t := range tables.Tables() {
		paths = append(paths, t.Path)
	}
	run := store.NewRun(id, trigger, paths, fingerprint, started, result)

	var errs []error
	if r.opts.Store != nil {
		if err := r.opts.Store.Record(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	if r.opts.Metrics != nil && r.cfg.Telemetry.Metrics.TextfilePath != "" {
		if err := r.opts.Metrics.WriteTextfile(r.cfg.Telemetry.Metrics.TextfilePath); err != nil {
			errs = append(errs, err)
		}
	}

	logger.Info("run finished",
		"outcome", run.Outcome,
		"errors", run.Errors,
		"warnings", run.Warnings,
		"infos", run.Infos,
		"duration", result.Duration,
		"trace_id", tracing.TraceID(ctx),
	)
	return &Outcome{Run: run, Result: result}, errors.Join(errs...)
}

// sync updates the source checkout, if any, and returns the inputs to
// load.
func (r *Runner) sync(ctx context.Context) ([]string, error) {
	if r.opts.Source == nil {
		return r.cfg.Validation.Inputs, nil
	}

	syncCtx, span := r.opts.Tracer.Start(ctx, "valve.sync")
	defer span.End()
	result, err := r.opts.Source.Sync(syncCtx)
	tracing.SetStatus(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to sync table repository: %w", err)
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String(tracing.AttrCommit, result.ToSHA))
	r.logger.WithContext(ctx).Info("synced table repository",
		"commit", result.ToSHA,
		"changed", result.Changed(),
		"changed_files", len(result.ChangedFiles),
	)
	return r.opts.Source.Resolve(r.cfg.Validation.Inputs), nil
}

// write saves the violations at or above the output level and, in
// distinct mode, each distinct table.
func (r *Runner) write(result *valve.Result) error {
	oc := r.cfg.Output
	if oc.Path != "" {
		min, err := report.ParseLevel(oc.MinLevel)
		if err != nil {
			return err
		}
		if err := report.WriteFile(oc.Path, report.Filter(result.Violations, min)); err != nil {
			return err
		}
	}
	if r.cfg.Validation.Distinct {
		for _, dt := range result.Distinct {
			path := report.DistinctPath(r.cfg.Validation.DistinctDir, dt.Source.Path)
			if err := dt.Table.Write(path); err != nil {
				return err
			}
		}
	}
	return nil
}
