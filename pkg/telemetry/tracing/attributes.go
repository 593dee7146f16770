package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/valve"
)

// Attribute keys on valve spans.
const (
	AttrRunID       = "valve.run.id"
	AttrTrigger     = "valve.run.trigger"
	AttrOutcome     = "valve.run.outcome"
	AttrFingerprint = "valve.run.fingerprint"
	AttrCommit      = "valve.source.commit"
	AttrTables      = "valve.tables"
	AttrTable       = "valve.table"
	AttrViolations  = "valve.violations"
	AttrErrors      = "valve.violations.error"
	AttrWarnings    = "valve.violations.warn"
	AttrInfos       = "valve.violations.info"
)

// SetViolationAttributes sets the violation counts on a span.
func SetViolationAttributes(span trace.Span, vs []report.Violation) {
	counts := report.CountByLevel(vs)
	span.SetAttributes(
		attribute.Int(AttrViolations, len(vs)),
		attribute.Int(AttrErrors, counts[report.LevelError]),
		attribute.Int(AttrWarnings, counts[report.LevelWarn]),
		attribute.Int(AttrInfos, counts[report.LevelInfo]),
	)
}

// SetResultAttributes sets the outcome of a validation on a span.
func SetResultAttributes(span trace.Span, result *valve.Result) {
	span.SetAttributes(
		attribute.String(AttrOutcome, result.Outcome()),
		attribute.Int(AttrTables, len(result.Tables)),
	)
	SetViolationAttributes(span, result.Violations)
}

// TableObserver records a span per validated table under the span in
// ctx. Tables are validated inside valve.Validate, so each span is
// created after the fact with its measured start and end time.
type TableObserver struct {
	ctx    context.Context
	tracer *Tracer
}

var _ valve.Observer = (*TableObserver)(nil)

// NewTableObserver returns an observer parenting table spans on the span
// in ctx.
func (t *Tracer) NewTableObserver(ctx context.Context) *TableObserver {
	return &TableObserver{ctx: ctx, tracer: t}
}

// ObserveTable records a finished table as a span.
func (o *TableObserver) ObserveTable(name string, violations []report.Violation, elapsed time.Duration) {
	end := time.Now()
	_, span := o.tracer.Start(o.ctx, "valve.table",
		trace.WithTimestamp(end.Add(-elapsed)),
		trace.WithAttributes(attribute.String(AttrTable, name)),
	)
	SetViolationAttributes(span, violations)
	span.End(trace.WithTimestamp(end))
}

// ObserveRun sets the result on the span in ctx.
func (o *TableObserver) ObserveRun(result *valve.Result) {
	SetResultAttributes(trace.SpanFromContext(o.ctx), result)
}
