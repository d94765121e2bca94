package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/entrhq/probe"

// Common attribute keys for run tracing
var (
	AttrRunID      = attribute.Key("probe.run.id")
	AttrTestCaseID = attribute.Key("probe.testcase.id")
	AttrStepIndex  = attribute.Key("probe.step.index")
	AttrStepKind   = attribute.Key("probe.step.kind")
	AttrStepTarget = attribute.Key("probe.step.target")
	AttrOutcome    = attribute.Key("probe.step.outcome")
	AttrURL        = attribute.Key("probe.url")
	AttrVerdict    = attribute.Key("probe.verdict.status")
	AttrFrameCount = attribute.Key("probe.frames.count")
)

// Tracer returns the engine tracer from the global provider. Without a
// configured provider spans are no-ops.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a new span with the given name
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// EndSpan records err (when non-nil) and ends the span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// AddEvent adds an event to the current span
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
