package statemachine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startMachineSpan creates a span around Start.
// Uses the global tracer installed by github.com/amp-labs/dungen/telemetry.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startMachineSpan(ctx context.Context, kind, label, state string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.start")
	span.SetAttributes(
		attribute.String("machine", kind),
		attribute.String("machine_label", label),
		attribute.String("state", state),
	)

	return ctx, span
}

// startTransitionSpan creates a span around an applied transition, covering
// the Exit hook of the old state and the Enter hook of the new one.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startTransitionSpan(
	ctx context.Context,
	kind, label, from, to, transition string,
) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.transition")
	span.SetAttributes(
		attribute.String("machine", kind),
		attribute.String("machine_label", label),
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.String("transition", transition),
	)

	return ctx, span
}

// extractTraceContext extracts trace ID and span ID from context for logging.
func extractTraceContext(ctx context.Context) (traceID, spanID string) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()

		return spanCtx.TraceID().String(), spanCtx.SpanID().String()
	}

	return "", ""
}
