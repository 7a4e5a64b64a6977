package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer creates a test tracer with an in-memory exporter.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(
		trace.WithSyncer(exporter),
	)

	oldProvider := otel.GetTracerProvider()

	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(oldProvider)
	})

	return exporter
}

func spanAttributes(span tracetest.SpanStub) map[string]any {
	attrs := make(map[string]any)
	for _, attr := range span.Attributes {
		attrs[string(attr.Key)] = attr.Value.AsInterface()
	}

	return attrs
}

// TestMachineSpans verifies spans around Start and applied transitions.
// Note: Cannot use t.Parallel() because setupTestTracer modifies the global OTEL tracer provider.
//
//nolint:paralleltest // Test modifies global OTEL tracer provider
func TestMachineSpans(t *testing.T) {
	exporter := setupTestTracer(t)

	p := &probe{ready: true}
	m := newTestMachine("otel-test", p)

	require.NoError(t, m.Start(t.Context(), sIdle, at(0)))

	_, err := m.Update(t.Context(), at(10))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "statemachine.start", spans[0].Name)
	assert.Equal(t, "otel-test", spanAttributes(spans[0])["machine"])
	assert.Equal(t, "idle", spanAttributes(spans[0])["state"])

	assert.Equal(t, "statemachine.transition", spans[1].Name)

	attrs := spanAttributes(spans[1])
	assert.Equal(t, "idle", attrs["from"])
	assert.Equal(t, "busy", attrs["to"])
	assert.Equal(t, "ready", attrs["transition"])
}

//nolint:paralleltest // Test modifies global OTEL tracer provider
func TestExtractTraceContext(t *testing.T) {
	setupTestTracer(t)

	traceID, spanID := extractTraceContext(t.Context())
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)

	ctx, span := startMachineSpan(t.Context(), "k", "l", "s")
	defer span.End()

	traceID, spanID = extractTraceContext(ctx)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
	assert.Len(t, traceFields(ctx), 4)
}
