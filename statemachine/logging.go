package statemachine

import (
	"context"
	"log/slog"
	"time"

	"github.com/amp-labs/dungen/logger"
)

// Logger receives diagnostic events from a machine. Logging is advisory:
// implementations must not panic or call back into the machine.
type Logger interface {
	StateEntered(ctx context.Context, machine, state, prev string, now time.Duration)
	TransitionExecuted(ctx context.Context, machine, from, to, transition string, now time.Duration)
	MachineHalted(ctx context.Context, machine, state, reason string)
	LifecycleMisuse(ctx context.Context, machine string, err error)
}

// DefaultLogger implements Logger using slog.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger that resolves its slog.Logger from the
// context on every call, so values attached with logger.With are included.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

// NewDefaultLoggerWith creates a logger that always writes to l.
func NewDefaultLoggerWith(l *slog.Logger) *DefaultLogger {
	return &DefaultLogger{logger: l}
}

func (l *DefaultLogger) get(ctx context.Context) *slog.Logger {
	if l.logger != nil {
		return l.logger
	}

	return logger.Get(ctx)
}

func (l *DefaultLogger) StateEntered(ctx context.Context, machine, state, prev string, now time.Duration) {
	fields := append([]any{
		"machine", machine,
		"state", state,
		"previous", prev,
		"now", now,
	}, traceFields(ctx)...)

	l.get(ctx).DebugContext(ctx, "State entered", fields...)
}

func (l *DefaultLogger) TransitionExecuted(
	ctx context.Context, machine, from, to, transition string, now time.Duration,
) {
	fields := append([]any{
		"machine", machine,
		"from", from,
		"to", to,
		"transition", transition,
		"now", now,
	}, traceFields(ctx)...)

	l.get(ctx).InfoContext(ctx, "Transition executed", fields...)
}

func (l *DefaultLogger) MachineHalted(ctx context.Context, machine, state, reason string) {
	l.get(ctx).InfoContext(ctx, "Machine halted",
		"machine", machine,
		"state", state,
		"reason", reason,
	)
}

func (l *DefaultLogger) LifecycleMisuse(ctx context.Context, machine string, err error) {
	l.get(ctx).WarnContext(ctx, "Machine lifecycle misuse",
		"machine", machine,
		"error", err,
	)
}

func traceFields(ctx context.Context) []any {
	traceID, spanID := extractTraceContext(ctx)
	if traceID == "" {
		return nil
	}

	return []any{"trace_id", traceID, "span_id", spanID}
}
