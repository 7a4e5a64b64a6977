package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Annotate attaches slog key-value pairs to err. When the error is later
// logged through a handler installed by ConfigureLoggingWithOptions, the pairs
// appear as top-level attributes next to it. Returns nil if err is nil.
func Annotate(err error, args ...any) error {
	if err == nil {
		return nil
	}

	r := slog.NewRecord(time.Time{}, slog.LevelDebug, "", 0)
	r.Add(args...)

	attrs := make([]slog.Attr, 0, r.NumAttrs())

	r.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)

		return true
	})

	return &annotatedError{err: err, attrs: attrs}
}

// Annotations returns every pair attached to err or anything it wraps, outermost first.
func Annotations(err error) []slog.Attr {
	var out []slog.Attr

	for err != nil {
		var ae *annotatedError
		if !errors.As(err, &ae) {
			break
		}

		out = append(out, ae.attrs...)
		err = ae.err
	}

	return out
}

type annotatedError struct {
	err   error
	attrs []slog.Attr
}

func (e *annotatedError) Error() string {
	return e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// annotationHandler lifts annotations out of error attributes.
type annotationHandler struct {
	inner slog.Handler
}

var _ slog.Handler = (*annotationHandler)(nil)

func (h *annotationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *annotationHandler) Handle(ctx context.Context, record slog.Record) error {
	var extra []slog.Attr

	record.Attrs(func(attr slog.Attr) bool {
		if err, ok := attr.Value.Any().(error); ok {
			extra = append(extra, Annotations(err)...)
		}

		return true
	})

	if len(extra) == 0 {
		return h.inner.Handle(ctx, record)
	}

	r := record.Clone()
	r.AddAttrs(extra...)

	return h.inner.Handle(ctx, r)
}

func (h *annotationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &annotationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *annotationHandler) WithGroup(name string) slog.Handler {
	return &annotationHandler{inner: h.inner.WithGroup(name)}
}
