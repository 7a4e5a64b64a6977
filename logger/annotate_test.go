package logger

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStuck = errors.New("stuck")

func TestAnnotate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Annotate(nil, "k", "v"))

	err := Annotate(errStuck, "actor", "grunt1", "ticks", 3)
	require.ErrorIs(t, err, errStuck)
	assert.Equal(t, "stuck", err.Error())

	wrapped := Annotate(fmt.Errorf("step: %w", err), "step", 7)

	attrs := Annotations(wrapped)
	require.Len(t, attrs, 3)
	assert.Equal(t, "step", attrs[0].Key)
	assert.Equal(t, "actor", attrs[1].Key)
	assert.Equal(t, "ticks", attrs[2].Key)

	assert.Empty(t, Annotations(errStuck))
}

func TestAnnotationHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := slog.New(&annotationHandler{inner: slog.NewJSONHandler(&buf, nil)}).With("subsystem", "sim")

	log.Warn("actor tick failed", "error", Annotate(errStuck, "actor", "grunt1"))
	log.Warn("plain failure", "error", errStuck)
	log.Info("no error", "n", 1)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "stuck", lines[0]["error"])
	assert.Equal(t, "grunt1", lines[0]["actor"])
	assert.Equal(t, "sim", lines[0]["subsystem"])

	assert.Equal(t, "stuck", lines[1]["error"], "plain errors are kept")
	assert.NotContains(t, lines[1], "actor")

	assert.InDelta(t, 1, lines[2]["n"], 0)
}
