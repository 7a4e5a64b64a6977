package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any

	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}

		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))

		out = append(out, entry)
	}

	return out
}

func TestLogger(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem: "test",
		JSON:      true,
		Output:    &buf,
	})

	Get().Info("default subsystem")

	ctx := WithSubsystem(t.Context(), "overridden")
	Get(ctx).Info("overridden subsystem")

	ctx = WithActor(t.Context(), "1234", "goblin-1")
	Get(ctx).Info("with actor")

	Get(WithMuted(ctx, true)).Info("muted")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "test", lines[0]["subsystem"])
	assert.Equal(t, "overridden", lines[1]["subsystem"])
	assert.Equal(t, "1234", lines[2]["actor_id"])
	assert.Equal(t, "goblin-1", lines[2]["actor"])
}

func TestWithAccumulates(t *testing.T) {
	t.Parallel()

	ctx := With(t.Context(), "a", 1)
	ctx = With(ctx, "b", 2)

	assert.Equal(t, []any{"a", 1, "b", 2}, getValues(ctx))
	assert.Same(t, ctx, With(ctx))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    slog.Level
		wantErr bool
	}{
		{name: "empty", input: "", want: slog.LevelInfo},
		{name: "debug", input: "debug", want: slog.LevelDebug},
		{name: "warn upper", input: "WARN", want: slog.LevelWarn},
		{name: "bogus", input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidLogLevel)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOutput(t *testing.T) {
	t.Parallel()

	out, err := ParseOutput("stderr")
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, out)

	out, err = ParseOutput("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, out)

	_, err = ParseOutput("syslog")
	require.ErrorIs(t, err, ErrInvalidLogOutput)
}
