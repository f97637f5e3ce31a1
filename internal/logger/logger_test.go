package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", true).With("component", "hub")

	log.Info("dropped")
	log.Warn("delivery failed", "game_id", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "delivery failed", rec["msg"])
	assert.Equal(t, "hub", rec["component"])
	assert.EqualValues(t, 7, rec["game_id"])
	assert.NotContains(t, rec, "source")
}

func TestNewDebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", false).Debug("hello")
	assert.Contains(t, buf.String(), "source=")
	assert.Contains(t, buf.String(), "msg=hello")
}
