package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("unknown"))
}

func TestNew_TextFormatWritesToOutput(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	cfg := ConfigFrom("debug", "text")
	cfg.Output = &buf

	l := New(cfg)
	l.Debug("geocode skipped", "place", "Austin, TX")

	assert.Contains(t, buf.String(), "geocode skipped")
	assert.Contains(t, buf.String(), "place=\"Austin, TX\"")
}
