package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat(" Tint "))
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatAuto, ParseFormat(""))
	assert.Equal(t, FormatAuto, ParseFormat("xml"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug", slog.LevelInfo))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN", slog.LevelInfo))
	assert.Equal(t, slog.LevelInfo, ParseLevel("", slog.LevelInfo))
	assert.Equal(t, slog.LevelError, ParseLevel("loud", slog.LevelError))
}

func TestOptionsResolve(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		format Format
		level  slog.Level
	}{
		{"service default", Options{}, FormatAuto, slog.LevelInfo},
		{"interactive default", Options{Interactive: true}, FormatAuto, slog.LevelDebug},
		{"explicit level wins", Options{Interactive: true, Level: "error"}, FormatAuto, slog.LevelError},
		{"json", Options{Format: "json", Level: "warn"}, FormatJSON, slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, level := tt.opts.Resolve()
			assert.Equal(t, tt.format, format)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, FormatAuto, slog.LevelInfo)
	log.Debug("hidden")
	log.Info("upload run started", "run", "abc")

	rec := decode(t, &buf)
	assert.Equal(t, "upload run started", rec["msg"])
	assert.Equal(t, "abc", rec["run"])
	assert.Equal(t, "pulse", rec["app"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, FormatText, slog.LevelDebug).Debug("hotkey registered", "combo", "shift+cmd+u")
	assert.Contains(t, buf.String(), "hotkey registered")
	assert.Contains(t, buf.String(), "shift+cmd+u")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestSecretsRedacted(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, FormatJSON, slog.LevelInfo).With("control_token", "abc123")
	log.Info("dial",
		"Token", "s3cret",
		"endpoint", "https://img.example.com",
		slog.Group("req", "authorization", "Bearer s3cret"),
	)

	assert.NotContains(t, buf.String(), "s3cret")
	assert.NotContains(t, buf.String(), "abc123")

	rec := decode(t, &buf)
	assert.Equal(t, Redacted, rec["Token"])
	assert.Equal(t, Redacted, rec["control_token"])
	assert.Equal(t, "https://img.example.com", rec["endpoint"])
	assert.Equal(t, map[string]any{"authorization": Redacted}, rec["req"])
}

func TestEmptySecretKept(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, FormatJSON, slog.LevelInfo).Info("config", "token", "")
	assert.Equal(t, "", decode(t, &buf)["token"])
}

func TestIsTTY(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}
