package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/phrazzld/temba-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	var buf bytes.Buffer
	l, err := setup(config.ServerConfig{LogLevel: "warn", LogFormat: "json"}, &buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown", "component", "test")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.Same(t, l, slog.Default())
}

func TestSetupText(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	var buf bytes.Buffer
	l, err := setup(config.ServerConfig{LogLevel: "debug", LogFormat: "text"}, &buf)
	require.NoError(t, err)

	l.Debug("contact saved", "contact_uuid", "abc")
	assert.Contains(t, buf.String(), "contact saved")
	assert.Contains(t, buf.String(), "abc")
}

func TestSetupInvalid(t *testing.T) {
	_, err := setup(config.ServerConfig{LogLevel: "loud", LogFormat: "json"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = setup(config.ServerConfig{LogLevel: "info", LogFormat: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestContextLogger(t *testing.T) {
	fallback := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	custom := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))

	ctx := WithLogger(context.Background(), custom)
	assert.Same(t, custom, FromContext(ctx))
	assert.Same(t, custom, FromContextOrDefault(ctx, fallback))
}
