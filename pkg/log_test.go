package pkg

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogs swaps the default logger for one writing to a buffer at level.
func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := DefaultLogger
	originalLevel := GetLogLevel()
	t.Cleanup(func() {
		SetLogger(original)
		SetLogLevel(originalLevel)
	})
	SetLogLevel(level)
	SetLogger(NewLogger(&buf, &slog.HandlerOptions{Level: level}))
	return &buf
}

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		t.Run(level.String(), func(t *testing.T) {
			SetLogLevel(level)
			assert.Equal(t, level, GetLogLevel())
		})
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, nil)
	require.NotNil(t, logger)

	logger.Warn("test message")
	assert.Contains(t, buf.String(), `"msg":"test message"`)
}

func TestLogComponents(t *testing.T) {
	tests := []struct {
		name      string
		log       func(Component, string, ...any)
		component Component
	}{
		{"debug", LogDebug, ComponentRing},
		{"info", LogInfo, ComponentDispatch},
		{"warn", LogWarn, ComponentDriver},
		{"error", LogError, ComponentHAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t, slog.LevelDebug)
			tt.log(tt.component, tt.name+" message", "key", "value")
			out := buf.String()
			assert.Contains(t, out, tt.name+" message")
			assert.Contains(t, out, "component="+string(tt.component))
			assert.Contains(t, out, "key=value")
		})
	}
}

func TestLogBelowLevelIsDropped(t *testing.T) {
	buf := captureLogs(t, slog.LevelWarn)

	LogDebug(ComponentBuffer, "hidden")
	LogInfo(ComponentBuffer, "hidden too")
	assert.Empty(t, buf.String())
	assert.False(t, DebugEnabled())
}

func TestDebugEnabled(t *testing.T) {
	captureLogs(t, slog.LevelDebug)
	assert.True(t, DebugEnabled())
}
