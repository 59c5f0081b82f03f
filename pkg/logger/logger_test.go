package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_LevelsAndFormats(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"info", zapcore.InfoLevel, zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"error", zapcore.ErrorLevel, zapcore.WarnLevel},
	}

	for _, tt := range tests {
		for _, format := range []string{"json", "console"} {
			t.Run(tt.level+" "+format, func(t *testing.T) {
				logger, err := NewLogger(tt.level, format, "")
				require.NoError(t, err)
				require.NotNil(t, logger)

				assert.True(t, logger.Core().Enabled(tt.enabled))
				assert.False(t, logger.Core().Enabled(tt.muted))
			})
		}
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	for _, level := range []string{"invalid", "INFO", "trace", ""} {
		t.Run(level, func(t *testing.T) {
			logger, err := NewLogger(level, "json", "")

			assert.Error(t, err)
			assert.Nil(t, logger)
			assert.Contains(t, err.Error(), "invalid log level")
		})
	}
}

func TestPresetLoggers(t *testing.T) {
	dev, err := NewDevelopmentLogger()
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	prod, err := NewProductionLogger()
	require.NoError(t, err)
	assert.True(t, prod.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))
}

// ============================================================================
// File Output Tests
// ============================================================================

func readEntries(t *testing.T, path string) []map[string]interface{} {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "File entries are JSON: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soundfx.log")

	logger, err := NewLogger("info", "console", path)
	require.NoError(t, err)

	logger.Info("greet sound played", zap.Int64("guild_id", 42))
	logger.Debug("cache miss")
	_ = logger.Sync()

	entries := readEntries(t, path)
	require.Len(t, entries, 1, "Debug entries are filtered by level")
	assert.Equal(t, "greet sound played", entries[0]["msg"])
	assert.Equal(t, float64(42), entries[0]["guild_id"])
}

func TestNewLogger_FileKeepsFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "soundfx.log")

	logger, err := NewLogger("debug", "json", path)
	require.NoError(t, err)

	logger.With(zap.String("interaction_id", "abc")).Warn("upload rejected", zap.Int64("user_id", 7))
	_ = logger.Sync()

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "abc", entries[0]["interaction_id"])
	assert.Equal(t, float64(7), entries[0]["user_id"])
}
