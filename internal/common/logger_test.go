package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/berrythewa/cliplog/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"invalid", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run("Level_"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.name))
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Log.Level = "debug"

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewDaemonLoggerWritesFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Log.EnableFileLogging = true
	cfg.SystemPaths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := NewDaemonLogger(cfg)
	require.NoError(t, err)

	logger.Info("captured entry")
	logger.Debug("hidden at info")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(cfg.SystemPaths.LogDir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "captured entry")
	assert.NotContains(t, string(data), "hidden at info")
}

func TestDaemonLoggerLevelChange(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Log.EnableFileLogging = false

	logger, err := NewDaemonLogger(cfg)
	require.NoError(t, err)
	defer logger.Close()

	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	logger.Level.SetLevel(zapcore.DebugLevel)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
