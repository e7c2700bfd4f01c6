package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		logFile   string
		wantLevel zapcore.Level
	}{
		{name: "debug level, no file", level: "debug", wantLevel: zapcore.DebugLevel},
		{name: "info level, no file", level: "info", wantLevel: zapcore.InfoLevel},
		{name: "warn level, no file", level: "warn", wantLevel: zapcore.WarnLevel},
		{name: "error level, no file", level: "error", wantLevel: zapcore.ErrorLevel},
		{name: "unknown level falls back to info", level: "verbose", wantLevel: zapcore.InfoLevel},
		{name: "empty level falls back to info", level: "", wantLevel: zapcore.InfoLevel},
		{name: "fatal is capped at error", level: "fatal", wantLevel: zapcore.ErrorLevel},
		{name: "with log file", level: "info", logFile: filepath.Join(t.TempDir(), "cache.log"), wantLevel: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Log = nil

			require.NoError(t, Init(tt.level, tt.logFile))
			require.NotNil(t, Log)

			assert.True(t, Log.Core().Enabled(tt.wantLevel))
			if tt.wantLevel > zapcore.DebugLevel {
				assert.False(t, Log.Core().Enabled(tt.wantLevel-1))
			}

			_ = Log.Sync()
		})
	}
}

func TestL(t *testing.T) {
	t.Run("returns no-op logger before init", func(t *testing.T) {
		Log = nil
		l := L()
		require.NotNil(t, l)
		l.Info("discarded")
	})

	t.Run("returns process logger after init", func(t *testing.T) {
		Log, _ = zap.NewDevelopment()
		assert.Same(t, Log, L())
	})
}

func TestSync(t *testing.T) {
	Log = nil
	assert.NoError(t, Sync())

	Log, _ = zap.NewDevelopment()
	// stdout sync can fail on some platforms
	_ = Sync()
}

func TestInitWithLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "cache.log")

	require.NoError(t, Init("info", logFile))
	Log.Info("refresh sweep finished", zap.Int("refreshed", 3))
	_ = Sync()

	_, err := os.Stat(logFile)
	assert.NoError(t, err)
}
