// Package logger holds the process-wide zap logger used by the cache binaries.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process logger. It stays nil until Init succeeds; use L to read it safely.
var Log *zap.Logger

// Init builds the process logger. With a log file the production JSON encoder is
// used and output is teed to stdout; without one the development encoder is used.
func Init(level string, logFile string) error {
	l, err := New(level, logFile)
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// New builds a logger without touching the process logger.
func New(level string, logFile string) (*zap.Logger, error) {
	var config zap.Config
	if logFile != "" {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{logFile, "stdout"}
	} else {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	return config.Build()
}

// L returns the process logger, or a no-op logger before Init.
func L() *zap.Logger {
	if Log == nil {
		return zap.NewNop()
	}
	return Log
}

func parseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil || level == "" {
		return zapcore.InfoLevel
	}
	switch lvl {
	case zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel:
		return lvl
	default:
		// dpanic/panic/fatal are not valid thresholds for the cache services
		return zapcore.ErrorLevel
	}
}

// Sync flushes the process logger if one was built.
func Sync() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}
