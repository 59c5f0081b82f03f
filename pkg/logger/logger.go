// Package logger builds the zap loggers used across the bot.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits of the optional log file
const (
	fileMaxSizeMB  = 50
	fileMaxBackups = 5
	fileMaxAgeDays = 28
)

// NewLogger creates a new zap logger with the specified level and format.
// When file is set, entries are also written as JSON to a rotating file.
func NewLogger(level, format, file string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	// Create config based on format
	var config zap.Config
	if format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Set the log level
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	var opts []zap.Option
	if file != "" {
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			newFileWriter(file),
			config.Level,
		)
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	// Build the logger
	logger, err := config.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

func newFileWriter(file string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
	})
}

// NewDevelopmentLogger creates a development logger with console output
func NewDevelopmentLogger() (*zap.Logger, error) {
	return NewLogger("debug", "console", "")
}

// NewProductionLogger creates a production logger with JSON output
func NewProductionLogger() (*zap.Logger, error) {
	return NewLogger("info", "json", "")
}
