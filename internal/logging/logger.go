package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper around zap.Logger
type Logger struct {
	*zap.Logger
}

// Config holds logging configuration
type Config struct {
	// Level is the log level (debug, info, warn, error)
	Level string
	// Format is the log format (json or console)
	Format string
	// Development enables caller info, stack traces and human friendly output
	Development bool
}

// DefaultConfig returns a production logging configuration
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
	}
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config Config) (*Logger, error) {
	level, err := parseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	var encoderConfig zapcore.EncoderConfig
	if config.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	format := config.Format
	if format == "" {
		format = "json"
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       config.Development,
		DisableCaller:     !config.Development,
		DisableStacktrace: !config.Development,
		Encoding:          format,
		EncoderConfig:     encoderConfig,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{logger}, nil
}

// NewNoOpLogger creates a logger that discards all logs
func NewNoOpLogger() *Logger {
	return &Logger{zap.NewNop()}
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", level)
	}
}

// With creates a child logger with additional fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{l.Logger.With(fields...)}
}

// Named creates a child logger with a name
func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}
