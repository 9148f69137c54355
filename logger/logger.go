// Package logger provides a unified logging interface based on zap.
//
// It offers configurable log levels, encoding formats (JSON/Console),
// and output paths, while maintaining interface compatibility with *zap.Logger.
// Every other package in the module logs through the Logger interface.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Sync() error
}

// New creates a new logger with the given configuration
func New(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("%w: %w", errUnknownLevel(cfg.Level), err)
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Encoding == "console",
		Encoding:          cfg.Encoding,
		EncoderConfig:     encoderConfig(),
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  cfg.ErrorOutputPaths,
		DisableCaller:     false,
		DisableStacktrace: false,
	}

	logger, err := zapConfig.Build(
		zap.AddStacktrace(zapcore.DPanicLevel),
	)
	if err != nil {
		return nil, errBuild(err)
	}

	// package-level functions sit one frame above the caller
	setGlobalLoggerInternal(logger.WithOptions(zap.AddCallerSkip(1)))

	return logger, nil
}

// NewNop returns a logger that discards everything
func NewNop() Logger {
	return zap.NewNop()
}

// With returns a logger that attaches fields to every entry.
// A *zap.Logger is extended natively; any other Logger is wrapped.
func With(l Logger, fields ...zap.Field) Logger {
	if len(fields) == 0 {
		return l
	}
	switch v := l.(type) {
	case *zap.Logger:
		return v.With(fields...)
	case *fieldLogger:
		merged := make([]zap.Field, 0, len(v.fields)+len(fields))
		merged = append(merged, v.fields...)
		merged = append(merged, fields...)
		return &fieldLogger{base: v.base, fields: merged}
	default:
		return &fieldLogger{base: l, fields: fields}
	}
}

type fieldLogger struct {
	base   Logger
	fields []zap.Field
}

func (f *fieldLogger) with(fields []zap.Field) []zap.Field {
	out := make([]zap.Field, 0, len(f.fields)+len(fields))
	out = append(out, f.fields...)
	return append(out, fields...)
}

func (f *fieldLogger) Debug(msg string, fields ...zap.Field) { f.base.Debug(msg, f.with(fields)...) }
func (f *fieldLogger) Info(msg string, fields ...zap.Field)  { f.base.Info(msg, f.with(fields)...) }
func (f *fieldLogger) Warn(msg string, fields ...zap.Field)  { f.base.Warn(msg, f.with(fields)...) }
func (f *fieldLogger) Error(msg string, fields ...zap.Field) { f.base.Error(msg, f.with(fields)...) }
func (f *fieldLogger) Sync() error                           { return f.base.Sync() }

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}
