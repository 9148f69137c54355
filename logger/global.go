package logger

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger atomic.Pointer[zap.Logger]
	initOnce     sync.Once
)

// setGlobalLoggerInternal is called by New so package-level functions share its config
func setGlobalLoggerInternal(l *zap.Logger) {
	globalLogger.Store(l)
}

// getGlobalLogger returns the global logger, building a default one on first use
func getGlobalLogger() *zap.Logger {
	if l := globalLogger.Load(); l != nil {
		return l
	}
	initOnce.Do(func() {
		globalLogger.CompareAndSwap(nil, mustBuildDefaultLogger())
	})
	return globalLogger.Load()
}

// mustBuildDefaultLogger falls back to a nop logger when the default config cannot be built
func mustBuildDefaultLogger() *zap.Logger {
	cfg := DefaultConfig()
	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoderConfig(),
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}
	logger, err := zapConfig.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.DPanicLevel),
	)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// SetGlobalLogger replaces the global logger.
// The logger should carry AddCallerSkip(1) to report the right caller.
func SetGlobalLogger(l *zap.Logger) {
	globalLogger.Store(l)
}

// GetGlobalLogger returns the current global logger
func GetGlobalLogger() *zap.Logger {
	return getGlobalLogger()
}

// Debug logs a message at debug level using the global logger.
func Debug(msg string, fields ...zap.Field) {
	getGlobalLogger().Debug(msg, fields...)
}

// Info logs a message at info level using the global logger.
func Info(msg string, fields ...zap.Field) {
	getGlobalLogger().Info(msg, fields...)
}

// Warn logs a message at warn level using the global logger.
func Warn(msg string, fields ...zap.Field) {
	getGlobalLogger().Warn(msg, fields...)
}

// Error logs a message at error level using the global logger.
func Error(msg string, fields ...zap.Field) {
	getGlobalLogger().Error(msg, fields...)
}

// Sync flushes any buffered log entries from the global logger.
func Sync() error {
	return getGlobalLogger().Sync()
}
