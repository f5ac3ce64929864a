package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Constants
const (
	LogFilePermissions = 0600
	InfoLogLevel       = "info"
	loggerName         = "remotefs"
)

// Global variables
var (
	globalLogger *zap.Logger
	loggerMutex  sync.RWMutex

	// Log levels
	DEBUG zapcore.Level = zapcore.DebugLevel
	INFO  zapcore.Level = zapcore.InfoLevel
	WARN  zapcore.Level = zapcore.WarnLevel
	ERROR zapcore.Level = zapcore.ErrorLevel

	GlobalLogLevel string = InfoLogLevel
)

// Logger wraps a zap logger with printf-style helpers.
type Logger struct {
	*zap.Logger
	verbose bool
}

func (l *Logger) log(level zapcore.Level, msg string) {
	if l.Logger == nil {
		return
	}
	if ce := l.Logger.Check(level, msg); ce != nil {
		ce.Write()
	}
}

func (l *Logger) Debug(msg string) {
	l.log(zapcore.DebugLevel, msg)
}

func (l *Logger) Info(msg string) {
	l.log(zapcore.InfoLevel, msg)
}

func (l *Logger) Warn(msg string) {
	l.log(zapcore.WarnLevel, msg)
}

func (l *Logger) Error(msg string) {
	l.log(zapcore.ErrorLevel, msg)
}

// Formatted logging methods
func (l *Logger) Debugf(format string, args ...interface{}) { l.Debug(fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...interface{})  { l.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.Warn(fmt.Sprintf(format, args...)) }

func (l *Logger) Errorf(
	format string,
	args ...interface{},
) {
	l.Error(fmt.Sprintf(format, args...))
}

// Field logging methods
func (l *Logger) DebugWithFields(msg string, fields ...zap.Field) {
	if l.Logger == nil {
		return
	}
	l.Logger.Debug(formatMessage(msg), fields...)
}

func (l *Logger) InfoWithFields(msg string, fields ...zap.Field) {
	if l.Logger == nil {
		return
	}
	l.Logger.Info(formatMessage(msg), fields...)
}

func (l *Logger) WarnWithFields(msg string, fields ...zap.Field) {
	if l.Logger == nil {
		return
	}
	l.Logger.Warn(formatMessage(msg), fields...)
}

func (l *Logger) ErrorWithFields(msg string, fields ...zap.Field) {
	if l.Logger == nil {
		return
	}
	l.Logger.Error(formatMessage(msg), fields...)
}

// With returns a child logger carrying the given fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	if l.Logger == nil {
		return l
	}
	return &Logger{Logger: l.Logger.With(fields...), verbose: l.verbose}
}

func formatMessage(msg string) string {
	return strings.TrimPrefix(msg, loggerName+"\t")
}

func getZapLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Get returns the process-wide logger, building a production logger on first use.
func Get() *Logger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if globalLogger == nil {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(getZapLevel(GlobalLogLevel))
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		l, err := config.Build()
		if err != nil {
			l = zap.NewNop()
		}
		globalLogger = l.Named(loggerName)
	}
	return &Logger{Logger: globalLogger, verbose: false}
}

func SetGlobalLogger(logger interface{}) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	switch l := logger.(type) {
	case *Logger:
		globalLogger = l.Logger
	case *TestLogger:
		globalLogger = l.Logger.Logger
	case *zap.Logger:
		globalLogger = l
	default:
		panic("unsupported logger type")
	}
}

func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop(), verbose: false}
}
