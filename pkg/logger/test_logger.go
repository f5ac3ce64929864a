package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger writes through to the test output and keeps every message for assertions.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

func NewTestLogger(t zaptest.TestingT) *TestLogger {
	core, observed := observer.New(zapcore.DebugLevel)
	testCore := zaptest.NewLogger(t, zaptest.Level(zapcore.DebugLevel)).Core()
	return &TestLogger{
		Logger: &Logger{
			Logger:  zap.New(zapcore.NewTee(testCore, core)).Named(loggerName),
			verbose: true,
		},
		observed: observed,
	}
}

// GetLogs returns captured messages in order
func (tl *TestLogger) GetLogs() []string {
	entries := tl.observed.All()
	logs := make([]string, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, e.Message)
	}
	return logs
}
