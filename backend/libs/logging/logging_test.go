package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	logger, err := NewLogger("lpr-service")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug enabled")
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "chatty")
	t.Setenv("LOG_FORMAT", "console")
	logger, err := NewLogger("")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) || !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("expected info level")
	}
}
