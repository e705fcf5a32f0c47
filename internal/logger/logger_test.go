package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	log, err := New(false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug to be disabled by default")
	}

	debugLog, err := New(true, true, "stderr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !debugLog.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug to be enabled")
	}
}
