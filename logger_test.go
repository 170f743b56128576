package autotune

import "testing"

func TestNoopLoggerNeverPanics(t *testing.T) {
	var l Logger = noopLogger{}
	l.Debug("x", nil)
	l.Info("x", map[string]any{"k": 1})
	l.Warn("x", nil)
	l.Error("x", nil)
}

func TestNewDefaultLoggerImplementsLogger(t *testing.T) {
	var _ Logger = NewDefaultLogger()
}
