package utils

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
)

// =============================================================================
// Logger Tests
// =============================================================================

// resetLogger clears the singleton so each test starts clean.
func resetLogger() {
	once = sync.Once{}
	loggerInstance = nil
}

// captureStderr runs fn and returns what it wrote to stderr.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stderr = w

	fn()

	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	os.Stderr = oldStderr
	return buf.String()
}

// TestGetLogger verifies singleton pattern - same instance returned
func TestGetLogger(t *testing.T) {
	resetLogger()
	logger1 := GetLogger()
	logger2 := GetLogger()

	if logger1 != logger2 {
		t.Error("GetLogger() should return same singleton instance")
	}
}

// TestLoggerDefaultVerboseMode verifies verbose is false by default
func TestLoggerDefaultVerboseMode(t *testing.T) {
	resetLogger()
	if GetLogger().IsVerbose() {
		t.Error("Logger should have verbose=false by default")
	}
}

// TestSetVerboseMode verifies SetVerboseMode changes verbose state
func TestSetVerboseMode(t *testing.T) {
	resetLogger()
	SetVerboseMode(true)
	if !GetLogger().IsVerbose() {
		t.Error("SetVerboseMode(true) should enable verbose mode")
	}

	SetVerboseMode(false)
	if GetLogger().IsVerbose() {
		t.Error("SetVerboseMode(false) should disable verbose mode")
	}
}

// TestDebugOnlyShownWhenVerbose verifies Debug output only when verbose=true
func TestDebugOnlyShownWhenVerbose(t *testing.T) {
	resetLogger()
	logger := GetLogger()

	quiet := captureStderr(t, func() {
		logger.SetVerbose(false)
		logger.Debug("hidden message")
	})
	if quiet != "" {
		t.Errorf("Debug should not output when verbose=false, got: %s", quiet)
	}

	loud := captureStderr(t, func() {
		logger.SetVerbose(true)
		logger.Debug("shown message")
	})
	if !strings.Contains(loud, "[DEBUG]") {
		t.Errorf("Debug should output [DEBUG] prefix when verbose=true, got: %s", loud)
	}
	if !strings.Contains(loud, "shown message") {
		t.Errorf("Debug should output message when verbose=true, got: %s", loud)
	}
}

// TestInfoAlwaysShown verifies Info output regardless of verbose mode
func TestInfoAlwaysShown(t *testing.T) {
	resetLogger()
	logger := GetLogger()

	out := captureStderr(t, func() {
		logger.SetVerbose(false)
		logger.Info("info message")
	})
	if !strings.Contains(out, "[INFO]") {
		t.Errorf("Info should output [INFO] prefix, got: %s", out)
	}
	if !strings.Contains(out, "info message") {
		t.Errorf("Info should output message, got: %s", out)
	}
}

// TestWarnAlwaysShown verifies Warn output regardless of verbose mode
func TestWarnAlwaysShown(t *testing.T) {
	resetLogger()

	out := captureStderr(t, func() {
		GetLogger().Warn("warn message")
	})
	if !strings.Contains(out, "[WARN]") {
		t.Errorf("Warn should output [WARN] prefix, got: %s", out)
	}
}

// TestErrorAlwaysShown verifies Error output regardless of verbose mode
func TestErrorAlwaysShown(t *testing.T) {
	resetLogger()

	out := captureStderr(t, func() {
		GetLogger().Error("error message")
	})
	if !strings.Contains(out, "[ERROR]") {
		t.Errorf("Error should output [ERROR] prefix, got: %s", out)
	}
}

// TestFormatMessageWithArgs verifies printf-style formatting
func TestFormatMessageWithArgs(t *testing.T) {
	got := formatMessage("count=%d name=%s", 3, "abc")
	if got != "count=3 name=abc" {
		t.Errorf("formatMessage with args = %q, want 'count=3 name=abc'", got)
	}
}

// TestFormatMessageWithoutArgs verifies a literal message passes through
func TestFormatMessageWithoutArgs(t *testing.T) {
	got := formatMessage("plain message with 100%% literal")
	if got != "plain message with 100%% literal" {
		t.Errorf("formatMessage without args should not format, got %q", got)
	}
}

// TestPackageLevelHelpers verifies Infof/Warnf/Errorf/Debugf route through
// the singleton
func TestPackageLevelHelpers(t *testing.T) {
	resetLogger()
	SetVerboseMode(true)

	out := captureStderr(t, func() {
		Debugf("debug %d", 1)
		Infof("info %d", 2)
		Warnf("warn %d", 3)
		Errorf("error %d", 4)
	})

	for _, want := range []string{"debug 1", "info 2", "warn 3", "error 4"} {
		if !strings.Contains(out, want) {
			t.Errorf("package helper output missing %q, got: %s", want, out)
		}
	}
}
