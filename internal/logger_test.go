package internal

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, LogLevelWarn, false, false)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("expected debug/info to be filtered out at Warn level, got: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("expected warn/error to be logged, got: %s", out)
	}
}

func TestLoggerQuietSuppressesBelowError(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, LogLevelDebug, false, true)

	l.Warn("should be suppressed")
	l.Error("should appear")

	out := buf.String()
	if strings.Contains(out, "should be suppressed") {
		t.Error("quiet mode should suppress warnings")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("quiet mode should still surface errors")
	}
}

func TestLoggerWithStampsRunID(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, LogLevelInfo, false, false)
	child := l.With("run-123")

	child.Info("hello")

	if !strings.Contains(buf.String(), "run-123") {
		t.Errorf("expected run ID to appear in log line, got: %s", buf.String())
	}
}

func TestAuthRedactorStripsBearerToken(t *testing.T) {
	r := &AuthRedactor{}
	input := "Authorization: Bearer secret-token-value"
	got := r.Redact(input)
	if strings.Contains(got, "secret-token-value") {
		t.Errorf("expected token to be redacted, got: %s", got)
	}
	if !strings.Contains(got, "[REDACTED]") {
		t.Errorf("expected a redaction marker, got: %s", got)
	}
}

func TestURLRedactorStripsQueryToken(t *testing.T) {
	r := &URLRedactor{}
	input := "https://example.com/file?token=abc123&other=1"
	got := r.Redact(input)
	if strings.Contains(got, "abc123") {
		t.Errorf("expected token query param to be redacted, got: %s", got)
	}
}
