package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func parseLogLine(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(raw, &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, raw)
	}
	return entry
}

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Info("test message", slog.String("key", "value"))

	entry := parseLogLine(t, buf.Bytes())
	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
}

func TestSetup_IncludesLevelField(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf).Warn("warning test")

	entry := parseLogLine(t, buf.Bytes())
	if entry["level"] != "WARN" {
		t.Errorf("level = %q, want WARN", entry["level"])
	}
}

func TestSetup_DebugSuppressedByDefault(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	Setup(&buf).Debug("should not appear")

	if buf.Len() != 0 {
		t.Errorf("debug log was written: %s", buf.String())
	}
}

func TestSetup_DebugEnabledViaEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	Setup(&buf).Debug("verbose detail")

	if buf.Len() == 0 {
		t.Fatal("debug log should be written when LOG_LEVEL=debug")
	}
	entry := parseLogLine(t, buf.Bytes())
	if entry["level"] != "DEBUG" {
		t.Errorf("level = %q, want DEBUG", entry["level"])
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{value: "", want: slog.LevelInfo},
		{value: "debug", want: slog.LevelDebug},
		{value: "WARN", want: slog.LevelWarn},
		{value: "error", want: slog.LevelError},
		{value: "bogus", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Setenv("LOG_LEVEL", tt.value)
		if got := levelFromEnv(); got != tt.want {
			t.Errorf("levelFromEnv() with LOG_LEVEL=%q = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Info("global test")

	entry := parseLogLine(t, buf.Bytes())
	if entry["msg"] != "global test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global test")
	}
}
