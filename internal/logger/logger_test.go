package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_DefaultsToInfoLevel(t *testing.T) {
	log := New()

	if log == nil {
		t.Fatal("expected logger to be created")
	}
	if log.GetLevel() != slog.LevelInfo {
		t.Errorf("expected default level to be Info, got %v", log.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSlogLogger_ImplementsInterface(t *testing.T) {
	var _ Logger = (*SlogLogger)(nil)
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: slog.LevelWarn, Output: &buf})

	log.Debug("debug message")
	log.Info("info message")
	if buf.Len() > 0 {
		t.Errorf("expected debug/info to be filtered at WARN level, got: %s", buf.String())
	}

	log.Warn("warn message", "key", "value")
	if !strings.Contains(buf.String(), "warn message") || !strings.Contains(buf.String(), "key=value") {
		t.Errorf("expected warn message with attrs, got: %s", buf.String())
	}

	// Raising verbosity at runtime takes effect immediately
	buf.Reset()
	log.SetLevel(slog.LevelDebug)
	log.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("expected debug output after SetLevel, got: %s", buf.String())
	}
}

func TestSlogLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: slog.LevelInfo, Format: "json", Output: &buf})

	log.Info("registration stored", "voter_id", "v-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "registration stored" {
		t.Errorf("unexpected msg %v", entry["msg"])
	}
	if entry["voter_id"] != "v-1" {
		t.Errorf("unexpected voter_id %v", entry["voter_id"])
	}
}

func TestSlogLogger_RedactsEmailAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: slog.LevelInfo, Output: &buf, RedactPII: true})

	log.Info("submission failed", "email", "awa.jallow@example.gm", "region", "Banjul")

	out := buf.String()
	if strings.Contains(out, "awa.jallow@example.gm") {
		t.Errorf("expected email to be redacted, got: %s", out)
	}
	if !strings.Contains(out, "aw***@example.gm") {
		t.Errorf("expected masked email, got: %s", out)
	}
	if !strings.Contains(out, "region=Banjul") {
		t.Errorf("expected other attributes untouched, got: %s", out)
	}
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"awa.jallow@example.gm", "aw***@example.gm"},
		{"ab@example.gm", "***@example.gm"},
		{"not-an-email", "***@***"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := RedactEmail(tt.in); got != tt.want {
				t.Errorf("RedactEmail(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlogLogger_HTTPLogging(t *testing.T) {
	log := NewDiscard()

	if log.IsHTTPLoggingEnabled() {
		t.Error("expected HTTP logging to be disabled by default")
	}
	log.EnableHTTPLogging()
	if !log.IsHTTPLoggingEnabled() {
		t.Error("expected HTTP logging to be enabled")
	}
	log.DisableHTTPLogging()
	if log.IsHTTPLoggingEnabled() {
		t.Error("expected HTTP logging to be disabled")
	}
}
