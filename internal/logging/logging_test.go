package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
		{" Debug ", slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_WritesJSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := WithShotID(WithSessionID(WithComponent(New(&buf, "info"), "queue"), "sess-1"), 2)

	logger.Debug("hidden")
	logger.Info("clip stored", "bytes", 42)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "clip stored" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["component"] != "queue" || entry["session_id"] != "sess-1" {
		t.Errorf("attributes = %v", entry)
	}
	if entry["shot"] != float64(3) {
		t.Errorf("shot = %v, want 3 (1-based)", entry["shot"])
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("short"); got != "****" {
		t.Errorf("SanitizeToken(short) = %q", got)
	}
	if got := SanitizeToken("AIzaSyExampleKey1234"); got != "AIza...1234" {
		t.Errorf("SanitizeToken(key) = %q", got)
	}
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info")

	WithRequestID(base, "").Info("no id")
	WithRequestID(base, "ab12cd34").Info("with id")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if strings.Contains(lines[0], "request_id") {
		t.Errorf("empty id should not be logged: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"request_id":"ab12cd34"`) {
		t.Errorf("missing request id: %s", lines[1])
	}
}

func TestSanitizePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{home, "~"},
		{filepath.Join(home, "bin", "ffmpeg"), filepath.Join("~", "bin", "ffmpeg")},
		{home + "-other/ffmpeg", home + "-other/ffmpeg"},
		{"/usr/bin/ffmpeg", "/usr/bin/ffmpeg"},
		{"ffmpeg", "ffmpeg"},
	}
	for _, tt := range tests {
		if got := SanitizePath(tt.in); got != tt.want {
			t.Errorf("SanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
