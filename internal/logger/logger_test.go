package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", "json")
	defer func() { Logger = nil }()

	Debug("hidden")
	Info("Record created", "x", 100)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one line at info level, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "Record created" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["x"] != float64(100) {
		t.Errorf("x = %v", entry["x"])
	}
}

func TestInitWriterText(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "debug", "text")
	defer func() { Logger = nil }()

	Warn("Click ignored", "reason", "duplicate coordinate")
	if !strings.Contains(buf.String(), `reason="duplicate coordinate"`) {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}
