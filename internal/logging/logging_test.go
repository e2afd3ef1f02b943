package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestStartupLoggerLogTo(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	NewStartupLogger("serve").
		Version("1.2.3").
		Config("backend", "huggingface").
		Feature("metrics", false).
		SSMParam("token", "/text-to-video/prod/huggingface-token").
		Warn("worst-case latency exceeds platform ceiling").
		LogTo(&logger)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected warning plus summary, got %d lines: %s", len(lines), buf.String())
	}

	var summary map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &summary); err != nil {
		t.Fatalf("failed to parse summary: %v", err)
	}
	if summary["message"] != "Startup complete" {
		t.Errorf("unexpected message %v", summary["message"])
	}
	process := summary["process"].(map[string]any)
	if process["name"] != "serve" || process["version"] != "1.2.3" {
		t.Errorf("unexpected process block %v", process)
	}
	if summary["config"].(map[string]any)["backend"] != "huggingface" {
		t.Errorf("unexpected config block %v", summary["config"])
	}
	if summary["features"].(map[string]any)["metrics"] != false {
		t.Errorf("unexpected features block %v", summary["features"])
	}
	if summary["warnings"] != float64(1) {
		t.Errorf("expected warnings=1, got %v", summary["warnings"])
	}

	var warning map[string]any
	json.Unmarshal([]byte(lines[0]), &warning)
	if warning["level"] != "warn" {
		t.Errorf("expected warn level for first line, got %v", warning["level"])
	}
}
