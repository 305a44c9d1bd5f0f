package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/spikenet/internal/network"
	"github.com/nvandessel/spikenet/internal/units"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase INFO", "INFO", slog.LevelInfo},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"info level", "info"},
		{"debug level", "debug"},
		{"trace level", "trace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)
			if logger == nil {
				t.Fatal("NewLogger returned nil")
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtInfo  bool
	}{
		{"info filters debug", "info", false, true},
		{"debug passes debug", "debug", true, true},
		{"trace passes debug", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			hasDebug := strings.Contains(buf.String(), "debug message")
			if hasDebug != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v (buf: %q)", hasDebug, tt.logAtDebug, buf.String())
			}

			buf.Reset()
			logger.Info("info message")
			hasInfo := strings.Contains(buf.String(), "info message")
			if hasInfo != tt.logAtInfo {
				t.Errorf("info message visible = %v, want %v (buf: %q)", hasInfo, tt.logAtInfo, buf.String())
			}
		})
	}
}

func TestLevelTrace(t *testing.T) {
	// Trace should be below debug (more verbose)
	if LevelTrace >= slog.LevelDebug {
		t.Errorf("LevelTrace (%d) should be less than LevelDebug (%d)", LevelTrace, slog.LevelDebug)
	}
}

func readEvents(t *testing.T, dir string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, EventsFile))
	if err != nil {
		t.Fatalf("failed to read %s: %v", EventsFile, err)
	}
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse JSONL entry %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestNewEventLogger_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "info")

	if el != nil {
		t.Error("expected nil EventLogger at info level")
	}

	// Nil logger should still be safe to use
	el.Log(map[string]any{"event": "test"})

	if _, err := os.Stat(filepath.Join(dir, EventsFile)); err == nil {
		t.Error("events.jsonl should not exist at info level")
	}
}

func TestNewEventLogger_DebugLevel(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "debug")
	defer el.Close()

	el.Log(map[string]any{"event": "test_event", "score": 0.87})

	events := readEvents(t, dir)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	entry := events[0]
	if entry["event"] != "test_event" {
		t.Errorf("event = %v, want test_event", entry["event"])
	}
	if entry["score"] != 0.87 {
		t.Errorf("score = %v, want 0.87", entry["score"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in event log entry")
	}
	if _, ok := entry["run_id"]; ok {
		t.Error("run_id should be absent before WithRun")
	}
}

func TestEventLogger_LogTransition(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "trace").WithRun("run-1")
	defer el.Close()

	el.LogTransition(network.Transition{
		Step:      33,
		Name:      "d3",
		Kind:      units.KindDendrite,
		From:      units.Resting,
		To:        units.Activated,
		Potential: -55,
	})

	events := readEvents(t, dir)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	checks := map[string]any{
		"event":     "transition",
		"unit":      "d3",
		"kind":      "dendrite",
		"from":      units.Resting.String(),
		"to":        units.Activated.String(),
		"step":      float64(33),
		"potential": float64(-55),
		"run_id":    "run-1",
	}
	for k, want := range checks {
		if e[k] != want {
			t.Errorf("%s = %v, want %v", k, e[k], want)
		}
	}
}

func TestNewEventLogger_MultipleWrites(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "debug")
	defer el.Close()

	el.Log(map[string]any{"event": "first"})
	el.Log(map[string]any{"event": "second"})

	events := readEvents(t, dir)
	if len(events) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(events))
	}
	if events[0]["event"] != "first" {
		t.Errorf("first event = %v, want 'first'", events[0]["event"])
	}
	if events[1]["event"] != "second" {
		t.Errorf("second event = %v, want 'second'", events[1]["event"])
	}
}

func TestEventLogger_NilSafety(t *testing.T) {
	var el *EventLogger
	el.Log(map[string]any{"event": "should_not_panic"})
	el.LogTransition(network.Transition{})
	if el.WithRun("x") != nil {
		t.Error("WithRun on nil should return nil")
	}
	el.Close()
}

func TestEventLogger_DoesNotMutateCallerMap(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "debug")
	defer el.Close()

	event := map[string]any{"event": "test"}
	el.Log(event)

	if _, hasTime := event["time"]; hasTime {
		t.Error("Log() should not mutate caller's map, but 'time' was injected")
	}
}

func TestEventLogger_LogAfterClose(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "debug")

	el.Log(map[string]any{"event": "before_close"})
	el.Close()

	el.Log(map[string]any{"event": "after_close"})

	if events := readEvents(t, dir); len(events) != 1 {
		t.Errorf("expected only the event written before close, got %d", len(events))
	}
}

func TestNewEventLogger_CreatesDir(t *testing.T) {
	nestedDir := filepath.Join(t.TempDir(), "sub", "dir")

	el := NewEventLogger(nestedDir, "debug")
	if el == nil {
		t.Fatal("expected non-nil EventLogger when dir needs creation")
	}
	defer el.Close()

	el.Log(map[string]any{"event": "dir_create_test"})

	if _, err := os.Stat(filepath.Join(nestedDir, EventsFile)); err != nil {
		t.Fatalf("events.jsonl should exist after dir creation: %v", err)
	}
}

func TestEventLogger_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "debug")
	defer el.Close()

	el.Log(map[string]any{"event": "perm_test"})

	info, err := os.Stat(filepath.Join(dir, EventsFile))
	if err != nil {
		t.Fatalf("failed to stat events.jsonl: %v", err)
	}

	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}
