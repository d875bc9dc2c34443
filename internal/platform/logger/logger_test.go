package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":        Info,
		"debug":   Debug,
		" WARN ":  Warn,
		"warning": Warn,
		"error":   Error,
		"nope":    Info,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerWritesFieldsAndBase(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Info, Format: FormatJSON, App: "medication-schedule", Out: &buf})

	l.With(map[string]any{"component": "conflicts"}).Info("conflicts detected", map[string]any{
		"patient_id": "p1",
		"error":      errors.New("boom"),
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if entry["message"] != "conflicts detected" {
		t.Fatalf("expected message, got %v", entry["message"])
	}
	if entry["app"] != "medication-schedule" || entry["component"] != "conflicts" {
		t.Fatalf("expected base fields, got %v", entry)
	}
	if entry["patient_id"] != "p1" || entry["error"] != "boom" {
		t.Fatalf("expected call fields, got %v", entry)
	}
}

func TestLevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Warn, Format: FormatJSON, Out: &buf})

	l.Info("skip me", nil)
	l.Debug("skip me too", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	l.Warn("keep me", nil)
	if !strings.Contains(buf.String(), "keep me") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestTextFormatIsReadable(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Debug, Format: FormatText, Out: &buf})
	l.Debug("hello", map[string]any{"k": "v"})

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "k=v") {
		t.Fatalf("unexpected text output %q", out)
	}
}
