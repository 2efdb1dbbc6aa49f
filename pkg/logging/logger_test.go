package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLoggerWithServiceStampsEntries(t *testing.T) {
	l := NewLoggerWithService("tastesync")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithField("k", "v").Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if entry["service"] != "tastesync" {
		t.Fatalf("expected service field, got %v", entry["service"])
	}
	if entry["k"] != "v" {
		t.Fatalf("expected k=v, got %v", entry["k"])
	}
}

func TestNewLoggerWithServiceKeepsExplicitField(t *testing.T) {
	l := NewLoggerWithService("tastesync")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithField("service", "override").Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if entry["service"] != "override" {
		t.Fatalf("expected explicit service field to win, got %v", entry["service"])
	}
}
