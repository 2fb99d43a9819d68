package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(LogConfig{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.WithField("user_id", "u1").Debug("Summary stored")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "Summary stored" || entry["user_id"] != "u1" || entry["level"] != "debug" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(LogConfig{Level: "chatty"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "journal-digest.log")
	l, err := New(LogConfig{Level: "info", FilePath: path, RotationTime: "1h"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info("written to file")
	if c, ok := l.Out.(interface{ Close() error }); ok {
		_ = c.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file = %q", data)
	}
}

func TestNew_InvalidRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")
	if _, err := New(LogConfig{FilePath: path, RotationTime: "daily"}, nil); err == nil {
		t.Error("expected error for invalid rotation_time")
	}
}
