package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "bigrack.log")
	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("daemon ready", String(FieldEventType, "daemon_ready"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "daemon ready" {
		t.Errorf("msg field: got %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("level field: got %v", entry["level"])
	}
	if entry[FieldEventType] != "daemon_ready" {
		t.Errorf("event_type field: got %v", entry[FieldEventType])
	}
}

func TestConsoleHandlerFormatsFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))
	logger = logger.With(String(FieldComponent, "daemon"))

	logger.Info("starting BigRack MCP daemon", String("bind", "127.0.0.1:7331"))

	out := buf.String()
	if !strings.Contains(out, "INFO [daemon] starting BigRack MCP daemon") {
		t.Errorf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "- bind: 127.0.0.1:7331") {
		t.Errorf("missing field line: %q", out)
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	handler := newConsoleHandler(&buf, levelVar, false)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestErrorAttr(t *testing.T) {
	attr := Error(errors.New("bind failed"))
	if attr.Key != "error" {
		t.Errorf("key: got %q", attr.Key)
	}
	if got := formatValue(attr.Value.Resolve()); got != "bind failed" {
		t.Errorf("value: got %q", got)
	}

	nilAttr := Error(nil)
	if nilAttr.Value.String() != "<nil>" {
		t.Errorf("nil error value: got %q", nilAttr.Value.String())
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("nop logger should report disabled for all levels")
	}
}

func TestNewComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(newConsoleHandler(&buf, new(slog.LevelVar), false))
	logger := NewComponentLogger(base, "mcp")
	logger.Info("listener ready")
	if !strings.Contains(buf.String(), "[mcp]") {
		t.Errorf("component missing from output: %q", buf.String())
	}

	if NewComponentLogger(nil, "x") == nil {
		t.Error("nil base should still return a logger")
	}
}
