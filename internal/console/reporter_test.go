package console_test

import (
	"bytes"
	"strings"
	"testing"

	"bigrack/internal/console"
)

func TestReporterLines(t *testing.T) {
	var buf bytes.Buffer
	r := console.NewPlain(&buf)

	r.Info("Starting BigRack MCP daemon...")
	r.Success("BigRack MCP daemon started and ready")
	r.Warn("stale socket at %s", "/tmp/bigrack.sock")
	r.Failure("failed to start daemon: %s", "port in use")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "Starting BigRack MCP daemon..." {
		t.Errorf("info line: %q", lines[0])
	}
	if lines[1] != "BigRack MCP daemon started and ready" {
		t.Errorf("success line: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "Warning: ") {
		t.Errorf("warn prefix: %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "Error: ") || !strings.Contains(lines[3], "port in use") {
		t.Errorf("failure line: %q", lines[3])
	}
}

func TestReporterNoColorOnBuffer(t *testing.T) {
	var buf bytes.Buffer
	r := console.New(&buf)
	r.Success("done")
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("buffer output should not contain ANSI escapes: %q", buf.String())
	}
}

func TestNilReporterIsSafe(t *testing.T) {
	var r *console.Reporter
	r.Info("ignored")
	r.Failure("ignored")
}
