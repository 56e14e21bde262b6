package daemonrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"bigrack/internal/console"
)

// recordedEntry captures one structured log record for assertions.
type recordedEntry struct {
	level slog.Level
	msg   string
	attrs map[string]string
}

type recordingHandler struct {
	mu      sync.Mutex
	entries []recordedEntry
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, rec slog.Record) error {
	entry := recordedEntry{level: rec.Level, msg: rec.Message, attrs: map[string]string{}}
	rec.Attrs(func(a slog.Attr) bool {
		entry.attrs[a.Key] = a.Value.String()
		return true
	})
	h.mu.Lock()
	h.entries = append(h.entries, entry)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) find(msg string) (recordedEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, entry := range h.entries {
		if entry.msg == msg {
			return entry, true
		}
	}
	return recordedEntry{}, false
}

type fakeStarter struct {
	calls int
	err   error
	panic any
	// onStart runs inside Start so tests can observe what was announced
	// before the lifecycle object ran.
	onStart func()
}

func (f *fakeStarter) Start(context.Context) error {
	f.calls++
	if f.onStart != nil {
		f.onStart()
	}
	if f.panic != nil {
		panic(f.panic)
	}
	return f.err
}

type exitRecorder struct {
	calls int
	code  int
}

func (e *exitRecorder) exit(code int) {
	e.calls++
	e.code = code
}

type bootstrapHarness struct {
	boot    *Bootstrap
	handler *recordingHandler
	console *bytes.Buffer
	starter *fakeStarter
	exit    *exitRecorder
}

func newBootstrapHarness(starter *fakeStarter) *bootstrapHarness {
	handler := &recordingHandler{}
	buf := &bytes.Buffer{}
	exit := &exitRecorder{}
	boot := &Bootstrap{
		Logger:  slog.New(handler),
		Console: console.NewPlain(buf),
		Server:  starter,
		Exit:    exit.exit,
	}
	return &bootstrapHarness{boot: boot, handler: handler, console: buf, starter: starter, exit: exit}
}

func TestBootstrapReady(t *testing.T) {
	h := newBootstrapHarness(&fakeStarter{})

	outcome := h.boot.Run(context.Background())
	if outcome != OutcomeReady {
		t.Fatalf("outcome = %v, want OutcomeReady", outcome)
	}
	if h.starter.calls != 1 {
		t.Fatalf("Start called %d times, want 1", h.starter.calls)
	}
	if h.exit.calls != 0 {
		t.Fatalf("exit called %d times on success, want 0", h.exit.calls)
	}

	if _, ok := h.handler.find("starting BigRack MCP daemon"); !ok {
		t.Error("missing startup log record")
	}
	if _, ok := h.handler.find("daemon ready"); !ok {
		t.Error("missing ready log record")
	}

	lines := consoleLines(h.console)
	if len(lines) != 2 {
		t.Fatalf("console lines = %q, want exactly 2", lines)
	}
	if lines[0] != "Starting BigRack MCP daemon" {
		t.Errorf("first console line = %q", lines[0])
	}
	if lines[1] != "BigRack MCP daemon started and ready" {
		t.Errorf("second console line = %q", lines[1])
	}
}

func TestBootstrapAnnouncesBeforeStart(t *testing.T) {
	var announcedLog, announcedConsole bool
	starter := &fakeStarter{}
	h := newBootstrapHarness(starter)
	starter.onStart = func() {
		_, announcedLog = h.handler.find("starting BigRack MCP daemon")
		announcedConsole = strings.Contains(h.console.String(), "Starting BigRack MCP daemon")
	}

	h.boot.Run(context.Background())

	if !announcedLog {
		t.Error("log announcement was not emitted before Start")
	}
	if !announcedConsole {
		t.Error("console announcement was not emitted before Start")
	}
}

func TestBootstrapFailure(t *testing.T) {
	startErr := errors.New("listen tcp 127.0.0.1:7331: bind: address already in use")
	h := newBootstrapHarness(&fakeStarter{err: startErr})

	outcome := h.boot.Run(context.Background())
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want OutcomeFailed", outcome)
	}
	if h.starter.calls != 1 {
		t.Fatalf("Start called %d times, want exactly 1 (no retry)", h.starter.calls)
	}
	if h.exit.calls != 1 || h.exit.code != 1 {
		t.Fatalf("exit calls=%d code=%d, want one call with code 1", h.exit.calls, h.exit.code)
	}

	entry, ok := h.handler.find("daemon startup failed")
	if !ok {
		t.Fatal("missing failure log record")
	}
	if entry.level != slog.LevelError {
		t.Errorf("failure logged at %v, want error", entry.level)
	}
	if got := entry.attrs["error"]; !strings.Contains(got, "address already in use") {
		t.Errorf("error attr = %q, want original error text", got)
	}
	if entry.attrs["reason"] == "" {
		t.Error("failure record has no reason attr")
	}

	out := h.console.String()
	if !strings.Contains(out, "Error: failed to start daemon: ") {
		t.Errorf("console output %q missing failure line", out)
	}
	if !strings.Contains(out, "address already in use") {
		t.Errorf("console output %q missing failure reason", out)
	}
	if strings.Contains(out, "started and ready") {
		t.Errorf("console output %q reports both success and failure", out)
	}
}

type blankError struct{}

func (blankError) Error() string { return "   " }

func TestBootstrapFailureReasonNeverEmpty(t *testing.T) {
	h := newBootstrapHarness(&fakeStarter{err: blankError{}})

	h.boot.Run(context.Background())

	entry, ok := h.handler.find("daemon startup failed")
	if !ok {
		t.Fatal("missing failure log record")
	}
	if strings.TrimSpace(entry.attrs["reason"]) == "" {
		t.Errorf("reason attr = %q, want non-empty", entry.attrs["reason"])
	}
	for _, line := range consoleLines(h.console) {
		if strings.HasPrefix(line, "Error: ") && strings.TrimSpace(strings.TrimPrefix(line, "Error: failed to start daemon:")) == "" {
			t.Errorf("console failure line %q carries no reason", line)
		}
	}
}

func TestBootstrapAbsorbsStartPanic(t *testing.T) {
	h := newBootstrapHarness(&fakeStarter{panic: "listener state corrupted"})

	outcome := h.boot.Run(context.Background())
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want OutcomeFailed", outcome)
	}
	if h.exit.calls != 1 || h.exit.code != 1 {
		t.Fatalf("exit calls=%d code=%d, want one call with code 1", h.exit.calls, h.exit.code)
	}
	entry, ok := h.handler.find("daemon startup failed")
	if !ok {
		t.Fatal("missing failure log record")
	}
	if !strings.Contains(entry.attrs["reason"], "listener state corrupted") {
		t.Errorf("reason attr = %q, want panic text", entry.attrs["reason"])
	}
}

func TestBootstrapNilCollaborators(t *testing.T) {
	exit := &exitRecorder{}
	boot := &Bootstrap{
		Server: &fakeStarter{err: errors.New("boom")},
		Exit:   exit.exit,
	}

	if got := boot.Run(context.Background()); got != OutcomeFailed {
		t.Fatalf("outcome = %v, want OutcomeFailed", got)
	}
	if exit.calls != 1 {
		t.Fatalf("exit calls = %d, want 1", exit.calls)
	}
}

func TestFailureReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("port in use"), "port in use"},
		{"wrapped", fmt.Errorf("start control socket: %w", errors.New("permission denied")), "start control socket: permission denied"},
		{"padded", errors.New("  spaced out  "), "spaced out"},
		{"blank", blankError{}, fallbackReason},
		{"nil", nil, fallbackReason},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := failureReason(tc.err); got != tc.want {
				t.Errorf("failureReason(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func consoleLines(buf *bytes.Buffer) []string {
	trimmed := strings.TrimRight(buf.String(), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
