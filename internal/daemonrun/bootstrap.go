package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"bigrack/internal/console"
	"bigrack/internal/logging"
)

// Starter is the daemon lifecycle contract the bootstrap drives. Start
// performs all listener and protocol initialization and returns once the
// daemon is accepting sessions, or with the error that prevented it.
type Starter interface {
	Start(ctx context.Context) error
}

// StartFunc adapts a plain function to the Starter interface.
type StartFunc func(ctx context.Context) error

func (f StartFunc) Start(ctx context.Context) error { return f(ctx) }

// Outcome reports how a bootstrap attempt concluded.
type Outcome int

const (
	// OutcomeReady means the daemon started and is serving.
	OutcomeReady Outcome = iota
	// OutcomeFailed means startup failed and the exit hook fired.
	OutcomeFailed
)

const fallbackReason = "daemon startup failed with no error detail"

// Bootstrap wires the startup sequence together. All collaborators are
// injected; Exit defaults to os.Exit when nil so tests can substitute a
// recorder.
type Bootstrap struct {
	Logger  *slog.Logger
	Console *console.Reporter
	Server  Starter
	Exit    func(code int)
}

// Run performs exactly one startup attempt: announce on both channels,
// call Start, then report either readiness or failure. A failed attempt
// logs the original error, prints the reason to the console, and invokes
// Exit(1). Run never retries.
func (b *Bootstrap) Run(ctx context.Context) Outcome {
	logger := b.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	exit := b.Exit
	if exit == nil {
		exit = os.Exit
	}

	logger.Info("starting BigRack MCP daemon",
		logging.String(logging.FieldEventType, "daemon_starting"))
	b.Console.Info("Starting BigRack MCP daemon")

	err := b.start(ctx)
	if err == nil {
		logger.Info("daemon ready",
			logging.String(logging.FieldEventType, "daemon_ready"))
		b.Console.Success("BigRack MCP daemon started and ready")
		return OutcomeReady
	}

	reason := failureReason(err)
	logger.Error("daemon startup failed",
		logging.Error(err),
		logging.String("reason", reason),
		logging.String(logging.FieldEventType, "daemon_start_failed"),
		logging.String(logging.FieldErrorHint, "check the daemon log and configuration, then run 'bigrack start' again"))
	b.Console.Failure("failed to start daemon: %s", reason)
	exit(1)
	return OutcomeFailed
}

// start shields the bootstrap from panics inside Start; a panicking
// lifecycle object is reported as a failed attempt, not a crash.
func (b *Bootstrap) start(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("daemon start panicked: %v", r)
		}
	}()
	return b.Server.Start(ctx)
}

// failureReason always yields a non-empty, human-readable description.
func failureReason(err error) string {
	if err == nil {
		return fallbackReason
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(fmt.Sprintf("%v", err)); msg != "" {
		return msg
	}
	return fallbackReason
}
