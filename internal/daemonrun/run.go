package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bigrack/internal/config"
	"bigrack/internal/console"
	"bigrack/internal/ipc"
	"bigrack/internal/logging"
	"bigrack/internal/mcpserver"
)

// Options tunes the daemon process beyond what the config file carries.
type Options struct {
	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
	// Development switches the daemon log to the console format.
	Development bool
	// SocketPath overrides the control socket location. Empty means
	// bigrack.sock under the configured log directory. The path must
	// match what `bigrack start` polls, so the CLI forwards its --socket
	// flag here.
	SocketPath string
}

// Run wires up and boots the daemon process, then blocks until it is
// stopped by a signal or a control-socket stop request. Startup failures
// terminate the process with exit status 1.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("daemonrun: config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath := runLogPath(cfg.Paths.LogDir, time.Now().UTC())
	logger, err := newLogger(cfg, opts, logPath)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if err := pointCurrentLog(cfg.Paths.LogDir, logPath); err != nil {
		logger.Warn("unable to update current log pointer", logging.Error(err))
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "bigrack.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	server, err := mcpserver.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = filepath.Join(cfg.Paths.LogDir, "bigrack.sock")
	}

	stack := &daemonStack{
		server:     server,
		shutdown:   cancel,
		logger:     logger,
		socketPath: socketPath,
	}

	boot := &Bootstrap{
		Logger:  logging.NewComponentLogger(logger, "daemon"),
		Console: console.New(os.Stdout),
		Server:  stack,
		Exit: func(code int) {
			// The bootstrap exits the process directly, so the deferred
			// cleanup above never runs. Release what startup acquired.
			server.Close()
			os.Remove(pidPath)
			os.Exit(code)
		},
	}
	if boot.Run(signalCtx) != OutcomeReady {
		return nil
	}

	<-signalCtx.Done()
	logger.Info("daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_stopping"))
	stack.close()
	return nil
}

// daemonStack starts the MCP listener and the control socket as one unit
// so that a failure in either surfaces as a single failed startup.
type daemonStack struct {
	server     *mcpserver.Server
	shutdown   func()
	logger     *slog.Logger
	socketPath string
	control    *ipc.Server
}

func (d *daemonStack) Start(ctx context.Context) error {
	if err := d.server.Start(ctx); err != nil {
		return err
	}
	control, err := ipc.NewServer(ctx, d.socketPath, d.server, d.shutdown, d.logger)
	if err != nil {
		d.server.Stop()
		return fmt.Errorf("start control socket: %w", err)
	}
	control.Serve()
	d.control = control
	return nil
}

func (d *daemonStack) close() {
	if d.control != nil {
		d.control.Close()
	}
	d.server.Stop()
}

func newLogger(cfg *config.Config, opts Options, logPath string) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{logPath},
		Development: opts.Development,
	})
}

func runLogPath(logDir string, now time.Time) string {
	return filepath.Join(logDir, fmt.Sprintf("bigrack-%s.log", now.Format("20060102-150405")))
}

// pointCurrentLog keeps a stable path for `bigrack status` and humans
// tailing the most recent daemon run.
func pointCurrentLog(logDir, logPath string) error {
	current := filepath.Join(logDir, "bigrack-current.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(filepath.Base(logPath), current)
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
