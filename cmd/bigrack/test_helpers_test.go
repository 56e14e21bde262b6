package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bigrack/internal/config"
	"bigrack/internal/ipc"
	"bigrack/internal/logging"
	"bigrack/internal/mcpserver"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *mcpserver.Server
	control    *ipc.Server
	socketPath string
	configPath string
	baseDir    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	defaults := config.Default()
	cfg := &defaults
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.MCP.Bind = "127.0.0.1:0"
	cfg.Logging.Format = "json"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	logger := logging.NewNop()
	daemon, err := mcpserver.New(cfg, logger)
	if err != nil {
		t.Fatalf("mcpserver.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := daemon.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	var control *ipc.Server
	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			if control != nil {
				control.Close()
			}
			daemon.Stop()
		})
	}
	control, err = ipc.NewServer(ctx, socketPath, daemon, shutdown, logger)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	control.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     daemon,
		control:    control,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    base,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		shutdown()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[mcp]\nbind = %q\n\n[logging]\nformat = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.MCP.Bind,
		cfg.Logging.Format,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
