package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bigrack/internal/config"
	"bigrack/internal/ipc"
)

func testRunConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	defaults := config.Default()
	cfg := &defaults
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.MCP.Bind = "127.0.0.1:0"
	cfg.Logging.Format = "json"
	return cfg
}

func TestRunServesUntilCanceled(t *testing.T) {
	cfg := testRunConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, Options{}) }()

	socketPath := filepath.Join(cfg.Paths.LogDir, "bigrack.sock")
	client := dialWithRetry(t, socketPath)
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Fatal("daemon reports not running")
	}
	if status.Addr == "" {
		t.Fatal("daemon reports no listen address")
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "bigrack.pid")
	if _, err := os.Stat(pidPath); err != nil {
		t.Fatalf("pid file: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("pid file still present after shutdown: %v", err)
	}
}

func TestRunStopRequestShutsDown(t *testing.T) {
	cfg := testRunConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, Options{}) }()

	socketPath := filepath.Join(cfg.Paths.LogDir, "bigrack.sock")
	client := dialWithRetry(t, socketPath)
	defer client.Close()

	resp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !resp.Stopping {
		t.Fatal("stop request not acknowledged")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after stop request")
	}
}

func TestRunHonorsSocketPathOverride(t *testing.T) {
	cfg := testRunConfig(t)
	socketPath := filepath.Join(t.TempDir(), "override.sock")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, Options{SocketPath: socketPath}) }()

	client := dialWithRetry(t, socketPath)
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Fatal("daemon reports not running")
	}

	defaultSocket := filepath.Join(cfg.Paths.LogDir, "bigrack.sock")
	if _, err := os.Stat(defaultSocket); !os.IsNotExist(err) {
		t.Fatalf("default socket should not exist when overridden: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func dialWithRetry(t *testing.T, socketPath string) *ipc.Client {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client
		}
		if time.Now().After(deadline) {
			t.Fatalf("control socket never came up: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
