package main

import (
	"path/filepath"
	"testing"
)

func TestCLIStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "[OK] yes")
	requireContains(t, out, "== Inventory ==")
	requireContains(t, out, "Racks")
	requireContains(t, out, "Devices")
	requireContains(t, out, env.daemon.Addr())
}

func TestCLIStatusWhenDaemonUnreachable(t *testing.T) {
	env := setupCLITestEnv(t)
	missingSocket := filepath.Join(env.baseDir, "missing.sock")

	out, _, err := runCLI(t, []string{"status"}, missingSocket, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "daemon unreachable")
	requireContains(t, out, missingSocket)
}

func TestCLIStartWhenAlreadyRunning(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Daemon already running")
}

func TestCLIStopCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon stopped")

	out, _, err = runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}
