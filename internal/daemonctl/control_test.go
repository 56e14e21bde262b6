package daemonctl

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestReadPIDFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "bigrack.pid")
	if got := readPIDFile(path); got != 0 {
		t.Errorf("missing file: got %d", got)
	}

	if err := os.WriteFile(path, []byte("garbage\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	if got := readPIDFile(path); got != 0 {
		t.Errorf("garbage file: got %d", got)
	}

	if err := os.WriteFile(path, []byte(" 4321 \n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	if got := readPIDFile(path); got != 4321 {
		t.Errorf("valid file: got %d", got)
	}
}

func TestAlive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bigrack.pid")

	if Alive(path) {
		t.Error("missing pid file should report not alive")
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	if !Alive(path) {
		t.Error("current process should report alive")
	}
}

func TestStopWhenNotRunning(t *testing.T) {
	dir := t.TempDir()
	socket := filepath.Join(dir, "bigrack.sock")

	_, err := Stop(socket, filepath.Join(dir, "bigrack.pid"), time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch("  ", LaunchOptions{}); err == nil {
		t.Error("empty executable path should fail")
	}
}
