//go:build unix

package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

// writePIDScript writes an executable that records its pid in dir/pid, prints
// body, then sleeps.
func writePIDScript(t *testing.T, dir, body string) string {
	t.Helper()
	script := filepath.Join(dir, "tunnel.sh")
	content := "#!/bin/sh\necho $$ > " + filepath.Join(dir, "pid") + "\n" + body + "\nexec sleep 30\n"
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if pid := readPID(dir); pid > 0 {
			_ = syscall.Kill(pid, syscall.SIGKILL)
		}
	})
	return script
}

func readPID(dir string) int {
	data, err := os.ReadFile(filepath.Join(dir, "pid"))
	if err != nil {
		return 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return pid
}

func waitGone(t *testing.T, dir string) {
	t.Helper()
	var pid int
	deadline := time.Now().Add(5 * time.Second)
	for pid == 0 && time.Now().Before(deadline) {
		if pid = readPID(dir); pid == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if pid == 0 {
		t.Fatal("tunnel never wrote its pid")
	}
	for time.Now().Before(deadline) {
		if err := syscall.Kill(pid, 0); errors.Is(err, syscall.ESRCH) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("tunnel process %d still running", pid)
}

func TestExecTunnelKilledWithoutURL(t *testing.T) {
	dir := t.TempDir()
	tunnel := ExecTunnel{
		Command: writePIDScript(t, dir, "echo starting"),
		Timeout: 300 * time.Millisecond,
	}

	_, err := tunnel.Open(context.Background(), "http://127.0.0.1:8188")
	if err == nil || !strings.Contains(err.Error(), "no tunnel URL") {
		t.Fatalf("Open() error = %v, want a timeout", err)
	}
	waitGone(t, dir)
}

func TestExecTunnelKilledOnCancel(t *testing.T) {
	dir := t.TempDir()
	tunnel := ExecTunnel{
		Command: writePIDScript(t, dir, "echo starting"),
		Timeout: time.Minute,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := tunnel.Open(ctx, "http://127.0.0.1:8188"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Open() error = %v, want %v", err, context.DeadlineExceeded)
	}
	waitGone(t, dir)
}

func TestExecTunnelReturnsURL(t *testing.T) {
	dir := t.TempDir()
	tunnel := ExecTunnel{
		Command: writePIDScript(t, dir, "echo '|  https://calm-lake-42.trycloudflare.com  |'"),
		Timeout: 5 * time.Second,
	}

	u, err := tunnel.Open(context.Background(), "http://127.0.0.1:8188")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if u != "https://calm-lake-42.trycloudflare.com" {
		t.Errorf("Open() = %q", u)
	}
}
