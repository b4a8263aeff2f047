//go:build unix

package process

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/contre95/pew/src/reload"
)

func testSpawner(t *testing.T) *ExecSpawner {
	t.Helper()
	s := NewExecSpawner(slog.New(slog.NewTextHandler(io.Discard, nil)))
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open devnull: %v", err)
	}
	t.Cleanup(func() { devnull.Close() })
	s.stdout, s.stderr = devnull, devnull
	return s
}

func waitDone(t *testing.T, done <-chan struct{}, d time.Duration) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("process did not exit within %s", d)
	}
}

func TestSpawnMissingExecutable(t *testing.T) {
	s := testSpawner(t)
	if _, err := s.Spawn(reload.Command{Name: "pew-definitely-missing-cmd"}); err == nil {
		t.Fatal("expected spawn error for a missing executable")
	}
}

func TestExitCodeIsReported(t *testing.T) {
	s := testSpawner(t)
	p, err := s.Spawn(reload.Command{Name: "sh", Args: []string{"-c", "exit 3"}})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	waitDone(t, p.Done(), 5*time.Second)
	st := p.ExitStatus()
	if st.Code != 3 || st.Signal != "" || st.Clean() {
		t.Errorf("unexpected exit status %+v", st)
	}
}

func TestTerminateStopsProcess(t *testing.T) {
	s := testSpawner(t)
	p, err := s.Spawn(reload.Command{Name: "sleep", Args: []string{"30"}})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if err := p.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	waitDone(t, p.Done(), 5*time.Second)
	if got := p.ExitStatus().Signal; got != "SIGTERM" {
		t.Errorf("expected SIGTERM, got %q", got)
	}
	if err := p.Terminate(); err != nil {
		t.Errorf("signalling an exited process should be a no-op, got %v", err)
	}
}

func TestKillAfterIgnoredTerminate(t *testing.T) {
	s := testSpawner(t)
	ready := filepath.Join(t.TempDir(), "ready")
	script := `trap "" TERM; touch "$1"; while true; do sleep 1; done`
	p, err := s.Spawn(reload.Command{Name: "sh", Args: []string{"-c", script, "sh", ready}})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	for i := 0; i < 100; i++ {
		if _, err := os.Stat(ready); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	_ = p.Terminate()
	select {
	case <-p.Done():
		t.Fatal("process should ignore the graceful signal")
	case <-time.After(300 * time.Millisecond):
	}

	if err := p.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}
	waitDone(t, p.Done(), 5*time.Second)
	if got := p.ExitStatus().Signal; got != "SIGKILL" {
		t.Errorf("expected SIGKILL, got %q", got)
	}
}

func TestGroupMembersAreSignalled(t *testing.T) {
	s := testSpawner(t)
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	script := `sleep 30 & echo $! > "$1"; wait`
	p, err := s.Spawn(reload.Command{Name: "sh", Args: []string{"-c", script, "sh", pidFile}})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	var data []byte
	for i := 0; i < 100; i++ {
		if data, err = os.ReadFile(pidFile); err == nil && len(data) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(data) == 0 {
		t.Fatal("child pid was never written")
	}

	if err := p.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}
	waitDone(t, p.Done(), 5*time.Second)

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("parse child pid: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !gone(pid) {
		if time.Now().After(deadline) {
			t.Fatalf("grandchild %d survived the group kill", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// gone reports whether pid is dead or a zombie waiting to be reaped.
func gone(pid int) bool {
	if err := syscall.Kill(pid, 0); err != nil {
		return true
	}
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))
	return len(fields) > 0 && fields[0] == "Z"
}
