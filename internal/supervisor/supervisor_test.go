//go:build !windows

package supervisor

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/loykin/castctl/internal/process"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSupervisor(t *testing.T, workerCmd string, pidContent string) *Supervisor {
	t.Helper()
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "castd.pid")
	if pidContent != "" {
		if err := os.WriteFile(pidFile, []byte(pidContent), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return New(process.WorkerSpec{Command: workerCmd, Dir: dir}, pidFile, testLogger())
}

func TestStatusStoppedForMissingHandle(t *testing.T) {
	s := newTestSupervisor(t, "true", "")
	st := s.Status()
	if st.Running {
		t.Fatalf("missing handle must report stopped, got %+v", st)
	}
	if !strings.HasPrefix(st.DetectedBy, "pidfile:") {
		t.Fatalf("unexpected DetectedBy %q", st.DetectedBy)
	}
}

func TestStatusStoppedForStaleHandle(t *testing.T) {
	// PID 0 never corresponds to a live managed process.
	s := newTestSupervisor(t, "true", "0\n")
	if st := s.Status(); st.Running {
		t.Fatalf("stale handle must report stopped, got %+v", st)
	}
}

func TestStatusRunning(t *testing.T) {
	s := newTestSupervisor(t, "true", strconv.Itoa(os.Getpid()))
	st := s.Status()
	if !st.Running || st.PID != os.Getpid() {
		t.Fatalf("expected running with own pid, got %+v", st)
	}
}

func TestStopWhenNotRunning(t *testing.T) {
	s := newTestSupervisor(t, "true", "")
	wasRunning, err := s.Stop()
	if err != nil {
		t.Fatalf("stop of a stopped worker must not fail: %v", err)
	}
	if wasRunning {
		t.Fatal("expected already-stopped report")
	}
}

func TestRestartWhenNotRunning(t *testing.T) {
	s := newTestSupervisor(t, "true", "")
	wasRunning, err := s.Restart()
	if err != nil {
		t.Fatalf("restart of a stopped worker must not fail: %v", err)
	}
	if wasRunning {
		t.Fatal("expected no-running-instance report")
	}
}

func TestStartDoesNotBlock(t *testing.T) {
	s := newTestSupervisor(t, "sleep 5", "")
	begin := time.Now()
	pid, err := s.Start()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if time.Since(begin) > 2*time.Second {
		t.Fatal("start must be fire-and-forget")
	}
	_ = process.Stop(pid)
}

func TestStopSignalsRunningWorker(t *testing.T) {
	dir := t.TempDir()
	// A worker that just sleeps; we write its pidfile ourselves since the
	// real worker would do that on startup.
	s := New(process.WorkerSpec{Command: "sleep 30", Dir: dir}, filepath.Join(dir, "castd.pid"), testLogger())
	pid, err := s.Start()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "castd.pid"), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		t.Fatal(err)
	}

	wasRunning, err := s.Stop()
	if err != nil || !wasRunning {
		t.Fatalf("expected graceful stop of running worker, got wasRunning=%v err=%v", wasRunning, err)
	}
}

func TestRunModePassesFlagAndArgs(t *testing.T) {
	var out strings.Builder
	dir := t.TempDir()
	s := New(process.WorkerSpec{Command: "echo", Dir: dir}, filepath.Join(dir, "castd.pid"), testLogger())
	s.Stdout = &out
	s.Stdin = strings.NewReader("")

	if err := s.Build(context.Background(), "--verbose"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if strings.TrimSpace(out.String()) != "--build --verbose" {
		t.Fatalf("unexpected worker args: %q", out.String())
	}
}

func TestActivateRoutesThemesToReset(t *testing.T) {
	var out strings.Builder
	dir := t.TempDir()
	s := New(process.WorkerSpec{Command: "echo", Dir: dir}, filepath.Join(dir, "castd.pid"), testLogger())
	s.Stdout = &out
	s.Stdin = strings.NewReader("")

	if err := s.ActivatePlugin(context.Background(), "castd-theme-midnight"); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "--reset --theme castd-theme-midnight" {
		t.Fatalf("theme must route through reset, got %q", out.String())
	}

	out.Reset()
	if err := s.ActivatePlugin(context.Background(), "castd-plugin-clips"); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "--activate castd-plugin-clips" {
		t.Fatalf("plugin must use activate, got %q", out.String())
	}
}

func TestMigrateExitOutcome(t *testing.T) {
	dir := t.TempDir()
	s := New(process.WorkerSpec{Command: "sh -c 'exit 9'", Dir: dir}, filepath.Join(dir, "castd.pid"), testLogger())
	s.Stdout = io.Discard
	s.Stderr = io.Discard
	s.Stdin = strings.NewReader("")

	if err := s.Migrate(context.Background()); err == nil {
		t.Fatal("migration exit failure must surface")
	}
}

func TestRunModeTeesIntoWorkerLogs(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	spec := process.WorkerSpec{Command: "echo", Dir: dir}
	spec.Log.Dir = logDir
	s := New(spec, filepath.Join(dir, "castd.pid"), testLogger())
	var out strings.Builder
	s.Stdout = &out
	s.Stderr = io.Discard
	s.Stdin = strings.NewReader("")

	if err := s.ListPlugins(context.Background()); err != nil {
		t.Fatal(err)
	}
	logged, err := os.ReadFile(filepath.Join(logDir, "castd.stdout.log"))
	if err != nil {
		t.Fatalf("expected rotating log file: %v", err)
	}
	if !strings.Contains(string(logged), "--plugins") {
		t.Fatalf("worker output not teed to log: %q", string(logged))
	}
}
