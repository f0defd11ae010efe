package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/loykin/castctl/internal/detector"
	"github.com/loykin/castctl/internal/extension"
	"github.com/loykin/castctl/internal/process"
)

// Worker mode flags. The worker's exit code is the only result castctl
// consumes from these invocations.
const (
	ModeBuild    = "--build"
	ModeSetup    = "--setup"
	ModeReset    = "--reset"
	ModeActivate = "--activate"
	ModeTheme    = "--theme"
	ModePlugins  = "--plugins"
	ModeMigrate  = "--migrate"
)

// Status is the read-only view of the managed worker.
type Status struct {
	Running    bool
	PID        int
	DetectedBy string
}

// Supervisor drives the lifecycle of the single managed castd worker.
type Supervisor struct {
	Worker   process.WorkerSpec
	Detector detector.Detector
	Log      *slog.Logger

	// stdio for synchronous worker modes; defaults to the castctl process's
	// own streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New builds a Supervisor resolving the worker through its PID file.
func New(worker process.WorkerSpec, pidFile string, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		Worker:   worker,
		Detector: detector.PIDFileDetector{PIDFile: pidFile},
		Log:      log,
	}
}

// Status probes the worker. It never fails: an unresolvable handle means
// the worker is stopped.
func (s *Supervisor) Status() Status {
	pid, err := s.Detector.Probe()
	if err != nil {
		return Status{Running: false, DetectedBy: s.Detector.Describe()}
	}
	return Status{Running: true, PID: pid, DetectedBy: s.Detector.Describe()}
}

// Start unconditionally spawns a new worker, detached from castctl's own
// lifetime, and returns its PID. It does not wait and does not verify the
// worker came up; the worker persists its own PID file once initialized.
// Starting while a worker is already running is an operator error that is
// deliberately not guarded against.
func (s *Supervisor) Start() (int, error) {
	pid, err := process.StartDetached(s.Worker)
	if err != nil {
		return 0, err
	}
	s.Log.Debug("spawned castd", "pid", pid)
	return pid, nil
}

// Stop probes the worker and delivers a graceful termination signal.
// The bool reports whether a running worker was found; a stale or missing
// handle is not an error.
func (s *Supervisor) Stop() (bool, error) {
	pid, err := s.Detector.Probe()
	if err != nil {
		if errors.Is(err, detector.ErrNotRunning) {
			return false, nil
		}
		return false, err
	}
	if err := process.Stop(pid); err != nil {
		return true, err
	}
	return true, nil
}

// Restart delivers the reload signal. The worker alone interprets it as
// "restart in place"; castctl only delivers the signal, so the PID does not
// change from this side.
func (s *Supervisor) Restart() (bool, error) {
	pid, err := s.Detector.Probe()
	if err != nil {
		if errors.Is(err, detector.ErrNotRunning) {
			return false, nil
		}
		return false, err
	}
	if err := process.Reload(pid); err != nil {
		return true, err
	}
	return true, nil
}

// Build runs the worker's asset build synchronously.
func (s *Supervisor) Build(ctx context.Context, extra ...string) error {
	return s.runMode(ctx, ModeBuild, extra)
}

// Setup runs the worker's first-run setup synchronously.
func (s *Supervisor) Setup(ctx context.Context, extra ...string) error {
	return s.runMode(ctx, ModeSetup, extra)
}

// Reset runs the worker's reset mode synchronously.
func (s *Supervisor) Reset(ctx context.Context, extra ...string) error {
	return s.runMode(ctx, ModeReset, extra)
}

// ActivatePlugin activates the named extension. Theme packages are routed
// through reset with a theme selection instead of plugin activation.
func (s *Supervisor) ActivatePlugin(ctx context.Context, name string, extra ...string) error {
	if extension.IsTheme(name) {
		return s.runMode(ctx, ModeReset, append([]string{ModeTheme, name}, extra...))
	}
	return s.runMode(ctx, ModeActivate, append([]string{name}, extra...))
}

// ListPlugins asks the worker to print its known plugins.
func (s *Supervisor) ListPlugins(ctx context.Context, extra ...string) error {
	return s.runMode(ctx, ModePlugins, extra)
}

// Migrate hands the schema migration to the worker and waits for it to
// exit; the returned error is exactly the migration's exit outcome.
func (s *Supervisor) Migrate(ctx context.Context, extra ...string) error {
	return s.runMode(ctx, ModeMigrate, extra)
}

// runMode invokes the worker synchronously with the mode flag plus
// pass-through args. Output is shown to the operator and, when log
// destinations are configured, teed into the rotating worker logs.
func (s *Supervisor) runMode(ctx context.Context, mode string, extra []string) error {
	stdout := s.Stdout
	stderr := s.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	outW, errW, err := s.Worker.Log.WorkerWriters()
	if err != nil {
		return err
	}
	if outW != nil {
		stdout = io.MultiWriter(stdout, outW)
		defer func() { _ = outW.Close() }()
	}
	if errW != nil {
		stderr = io.MultiWriter(stderr, errW)
		defer func() { _ = errW.Close() }()
	}

	stdin := s.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	return process.Run(ctx, s.Worker, process.RunOptions{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}, append([]string{mode}, extra...)...)
}
