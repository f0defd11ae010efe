package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// StartDetached spawns the worker and immediately releases it: castctl may
// exit right after this returns and the worker keeps running. The spawn is
// fire-and-forget; whether the worker comes up healthy (or races another
// instance) is not verified here. The worker persists its own PID file once
// initialized.
//
// Worker output goes to plain append files resolved from the log config, or
// to the null device when no destination is configured. Rotation does not
// apply here because no castctl process stays around to drive it.
func StartDetached(s WorkerSpec) (int, error) {
	cmd := s.BuildCommand()
	applySysAttrs(cmd)
	if s.Dir != "" {
		cmd.Dir = s.Dir
	}
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}

	stdout, stderr, err := detachedOutputs(s)
	if err != nil {
		return 0, err
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawn worker: %w", err)
	}
	pid := cmd.Process.Pid
	// Disown: the worker outlives this invocation.
	_ = cmd.Process.Release()
	_ = stdout.Close()
	_ = stderr.Close()
	return pid, nil
}

func detachedOutputs(s WorkerSpec) (*os.File, *os.File, error) {
	outPath := s.Log.StdoutPath
	errPath := s.Log.StderrPath
	if outPath == "" && s.Log.Dir != "" {
		outPath = filepath.Join(s.Log.Dir, "castd.stdout.log")
	}
	if errPath == "" && s.Log.Dir != "" {
		errPath = filepath.Join(s.Log.Dir, "castd.stderr.log")
	}
	if s.Log.Dir != "" {
		if err := os.MkdirAll(s.Log.Dir, 0o750); err != nil {
			return nil, nil, err
		}
	}
	stdout, err := openAppendOrNull(outPath)
	if err != nil {
		return nil, nil, err
	}
	stderr, err := openAppendOrNull(errPath)
	if err != nil {
		_ = stdout.Close()
		return nil, nil, err
	}
	return stdout, stderr, nil
}

func openAppendOrNull(path string) (*os.File, error) {
	if path == "" {
		return os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
}

// RunOptions controls stdio of a synchronous worker invocation.
type RunOptions struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run invokes the worker with the given mode arguments and waits for it to
// exit; the returned error is exactly the worker's exit outcome.
func Run(ctx context.Context, s WorkerSpec, opt RunOptions, args ...string) error {
	built := s.BuildCommand(args...)
	cmd := exec.CommandContext(ctx, built.Path, built.Args[1:]...)
	applySysAttrs(cmd)
	if s.Dir != "" {
		cmd.Dir = s.Dir
	}
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	cmd.Stdin = opt.Stdin
	cmd.Stdout = opt.Stdout
	cmd.Stderr = opt.Stderr
	return cmd.Run()
}
