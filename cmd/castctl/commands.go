package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/loykin/castctl/internal/advisory"
	"github.com/loykin/castctl/internal/config"
	"github.com/loykin/castctl/internal/extension"
	"github.com/loykin/castctl/internal/history"
	"github.com/loykin/castctl/internal/logger"
	"github.com/loykin/castctl/internal/pkgmeta"
	"github.com/loykin/castctl/internal/supervisor"
	"github.com/loykin/castctl/internal/upgrade"
)

// Method-style handlers bound to a command struct so the cobra wiring stays
// declarative and the handlers stay testable with injected stdio.
type command struct {
	global *GlobalFlags

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newCommand(global *GlobalFlags) *command {
	return &command{
		global: global,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func (c *command) logger() *slog.Logger {
	level := slog.LevelInfo
	if c.global.Verbose {
		level = slog.LevelDebug
	}
	return logger.NewCLI(c.stderr, level)
}

func (c *command) load() (*config.FileConfig, *supervisor.Supervisor, error) {
	fc, err := config.Load(c.global.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	spec, err := fc.WorkerSpec()
	if err != nil {
		return nil, nil, err
	}
	sup := supervisor.New(spec, fc.PIDFile, c.logger())
	sup.Stdin = c.stdin
	sup.Stdout = c.stdout
	sup.Stderr = c.stderr
	return fc, sup, nil
}

func (c *command) scanner(fc *config.FileConfig) *extension.Scanner {
	return &extension.Scanner{InstallDir: fc.InstallDir, PackagesDir: fc.PackagesDir}
}

func (c *command) executor(fc *config.FileConfig) *upgrade.Executor {
	return &upgrade.Executor{
		InstallDir: fc.InstallDir,
		Scanner:    c.scanner(fc),
		Client:     advisory.New(fc.Advisory.URL, fc.Advisory.Timeout),
		Installer:  &upgrade.NPMInstaller{Bin: fc.NPMBin, Dir: fc.InstallDir, Stdout: c.stdout, Stderr: c.stderr},
		In:         c.stdin,
		Out:        c.stdout,
	}
}

// Status reports whether the worker is running; it exits zero either way.
func (c *command) Status(f StatusFlags) error {
	fc, sup, err := c.load()
	if err != nil {
		return err
	}
	version, verr := pkgmeta.Version(fc.InstallDir)
	if verr != nil {
		version = ""
	}
	printStatus(c.stdout, sup.Status(), version, f.Detailed)
	return nil
}

// Start spawns a detached worker and returns immediately.
func (c *command) Start() error {
	_, sup, err := c.load()
	if err != nil {
		return err
	}
	pid, err := sup.Start()
	if err != nil {
		return fmt.Errorf("start castd: %w", err)
	}
	_, _ = fmt.Fprintf(c.stdout, "castd started (pid %d)\n", pid)
	return nil
}

// Stop signals a graceful shutdown. A worker that is already stopped is
// reported, not treated as a failure.
func (c *command) Stop() error {
	_, sup, err := c.load()
	if err != nil {
		return err
	}
	wasRunning, err := sup.Stop()
	if err != nil {
		return fmt.Errorf("stop castd: %w", err)
	}
	if !wasRunning {
		_, _ = fmt.Fprintln(c.stdout, "castd is not running")
		return nil
	}
	_, _ = fmt.Fprintln(c.stdout, "castd stopping")
	return nil
}

// Restart delivers the in-place restart signal to a running worker.
func (c *command) Restart() error {
	_, sup, err := c.load()
	if err != nil {
		return err
	}
	wasRunning, err := sup.Restart()
	if err != nil {
		return fmt.Errorf("restart castd: %w", err)
	}
	if !wasRunning {
		_, _ = fmt.Fprintln(c.stdout, "castd is not running")
		return nil
	}
	_, _ = fmt.Fprintln(c.stdout, "castd restarting")
	return nil
}

func (c *command) Build(ctx context.Context, args []string) error {
	_, sup, err := c.load()
	if err != nil {
		return err
	}
	return sup.Build(ctx, args...)
}

func (c *command) Setup(ctx context.Context, args []string) error {
	_, sup, err := c.load()
	if err != nil {
		return err
	}
	return sup.Setup(ctx, args...)
}

func (c *command) Reset(ctx context.Context, args []string) error {
	_, sup, err := c.load()
	if err != nil {
		return err
	}
	return sup.Reset(ctx, args...)
}

func (c *command) Activate(ctx context.Context, name string, args []string) error {
	_, sup, err := c.load()
	if err != nil {
		return err
	}
	return sup.ActivatePlugin(ctx, name, args...)
}

func (c *command) Plugins(ctx context.Context, args []string) error {
	_, sup, err := c.load()
	if err != nil {
		return err
	}
	return sup.ListPlugins(ctx, args...)
}

// ExtensionsList prints the classified extension inventory.
func (c *command) ExtensionsList(ctx context.Context, f ExtensionsFlags) error {
	fc, _, err := c.load()
	if err != nil {
		return err
	}
	records, err := c.scanner(fc).Classify(ctx)
	if err != nil {
		return fmt.Errorf("scan extensions: %w", err)
	}
	if f.JSON {
		printJSON(c.stdout, records)
		return nil
	}
	printExtensions(c.stdout, records)
	return nil
}

// ExtensionsUpgrade runs the interactive extension upgrade on its own,
// outside the full pipeline.
func (c *command) ExtensionsUpgrade(ctx context.Context) error {
	fc, _, err := c.load()
	if err != nil {
		return err
	}
	_, err = c.executor(fc).Run(ctx, true)
	return err
}

// Upgrade runs the full pipeline, or just the migration when trailing args
// are supplied, or prints the audit trail with --history.
func (c *command) Upgrade(ctx context.Context, f UpgradeFlags, migrateArgs []string) error {
	fc, _, err := c.load()
	if err != nil {
		return err
	}

	log := c.logger()

	// The audit trail is additive: a broken store blocks reading history
	// back, but never blocks an upgrade.
	store, err := history.Open(fc.HistoryStore())
	if err != nil {
		if f.History {
			return fmt.Errorf("open upgrade history: %w", err)
		}
		log.Warn("upgrade history unavailable", "error", err)
	} else {
		defer func() { _ = store.Close() }()
	}

	if f.History {
		limit := f.HistoryLimit
		if limit <= 0 {
			limit = 20
		}
		runs, err := store.RecentRuns(ctx, limit)
		if err != nil {
			return fmt.Errorf("read upgrade history: %w", err)
		}
		printHistory(c.stdout, runs)
		return nil
	}

	spec, err := fc.WorkerSpec()
	if err != nil {
		return err
	}
	p := &upgrade.Pipeline{
		Executor:    c.executor(fc),
		Installer:   &upgrade.NPMInstaller{Bin: fc.NPMBin, Dir: fc.InstallDir, Stdout: c.stdout, Stderr: c.stderr},
		Worker:      spec,
		MigrateArgs: migrateArgs,
		History:     store,
		Log:         log,
		Stdin:       c.stdin,
		Stdout:      c.stdout,
		Stderr:      c.stderr,
	}
	return p.Run(ctx)
}

// Version prints the installed application version from the manifest.
func (c *command) Version() error {
	fc, _, err := c.load()
	if err != nil {
		return err
	}
	version, err := pkgmeta.Version(fc.InstallDir)
	if err != nil {
		return fmt.Errorf("read application version: %w", err)
	}
	_, _ = fmt.Fprintln(c.stdout, version)
	return nil
}
