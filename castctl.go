package castctl

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/loykin/castctl/internal/advisory"
	cfg "github.com/loykin/castctl/internal/config"
	"github.com/loykin/castctl/internal/extension"
	"github.com/loykin/castctl/internal/history"
	"github.com/loykin/castctl/internal/pkgmeta"
	"github.com/loykin/castctl/internal/process"
	"github.com/loykin/castctl/internal/supervisor"
	"github.com/loykin/castctl/internal/upgrade"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type WorkerSpec = process.WorkerSpec

type Status = supervisor.Status

type ExtensionRecord = extension.Record

type Suggestion = advisory.Suggestion

type UpgradeRun = history.Run

type Config = cfg.FileConfig

// LoadConfig parses a castctl.toml file and fills derived defaults.
func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// Version reads the installed application version from the install dir's
// package manifest.
func Version(installDir string) (string, error) { return pkgmeta.Version(installDir) }

// Supervisor is a thin facade over internal/supervisor for embedding.
type Supervisor struct{ inner *supervisor.Supervisor }

func NewSupervisor(worker WorkerSpec, pidFile string, log *slog.Logger) *Supervisor {
	return &Supervisor{inner: supervisor.New(worker, pidFile, log)}
}

func (s *Supervisor) Status() Status         { return s.inner.Status() }
func (s *Supervisor) Start() (int, error)    { return s.inner.Start() }
func (s *Supervisor) Stop() (bool, error)    { return s.inner.Stop() }
func (s *Supervisor) Restart() (bool, error) { return s.inner.Restart() }
func (s *Supervisor) Build(ctx context.Context, extra ...string) error {
	return s.inner.Build(ctx, extra...)
}
func (s *Supervisor) Setup(ctx context.Context, extra ...string) error {
	return s.inner.Setup(ctx, extra...)
}
func (s *Supervisor) Reset(ctx context.Context, extra ...string) error {
	return s.inner.Reset(ctx, extra...)
}
func (s *Supervisor) ActivatePlugin(ctx context.Context, name string, extra ...string) error {
	return s.inner.ActivatePlugin(ctx, name, extra...)
}
func (s *Supervisor) ListPlugins(ctx context.Context, extra ...string) error {
	return s.inner.ListPlugins(ctx, extra...)
}
func (s *Supervisor) Migrate(ctx context.Context, extra ...string) error {
	return s.inner.Migrate(ctx, extra...)
}

// Scanner facade
type Scanner struct{ inner *extension.Scanner }

func NewScanner(installDir string) *Scanner {
	return &Scanner{inner: &extension.Scanner{InstallDir: installDir}}
}

func (s *Scanner) Classify(ctx context.Context) ([]ExtensionRecord, error) {
	return s.inner.Classify(ctx)
}
func (s *Scanner) Extraneous(ctx context.Context) (map[string]string, error) {
	return s.inner.Extraneous(ctx)
}

// Upgrader runs the full guided upgrade pipeline. The confirmation prompt
// and progress output use the process's own stdio unless SetIO overrides
// them.
type Upgrader struct{ inner *upgrade.Pipeline }

func NewUpgrader(c *Config, advisoryTimeout time.Duration, log *slog.Logger) (*Upgrader, error) {
	worker, err := c.WorkerSpec()
	if err != nil {
		return nil, err
	}
	installer := &upgrade.NPMInstaller{Bin: c.NPMBin, Dir: c.InstallDir, Stdout: os.Stdout, Stderr: os.Stderr}
	return &Upgrader{inner: &upgrade.Pipeline{
		Executor: &upgrade.Executor{
			InstallDir: c.InstallDir,
			Scanner:    &extension.Scanner{InstallDir: c.InstallDir, PackagesDir: c.PackagesDir},
			Client:     advisory.New(c.Advisory.URL, advisoryTimeout),
			Installer:  installer,
			In:         os.Stdin,
			Out:        os.Stdout,
		},
		Installer: installer,
		Worker:    worker,
		Log:       log,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}}, nil
}

// SetIO redirects the prompt and all upgrade output, for embedders that own
// the terminal.
func (u *Upgrader) SetIO(in io.Reader, out, errOut io.Writer) {
	u.inner.Executor.In = in
	u.inner.Executor.Out = out
	if npm, ok := u.inner.Installer.(*upgrade.NPMInstaller); ok {
		npm.Stdout = out
		npm.Stderr = errOut
	}
	u.inner.Stdin = in
	u.inner.Stdout = out
	u.inner.Stderr = errOut
}

func (u *Upgrader) Run(ctx context.Context) error { return u.inner.Run(ctx) }
