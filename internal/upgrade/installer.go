package upgrade

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Installer applies package changes through the system package manager.
type Installer interface {
	// Install installs the given name@version pins in one batch operation.
	// If the batch reports success, all packages are assumed upgraded.
	Install(ctx context.Context, pinned []string) error
	// RefreshDependencies reinstalls the application's declared production
	// dependencies.
	RefreshDependencies(ctx context.Context) error
}

// NPMInstaller shells out to npm (or a compatible binary) in the install
// directory.
type NPMInstaller struct {
	Bin    string // package manager binary, default "npm"
	Dir    string // castd install directory
	Stdout io.Writer
	Stderr io.Writer
}

func (n *NPMInstaller) bin() string {
	if n.Bin != "" {
		return n.Bin
	}
	return "npm"
}

func (n *NPMInstaller) run(ctx context.Context, args ...string) error {
	// #nosec G204 -- binary and packages come from operator config and the
	// advisory flow, not untrusted input
	cmd := exec.CommandContext(ctx, n.bin(), args...)
	cmd.Dir = n.Dir
	cmd.Stdout = n.Stdout
	cmd.Stderr = n.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", n.bin(), args[0], err)
	}
	return nil
}

func (n *NPMInstaller) Install(ctx context.Context, pinned []string) error {
	return n.run(ctx, append([]string{"install"}, pinned...)...)
}

func (n *NPMInstaller) RefreshDependencies(ctx context.Context) error {
	return n.run(ctx, "install", "--omit=dev")
}
