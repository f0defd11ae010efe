package upgrade

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/loykin/castctl/internal/advisory"
	"github.com/loykin/castctl/internal/extension"
	"github.com/loykin/castctl/internal/pkgmeta"
)

// Result summarizes one executor run for audit and pipeline reporting.
type Result struct {
	Suggestions []advisory.Suggestion
	Applied     bool
}

// Executor drives the interactive extension upgrade: scan, query the
// advisory service, confirm with the operator, apply in one batch.
type Executor struct {
	InstallDir string
	Scanner    *extension.Scanner
	Client     *advisory.Client
	Installer  Installer
	In         io.Reader // defaults to os.Stdin
	Out        io.Writer // defaults to os.Stdout
}

func (e *Executor) in() io.Reader {
	if e.In != nil {
		return e.In
	}
	return os.Stdin
}

func (e *Executor) out() io.Writer {
	if e.Out != nil {
		return e.Out
	}
	return os.Stdout
}

// Run performs one upgrade round. In standalone mode an empty candidate set
// is reported to the operator; inside the pipeline it stays quiet. Declining
// the prompt is not an error.
func (e *Executor) Run(ctx context.Context, standalone bool) (Result, error) {
	version, err := pkgmeta.Version(e.InstallDir)
	if err != nil {
		return Result{}, fmt.Errorf("read application version: %w", err)
	}
	installed, err := e.Scanner.Extraneous(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("scan extensions: %w", err)
	}
	suggestions, err := e.Client.Suggestions(ctx, version, installed)
	if err != nil {
		return Result{}, err
	}

	if len(suggestions) == 0 {
		if standalone {
			fmt.Fprintln(e.out(), "All extensions are up to date.")
		}
		return Result{}, nil
	}

	for _, s := range suggestions {
		fmt.Fprintf(e.out(), "  %s  %s -> %s\n", s.Name, s.Current, s.Suggested)
	}
	ok, err := e.confirm(len(suggestions))
	if err != nil {
		return Result{Suggestions: suggestions}, err
	}
	if !ok {
		fmt.Fprintln(e.out(), "Skipping extension upgrades.")
		return Result{Suggestions: suggestions}, nil
	}

	pinned := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		pinned = append(pinned, s.Name+"@"+s.Suggested)
	}
	if err := e.Installer.Install(ctx, pinned); err != nil {
		return Result{Suggestions: suggestions}, err
	}
	return Result{Suggestions: suggestions, Applied: true}, nil
}

// confirm asks the operator once. Only y/Y/yes/YES count as consent;
// anything else, including empty input or a closed stdin, declines.
func (e *Executor) confirm(n int) (bool, error) {
	fmt.Fprintf(e.out(), "Upgrade %d extension(s)? [y/N] ", n)
	line, err := bufio.NewReader(e.in()).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.TrimSpace(line) {
	case "y", "Y", "yes", "YES":
		return true, nil
	default:
		return false, nil
	}
}
