package upgrade

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/loykin/castctl/internal/history"
	"github.com/loykin/castctl/internal/process"
)

// Stage labels, also used as the failed_stage value in the audit trail.
const (
	StageRefresh = "dependency refresh"
	StageUpgrade = "extension upgrade"
	StageMigrate = "schema migration"
)

type stage struct {
	label string
	run   func(ctx context.Context) error
}

// Pipeline runs the fixed upgrade sequence: dependency refresh, extension
// upgrade, schema migration handoff. The first failing stage halts the rest;
// nothing is rolled back.
type Pipeline struct {
	Executor  *Executor
	Installer Installer
	Worker    process.WorkerSpec

	// MigrateArgs are trailing arguments passed through to the worker's
	// migration mode. When set explicitly by the operator, stages 1 and 2
	// are skipped and only the migration runs.
	MigrateArgs []string

	History history.Store // optional audit trail
	Log     *slog.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the pipeline. The returned error is the first failing
// stage's error, wrapped with the stage label.
func (p *Pipeline) Run(ctx context.Context) error {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	started := time.Now()
	var result Result

	for _, st := range p.stages(&result) {
		log.Info("running upgrade stage", "stage", st.label)
		if err := st.run(ctx); err != nil {
			p.record(ctx, log, history.Run{
				StartedAt:   started,
				FinishedAt:  time.Now(),
				Outcome:     history.OutcomeFailed,
				FailedStage: st.label,
				Error:       err.Error(),
				Changes:     appliedChanges(result),
			})
			return fmt.Errorf("%s: %w", st.label, err)
		}
	}

	outcome := history.OutcomeCompleted
	if len(result.Suggestions) > 0 && !result.Applied {
		outcome = history.OutcomeDeclined
	}
	p.record(ctx, log, history.Run{
		StartedAt:  started,
		FinishedAt: time.Now(),
		Outcome:    outcome,
		Changes:    appliedChanges(result),
	})
	return nil
}

func (p *Pipeline) stages(result *Result) []stage {
	migrate := stage{StageMigrate, func(ctx context.Context) error {
		args := append([]string{"--migrate"}, p.MigrateArgs...)
		return process.Run(ctx, p.Worker, process.RunOptions{
			Stdin:  p.Stdin,
			Stdout: p.Stdout,
			Stderr: p.Stderr,
		}, args...)
	}}

	// Explicit migration arguments are a deliberate fast path: the operator
	// asked for a targeted schema run, not a full upgrade.
	if len(p.MigrateArgs) > 0 {
		return []stage{migrate}
	}
	return []stage{
		{StageRefresh, func(ctx context.Context) error {
			return p.Installer.RefreshDependencies(ctx)
		}},
		{StageUpgrade, func(ctx context.Context) error {
			r, err := p.Executor.Run(ctx, false)
			*result = r
			return err
		}},
		migrate,
	}
}

func appliedChanges(r Result) []history.Change {
	if !r.Applied {
		return nil
	}
	changes := make([]history.Change, 0, len(r.Suggestions))
	for _, s := range r.Suggestions {
		changes = append(changes, history.Change{Name: s.Name, From: s.Current, To: s.Suggested})
	}
	return changes
}

// record writes the audit entry; failures are warnings, never fatal to the
// upgrade itself.
func (p *Pipeline) record(ctx context.Context, log *slog.Logger, run history.Run) {
	if p.History == nil {
		return
	}
	if err := p.History.RecordRun(ctx, run); err != nil {
		log.Warn("could not record upgrade history", "error", err)
	}
}
