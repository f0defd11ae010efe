//go:build !windows

package upgrade

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/loykin/castctl/internal/history"
	"github.com/loykin/castctl/internal/process"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pipelineFixture(t *testing.T, inst *fakeInstaller, advisoryBody, input, workerCmd string) *Pipeline {
	t.Helper()
	install := installFixture(t, "castd-plugin-extra", "1.2.0")
	client := advisoryServer(t, advisoryBody)
	e, _ := newExecutor(t, install, client, input, inst)
	return &Pipeline{
		Executor:  e,
		Installer: inst,
		Worker:    process.WorkerSpec{Command: workerCmd},
		Log:       quietLogger(),
	}
}

func TestPipelineRunsAllStages(t *testing.T) {
	inst := &fakeInstaller{}
	p := pipelineFixture(t, inst, `[]`, "", "true")

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if inst.refreshed != 1 {
		t.Fatalf("dependency refresh must run once, got %d", inst.refreshed)
	}
}

func TestPipelineHaltsOnFirstStage(t *testing.T) {
	wantErr := errors.New("registry unreachable")
	inst := &fakeInstaller{refreshErr: wantErr}
	// Worker command would fail loudly if stage 3 ran.
	p := pipelineFixture(t, inst, `[]`, "", "sh -c 'exit 42'")

	err := p.Run(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected stage 1 error, got %v", err)
	}
	if !strings.Contains(err.Error(), StageRefresh) {
		t.Fatalf("error must carry the failing stage label, got %v", err)
	}
	if len(inst.installed) != 0 {
		t.Fatal("stage 2 must not run after stage 1 fails")
	}
}

func TestPipelineMigrationFailureSurfaced(t *testing.T) {
	inst := &fakeInstaller{}
	p := pipelineFixture(t, inst, `[]`, "", "sh -c 'exit 7'")

	err := p.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), StageMigrate) {
		t.Fatalf("expected migration stage failure, got %v", err)
	}
}

func TestPipelineFastPathSkipsStages(t *testing.T) {
	inst := &fakeInstaller{refreshErr: errors.New("must not be called")}
	p := pipelineFixture(t, inst, `[]`, "", "true")
	p.MigrateArgs = []string{"rewards", "--dry-run"}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if inst.refreshed != 0 || len(inst.installed) != 0 {
		t.Fatal("explicit migrate args must skip stages 1 and 2")
	}
}

func TestPipelineRecordsHistory(t *testing.T) {
	store, err := history.NewSQLiteStore("")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	inst := &fakeInstaller{}
	p := pipelineFixture(t, inst, `{"package":"castd-plugin-extra","version":"1.3.0","code":"match-found"}`, "y\n", "true")
	p.History = store

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	runs, err := store.RecentRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one audit run, got %v err=%v", runs, err)
	}
	run := runs[0]
	if run.Outcome != history.OutcomeCompleted {
		t.Fatalf("unexpected outcome %q", run.Outcome)
	}
	if len(run.Changes) != 1 || run.Changes[0].To != "1.3.0" {
		t.Fatalf("expected applied change in audit, got %+v", run.Changes)
	}
}

func TestPipelineRecordsDecline(t *testing.T) {
	store, err := history.NewSQLiteStore("")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	inst := &fakeInstaller{}
	p := pipelineFixture(t, inst, `{"package":"castd-plugin-extra","version":"1.3.0","code":"match-found"}`, "n\n", "true")
	p.History = store

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("decline must not fail the pipeline: %v", err)
	}
	runs, _ := store.RecentRuns(context.Background(), 1)
	if len(runs) != 1 || runs[0].Outcome != history.OutcomeDeclined {
		t.Fatalf("expected declined outcome, got %v", runs)
	}
	if len(runs[0].Changes) != 0 {
		t.Fatalf("declined run must record no changes, got %v", runs[0].Changes)
	}
}

func TestPipelineRecordsFailedStage(t *testing.T) {
	store, err := history.NewSQLiteStore("")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	inst := &fakeInstaller{refreshErr: errors.New("boom")}
	p := pipelineFixture(t, inst, `[]`, "", "true")
	p.History = store

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	runs, _ := store.RecentRuns(context.Background(), 1)
	if len(runs) != 1 || runs[0].FailedStage != StageRefresh {
		t.Fatalf("expected failed stage in audit, got %v", runs)
	}
}
