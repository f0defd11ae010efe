package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteRecordAndReadBack(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	run := Run{
		StartedAt:  started,
		FinishedAt: started.Add(40 * time.Second),
		Outcome:    OutcomeCompleted,
		Changes: []Change{
			{Name: "castd-plugin-extra", From: "1.2.0", To: "1.3.0"},
		},
	}
	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.RecordRun(ctx, Run{
		StartedAt:   started.Add(time.Hour),
		FinishedAt:  started.Add(time.Hour + time.Second),
		Outcome:     OutcomeFailed,
		FailedStage: "dependency refresh",
		Error:       "npm exited with status 1",
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	// most recent first
	if runs[0].Outcome != OutcomeFailed || runs[0].FailedStage != "dependency refresh" {
		t.Fatalf("unexpected first run: %+v", runs[0])
	}
	got := runs[1]
	if !got.StartedAt.Equal(run.StartedAt) || got.Outcome != OutcomeCompleted {
		t.Fatalf("unexpected second run: %+v", got)
	}
	if len(got.Changes) != 1 || got.Changes[0].To != "1.3.0" {
		t.Fatalf("changes not round-tripped: %+v", got.Changes)
	}
}

func TestSQLiteRecentRunsLimit(t *testing.T) {
	store, err := NewSQLiteStore("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := store.RecordRun(ctx, Run{
			StartedAt:  time.Now(),
			FinishedAt: time.Now(),
			Outcome:    OutcomeDeclined,
		}); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := store.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
}

func TestOpenUnsupportedType(t *testing.T) {
	if _, err := Open(Config{Type: "opensearch"}); err == nil {
		t.Fatal("expected error for unsupported store type")
	}
}

func TestOpenDefaultsToSQLite(t *testing.T) {
	store, err := Open(Config{})
	if err != nil {
		t.Fatalf("open default: %v", err)
	}
	if _, ok := store.(*SQLiteStore); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	_ = store.Close()
}
