package history

import (
	"context"
	"fmt"
	"time"
)

// Outcome of one upgrade pipeline run.
const (
	OutcomeCompleted = "completed"
	OutcomeDeclined  = "declined"
	OutcomeFailed    = "failed"
)

// Change records one applied extension version change.
type Change struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Run is the audit record of one upgrade pipeline invocation.
type Run struct {
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Outcome     string    `json:"outcome"`
	FailedStage string    `json:"failed_stage,omitempty"`
	Error       string    `json:"error,omitempty"`
	Changes     []Change  `json:"changes,omitempty"`
}

// Store persists upgrade runs. Implementations must be safe for concurrent
// use. Recording is best-effort for callers: a failed write never aborts an
// upgrade.
type Store interface {
	RecordRun(ctx context.Context, r Run) error
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// Config selects and configures the audit backend.
type Config struct {
	Type string `mapstructure:"type"` // "sqlite" (default) or "postgres"
	Path string `mapstructure:"path"` // sqlite database file
	DSN  string `mapstructure:"dsn"`  // postgres connection string
}

// Open builds the configured store. An empty type defaults to sqlite.
func Open(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "postgres", "postgresql":
		return NewPostgresStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported history store type: %s", cfg.Type)
	}
}
