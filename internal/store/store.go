// Package store keeps the history of extraction runs so operators can see
// what each run did to the directory table.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = eris.New("store: run not found")

// RunFilter narrows ListRuns.
type RunFilter struct {
	Status    model.RunStatus `json:"status,omitempty"`
	TablePath string          `json:"table_path,omitempty"`
	Limit     int             `json:"limit,omitempty"`
}

// Store persists extraction run history.
type Store interface {
	CreateRun(ctx context.Context, tablePath string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	// FailRun marks a run failed. summary may be nil when the run never
	// produced one.
	FailRun(ctx context.Context, runID string, summary *model.RunSummary, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 20

func listLimit(f RunFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
