package model

import "time"

// RunStatus represents the state of an extraction run in the history store.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary is the externally visible result of one extraction run.
type RunSummary struct {
	RunDate   time.Time `json:"run_date"`
	TablePath string    `json:"table_path"`
	Total     int       `json:"total"`
	Eligible  int       `json:"eligible"`
	Success   int       `json:"success"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Deferred  int       `json:"deferred"`
	BatchSize int       `json:"batch_size"`
	Workers   int       `json:"workers"`
	Duration  int64     `json:"duration_ms"`
}

// Run is a recorded extraction run.
type Run struct {
	ID        string      `json:"id"`
	TablePath string      `json:"table_path"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
