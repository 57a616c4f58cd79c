package storage

import (
	"context"
	"time"

	"github.com/dshills/gocontext-review/pkg/types"
)

// Storage defines the interface for the run ledger
type Storage interface {
	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Result operations
	InsertResult(ctx context.Context, runID string, seq int, result types.AnalysisResult) error
	ListResults(ctx context.Context, runID string) ([]types.AnalysisResult, error)

	// Diagnostic operations
	InsertDiagnostic(ctx context.Context, runID string, seq int, diag types.Diagnostic) error
	ListDiagnostics(ctx context.Context, runID string) ([]types.Diagnostic, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCanceled  RunStatus = "canceled"
	RunFailed    RunStatus = "failed"
)

// Run records one pass of the pipeline over a project tree
type Run struct {
	ID         string    `json:"id"`
	RootPath   string    `json:"root_path"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	MaxSize    int       `json:"max_size"`
	Overlap    int       `json:"overlap"`
	Workers    int       `json:"workers"`
	Output     string    `json:"output"`
	Status     RunStatus `json:"status"`
	Documents  int       `json:"documents"`
	Segments   int       `json:"segments"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"` // Zero while running
}

// Finished reports whether the run reached a terminal status
func (r *Run) Finished() bool {
	return r.Status != RunRunning && r.Status != ""
}

// Duration returns the elapsed time of a finished run
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
