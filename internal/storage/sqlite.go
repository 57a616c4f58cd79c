package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/gocontext-review/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// DefaultListLimit bounds ListRuns when no limit is given
const DefaultListLimit = 20

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Run operations

const runColumns = `id, root_path, provider, model, max_size, overlap, workers, output, status,
		       documents, segments, succeeded, failed, error, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var status string
	var runErr sql.NullString
	var finishedAt sql.NullTime
	err := row.Scan(
		&run.ID, &run.RootPath, &run.Provider, &run.Model, &run.MaxSize, &run.Overlap,
		&run.Workers, &run.Output, &status, &run.Documents, &run.Segments,
		&run.Succeeded, &run.Failed, &runErr, &run.StartedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	if runErr.Valid {
		run.Error = runErr.String
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return &run, nil
}

// createRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createRunWithQuerier(ctx context.Context, q querier, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	var exists int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE id = ?", run.ID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("run %s: %w", run.ID, ErrAlreadyExists)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check run: %w", err)
	}

	query := `
		INSERT INTO runs (id, root_path, provider, model, max_size, overlap, workers, output, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.ExecContext(ctx, query,
		run.ID, run.RootPath, run.Provider, run.Model, run.MaxSize, run.Overlap,
		run.Workers, run.Output, string(run.Status), run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CreateRun(ctx context.Context, run *Run) error {
	return s.createRunWithQuerier(ctx, s.querier(), run)
}

// finishRunWithQuerier records the counts and terminal status of a run
func (s *SQLiteStorage) finishRunWithQuerier(ctx context.Context, q querier, run *Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	if run.Status == "" || run.Status == RunRunning {
		run.Status = RunCompleted
	}

	var runErr sql.NullString
	if run.Error != "" {
		runErr = sql.NullString{String: run.Error, Valid: true}
	}

	query := `
		UPDATE runs
		SET status = ?, documents = ?, segments = ?, succeeded = ?, failed = ?,
		    error = ?, finished_at = ?
		WHERE id = ?
	`
	res, err := q.ExecContext(ctx, query,
		string(run.Status), run.Documents, run.Segments, run.Succeeded, run.Failed,
		runErr, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) FinishRun(ctx context.Context, run *Run) error {
	return s.finishRunWithQuerier(ctx, s.querier(), run)
}

// getRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getRunWithQuerier(ctx context.Context, q querier, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`
	run, err := scanRun(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*Run, error) {
	return s.getRunWithQuerier(ctx, s.querier(), id)
}

// listRunsWithQuerier returns the most recent runs first
func (s *SQLiteStorage) listRunsWithQuerier(ctx context.Context, q querier, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`
	rows, err := q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return s.listRunsWithQuerier(ctx, s.querier(), limit)
}

// deleteRunWithQuerier removes a run; results and diagnostics cascade
func (s *SQLiteStorage) deleteRunWithQuerier(ctx context.Context, q querier, id string) error {
	res, err := q.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	return s.deleteRunWithQuerier(ctx, s.querier(), id)
}

// Result operations

func (s *SQLiteStorage) insertResultWithQuerier(ctx context.Context, q querier, runID string, seq int, result types.AnalysisResult) error {
	if err := result.Validate(); err != nil {
		return err
	}
	query := `INSERT INTO results (run_id, seq, file_name, analysis) VALUES (?, ?, ?, ?)`
	if _, err := q.ExecContext(ctx, query, runID, seq, result.Identifier, result.Analysis); err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) InsertResult(ctx context.Context, runID string, seq int, result types.AnalysisResult) error {
	return s.insertResultWithQuerier(ctx, s.querier(), runID, seq, result)
}

func (s *SQLiteStorage) listResultsWithQuerier(ctx context.Context, q querier, runID string) ([]types.AnalysisResult, error) {
	rows, err := q.QueryContext(ctx, `SELECT file_name, analysis FROM results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	results := []types.AnalysisResult{}
	for rows.Next() {
		var r types.AnalysisResult
		if err := rows.Scan(&r.Identifier, &r.Analysis); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteStorage) ListResults(ctx context.Context, runID string) ([]types.AnalysisResult, error) {
	return s.listResultsWithQuerier(ctx, s.querier(), runID)
}

// Diagnostic operations

func (s *SQLiteStorage) insertDiagnosticWithQuerier(ctx context.Context, q querier, runID string, seq int, diag types.Diagnostic) error {
	query := `
		INSERT INTO diagnostics (run_id, seq, file_name, segment_index, kind, message)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query, runID, seq, diag.Identifier, diag.SegmentIndex, string(diag.Kind), diag.Message)
	if err != nil {
		return fmt.Errorf("failed to insert diagnostic: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) InsertDiagnostic(ctx context.Context, runID string, seq int, diag types.Diagnostic) error {
	return s.insertDiagnosticWithQuerier(ctx, s.querier(), runID, seq, diag)
}

func (s *SQLiteStorage) listDiagnosticsWithQuerier(ctx context.Context, q querier, runID string) ([]types.Diagnostic, error) {
	query := `SELECT file_name, segment_index, kind, message FROM diagnostics WHERE run_id = ? ORDER BY seq`
	rows, err := q.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnostics: %w", err)
	}
	defer rows.Close()

	diags := []types.Diagnostic{}
	for rows.Next() {
		var d types.Diagnostic
		var kind string
		if err := rows.Scan(&d.Identifier, &d.SegmentIndex, &kind, &d.Message); err != nil {
			return nil, err
		}
		d.Kind = types.DiagnosticKind(kind)
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

func (s *SQLiteStorage) ListDiagnostics(ctx context.Context, runID string) ([]types.Diagnostic, error) {
	return s.listDiagnosticsWithQuerier(ctx, s.querier(), runID)
}

// Transaction operations delegate to the storage implementation

func (t *sqliteTx) CreateRun(ctx context.Context, run *Run) error {
	return t.storage.createRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) FinishRun(ctx context.Context, run *Run) error {
	return t.storage.finishRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) GetRun(ctx context.Context, id string) (*Run, error) {
	return t.storage.getRunWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return t.storage.listRunsWithQuerier(ctx, t.querier(), limit)
}

func (t *sqliteTx) DeleteRun(ctx context.Context, id string) error {
	return t.storage.deleteRunWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) InsertResult(ctx context.Context, runID string, seq int, result types.AnalysisResult) error {
	return t.storage.insertResultWithQuerier(ctx, t.querier(), runID, seq, result)
}

func (t *sqliteTx) ListResults(ctx context.Context, runID string) ([]types.AnalysisResult, error) {
	return t.storage.listResultsWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) InsertDiagnostic(ctx context.Context, runID string, seq int, diag types.Diagnostic) error {
	return t.storage.insertDiagnosticWithQuerier(ctx, t.querier(), runID, seq, diag)
}

func (t *sqliteTx) ListDiagnostics(ctx context.Context, runID string) ([]types.Diagnostic, error) {
	return t.storage.listDiagnosticsWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}

// RecordOutcome stores the results and diagnostics of a run and marks it
// finished in one transaction
func RecordOutcome(ctx context.Context, s Storage, run *Run, results []types.AnalysisResult, diags []types.Diagnostic) (err error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, r := range results {
		if err = tx.InsertResult(ctx, run.ID, i, r); err != nil {
			return err
		}
	}
	for i, d := range diags {
		if err = tx.InsertDiagnostic(ctx, run.ID, i, d); err != nil {
			return err
		}
	}
	if err = tx.FinishRun(ctx, run); err != nil {
		return err
	}

	return tx.Commit()
}
