package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/export"
)

// Run is one recorded export.
type Run struct {
	CreatedAt    time.Time
	Kind         string
	Workspace    string
	Filename     string
	Path         string
	XLSXPath     string
	FailuresPath string
	Failures     []export.Failure
	Duration     time.Duration
	ID           int64
	Rows         int
	Columns      int
	FailureCount int
	Skipped      bool
}

// RecordRun stores run and its failures in one transaction and sets run.ID.
func (s *SQLiteStorage) RecordRun(ctx context.Context, run *Run) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO export_runs
			(kind, workspace, filename, path, xlsx_path, failures_path, row_count, column_count, skipped, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Kind, run.Workspace, run.Filename, run.Path, run.XLSXPath, run.FailuresPath,
		run.Rows, run.Columns, run.Skipped, run.Duration.Milliseconds(), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert export run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get export run id: %w", err)
	}

	if len(run.Failures) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO export_failures (run_id, style_key, error) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare failure insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, f := range run.Failures {
			if _, err := stmt.ExecContext(ctx, id, f.StyleKey, f.Err); err != nil {
				return fmt.Errorf("failed to insert failure for %s: %w", f.StyleKey, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export run: %w", err)
	}

	run.ID = id
	run.FailureCount = len(run.Failures)
	return nil
}

const runColumns = `r.id, r.kind, r.workspace, r.filename, r.path, r.xlsx_path, r.failures_path,
	r.row_count, r.column_count, r.skipped, r.duration_ms, r.created_at,
	(SELECT COUNT(*) FROM export_failures f WHERE f.run_id = r.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (Run, error) {
	var (
		run        Run
		durationMs int64
	)
	err := sc.Scan(&run.ID, &run.Kind, &run.Workspace, &run.Filename, &run.Path, &run.XLSXPath,
		&run.FailuresPath, &run.Rows, &run.Columns, &run.Skipped, &durationMs, &run.CreatedAt,
		&run.FailureCount)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return run, err
}

// ListRuns returns the most recent runs first. A limit of 0 returns all runs.
// Failures are counted but not loaded.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + runColumns + ` FROM export_runs r ORDER BY r.id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a run with its failures.
func (s *SQLiteStorage) GetRun(ctx context.Context, id int64) (*Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM export_runs r WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("export run %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export run: %w", err)
	}

	failures, err := s.runFailures(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Failures = failures
	return &run, nil
}

func (s *SQLiteStorage) runFailures(ctx context.Context, runID int64) ([]export.Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT style_key, error FROM export_failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query export failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var failures []export.Failure
	for rows.Next() {
		var f export.Failure
		if err := rows.Scan(&f.StyleKey, &f.Err); err != nil {
			return nil, fmt.Errorf("failed to scan export failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// PruneRuns deletes runs recorded before cutoff, with their failures.
func (s *SQLiteStorage) PruneRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM export_runs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune export runs: %w", err)
	}
	return res.RowsAffected()
}

// NewRun describes an export of spec filename written with result res.
func NewRun(kind, workspace, filename string, res export.Result) *Run {
	return &Run{
		Kind:      kind,
		Workspace: workspace,
		Filename:  filename,
		Path:      res.Path,
		XLSXPath:  res.XLSXPath,
		Rows:      res.Rows,
		Columns:   res.Columns,
		Skipped:   res.Skipped,
	}
}
