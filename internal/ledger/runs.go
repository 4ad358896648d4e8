package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a run id has no ledger entry.
var ErrNotFound = errors.New("run not found")

const timeLayout = time.RFC3339Nano

// Record stores a run and its job outcomes in a single transaction.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("record run: empty id")
	}
	return retryOnBusy(ctx, func() error {
		return s.recordTx(ctx, run)
	})
}

func (s *Store) recordTx(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
            id, mode, started_at, finished_at, input_path, output_path, images_dir,
            records, jobs, succeeded, failed, skipped, duration_ms
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		string(run.Mode),
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.InputPath,
		run.OutputPath,
		run.ImagesDir,
		run.Records,
		run.Jobs,
		run.Succeeded,
		run.Failed,
		run.Skipped,
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(run.JobResults) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO jobs (
                run_id, record_id, kind, source_url, destination, status, attempts,
                failure_kind, http_status, error_message, bytes, duration_ms
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare job insert: %w", err)
		}
		defer stmt.Close()

		for _, job := range run.JobResults {
			if _, err := stmt.ExecContext(ctx,
				run.ID,
				job.RecordID,
				job.Kind,
				job.SourceURL,
				job.Destination,
				job.Status,
				job.Attempts,
				nullableString(job.FailureKind),
				nullableInt(job.HTTPStatus),
				nullableString(job.ErrorMessage),
				job.Bytes,
				job.Duration.Milliseconds(),
			); err != nil {
				return fmt.Errorf("insert job %s/%s: %w", job.RecordID, job.Kind, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `id, mode, started_at, finished_at, input_path, output_path, images_dir,
        records, jobs, succeeded, failed, skipped, duration_ms`

// ListRuns returns the most recent runs, newest first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun loads a run with all of its job outcomes.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT record_id, kind, source_url, destination, status,
            attempts, failure_kind, http_status, error_message, bytes, duration_ms
        FROM jobs WHERE run_id = ? ORDER BY rowid`, id)
	if err != nil {
		return Run{}, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			job         Job
			failureKind sql.NullString
			httpStatus  sql.NullInt64
			errMessage  sql.NullString
			durationMS  int64
		)
		if err := rows.Scan(
			&job.RecordID,
			&job.Kind,
			&job.SourceURL,
			&job.Destination,
			&job.Status,
			&job.Attempts,
			&failureKind,
			&httpStatus,
			&errMessage,
			&job.Bytes,
			&durationMS,
		); err != nil {
			return Run{}, fmt.Errorf("scan job: %w", err)
		}
		job.FailureKind = failureKind.String
		job.HTTPStatus = int(httpStatus.Int64)
		job.ErrorMessage = errMessage.String
		job.Duration = time.Duration(durationMS) * time.Millisecond
		run.JobResults = append(run.JobResults, job)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate jobs: %w", err)
	}
	return run, nil
}

// Prune deletes runs that started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff.UTC().Format(timeLayout))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		mode       string
		started    string
		finished   string
		durationMS int64
	)
	if err := row.Scan(
		&run.ID,
		&mode,
		&started,
		&finished,
		&run.InputPath,
		&run.OutputPath,
		&run.ImagesDir,
		&run.Records,
		&run.Jobs,
		&run.Succeeded,
		&run.Failed,
		&run.Skipped,
		&durationMS,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Mode = Mode(mode)
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullableInt(value int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(value), Valid: value != 0}
}
