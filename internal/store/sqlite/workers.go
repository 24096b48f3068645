package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lu-zhengda/contactsync/internal/domain"
)

// RecordWorkerResult inserts or replaces the completion marker for a worker.
func (s *DB) RecordWorkerResult(ctx context.Context, r *domain.WorkerResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO worker_results (run_id, account_id, pid, deleted, created, failed, error, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, account_id) DO UPDATE SET
			pid         = excluded.pid,
			deleted     = excluded.deleted,
			created     = excluded.created,
			failed      = excluded.failed,
			error       = excluded.error,
			finished_at = excluded.finished_at`,
		r.RunID, r.AccountID, r.PID, r.Deleted, r.Created, r.Failed, r.Error, toUnixMilli(r.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record worker result for %s: %w", r.AccountID, err)
	}
	return nil
}

// GetWorkerResult returns the completion marker for the account, or nil if
// the worker has not reported yet.
func (s *DB) GetWorkerResult(ctx context.Context, runID, accountID string) (*domain.WorkerResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, account_id, COALESCE(pid, 0), deleted, created, failed, COALESCE(error, ''), finished_at
		FROM worker_results WHERE run_id = ? AND account_id = ?`, runID, accountID)
	r, err := scanWorkerResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker result for %s: %w", accountID, err)
	}
	return r, nil
}

func (s *DB) ListWorkerResults(ctx context.Context, runID string) ([]domain.WorkerResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, account_id, COALESCE(pid, 0), deleted, created, failed, COALESCE(error, ''), finished_at
		FROM worker_results WHERE run_id = ? ORDER BY finished_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list worker results: %w", err)
	}
	defer rows.Close()

	var results []domain.WorkerResult
	for rows.Next() {
		r, err := scanWorkerResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker result: %w", err)
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkerResult(sc scanner) (*domain.WorkerResult, error) {
	var (
		r        domain.WorkerResult
		finished int64
	)
	if err := sc.Scan(&r.RunID, &r.AccountID, &r.PID, &r.Deleted, &r.Created, &r.Failed, &r.Error, &finished); err != nil {
		return nil, err
	}
	r.FinishedAt = fromUnixMilli(finished)
	return &r, nil
}
