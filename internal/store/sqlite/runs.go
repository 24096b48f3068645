package sqlite

import (
	"context"
	"fmt"

	"github.com/lu-zhengda/contactsync/internal/domain"
)

func (s *DB) StartRun(ctx context.Context, run *domain.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, accounts, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Accounts, toUnixMilli(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", run.ID, err)
	}
	return nil
}

func (s *DB) FinishRun(ctx context.Context, run *domain.Run) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE id = ?`,
		toUnixMilli(run.FinishedAt), run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *DB) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, accounts, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var (
			r                 domain.Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.Accounts, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = fromUnixMilli(started)
		r.FinishedAt = fromUnixMilli(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *DB) RecordAccountEvent(ctx context.Context, ev *domain.AccountEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account_events (run_id, account_id, state, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		ev.RunID, ev.AccountID, string(ev.State), ev.Detail, toUnixMilli(ev.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s event for %s: %w", ev.State, ev.AccountID, err)
	}
	return nil
}

// ListAccountEvents returns a run's account transitions in the order recorded.
func (s *DB) ListAccountEvents(ctx context.Context, runID string) ([]domain.AccountEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, account_id, state, COALESCE(detail, ''), created_at
		 FROM account_events WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list account events: %w", err)
	}
	defer rows.Close()

	var events []domain.AccountEvent
	for rows.Next() {
		var (
			ev      domain.AccountEvent
			state   string
			created int64
		)
		if err := rows.Scan(&ev.RunID, &ev.AccountID, &state, &ev.Detail, &created); err != nil {
			return nil, fmt.Errorf("failed to scan account event: %w", err)
		}
		ev.State = domain.AccountState(state)
		ev.CreatedAt = fromUnixMilli(created)
		events = append(events, ev)
	}
	return events, rows.Err()
}
