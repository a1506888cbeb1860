package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const runColumns = "id, started_at, finished_at, status, call_budget, calls, units_processed, records, errors, blanks, skipped, budget_skipped, message"

// StartRun opens a journal entry for a run.
func (s *Store) StartRun(ctx context.Context, id string, callBudget int) error {
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, started_at, status, call_budget) VALUES (?, ?, ?, ?)`,
		id, s.timestamp(), RunRunning, callBudget,
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// RecordOutcome journals one item outcome.
func (s *Store) RecordOutcome(ctx context.Context, runID, unit, item string, outcome Outcome, reason string) error {
	_, err := s.exec(ctx,
		`INSERT INTO outcomes (run_id, unit, item, outcome, reason, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, unit, item, outcome, nullableString(reason), s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// FinishRun closes a run with its final status and totals.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, totals Totals, message string) error {
	res, err := s.exec(ctx,
		`UPDATE runs
         SET finished_at = ?, status = ?, calls = ?, units_processed = ?, records = ?,
             errors = ?, blanks = ?, skipped = ?, budget_skipped = ?, message = ?
         WHERE id = ?`,
		s.timestamp(), status, totals.Calls, totals.UnitsProcessed, totals.Records,
		totals.Errors, totals.Blanks, totals.Skipped, totals.BudgetSkipped, nullableString(message),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: no such run", id)
	}
	return nil
}

// GetRun fetches one run. It returns nil when the run does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
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
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// OutcomeCounts returns a count of a run's journaled outcomes grouped by kind.
func (s *Store) OutcomeCounts(ctx context.Context, runID string) (map[Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(1) FROM outcomes WHERE run_id = ? GROUP BY outcome`, runID)
	if err != nil {
		return nil, fmt.Errorf("outcome counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Outcome]int)
	for rows.Next() {
		var outcome Outcome
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		counts[outcome] = count
	}
	return counts, rows.Err()
}

// ResetStuckRuns marks runs left open by a crash as interrupted and returns
// how many were changed.
func (s *Store) ResetStuckRuns(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, message = ? WHERE status = ?`,
		RunInterrupted, s.timestamp(), "process exited before the run finished", RunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		status      string
		message     sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&startedRaw,
		&finishedRaw,
		&status,
		&run.CallBudget,
		&run.Totals.Calls,
		&run.Totals.UnitsProcessed,
		&run.Totals.Records,
		&run.Totals.Errors,
		&run.Totals.Blanks,
		&run.Totals.Skipped,
		&run.Totals.BudgetSkipped,
		&message,
	); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.Message = message.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}
