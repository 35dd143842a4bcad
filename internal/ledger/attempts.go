package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// RecordStart inserts a running attempt and returns its id.
func (s *Store) RecordStart(ctx context.Context, attempt Attempt) (int64, error) {
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = s.now()
	}
	res, err := s.exec(ctx,
		`INSERT INTO attempts (
            run_id, asset_id, scene_id, scene_index, asset_type, provider, retry, status, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.RunID,
		attempt.AssetID,
		attempt.SceneID,
		attempt.SceneIndex,
		attempt.AssetType,
		nullableString(attempt.Provider),
		boolToInt(attempt.Retry),
		StatusRunning,
		formatTime(attempt.StartedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert attempt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// RecordFinish stamps the outcome on a running attempt.
func (s *Store) RecordFinish(ctx context.Context, id int64, finish Finish) error {
	if finish.Status == "" {
		finish.Status = StatusSucceeded
	}
	res, err := s.exec(ctx,
		`UPDATE attempts
         SET status = ?, outcome = ?, error_message = ?, bytes = ?, duration_ms = ?, finished_at = ?
         WHERE id = ?`,
		finish.Status,
		nullableString(finish.Outcome),
		nullableString(finish.ErrorMessage),
		finish.Bytes,
		finish.Duration.Milliseconds(),
		formatTime(s.now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish attempt %d: not found", id)
	}
	return nil
}

// List returns attempts matching filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Attempt, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(column, value string) {
		if value = strings.TrimSpace(value); value != "" {
			clauses = append(clauses, column+" = ?")
			args = append(args, value)
		}
	}
	add("run_id", filter.RunID)
	add("asset_id", filter.AssetID)
	add("asset_type", filter.AssetType)
	add("status", filter.Status)

	query := `SELECT ` + attemptColumns + ` FROM attempts`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, attempt)
	}
	return out, rows.Err()
}

// Summary aggregates attempts for runID.
func (s *Store) Summary(ctx context.Context, runID string) (Summary, error) {
	summary := Summary{RunID: runID, Outcomes: map[string]int{}}
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COALESCE(outcome, ''), retry, bytes FROM attempts WHERE run_id = ?`, runID)
	if err != nil {
		return summary, fmt.Errorf("summarize run: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status  string
			outcome string
			retry   int
			size    int64
		)
		if err := rows.Scan(&status, &outcome, &retry, &size); err != nil {
			return summary, fmt.Errorf("scan summary row: %w", err)
		}
		summary.Attempts++
		summary.Bytes += size
		if retry != 0 {
			summary.Retries++
		}
		switch status {
		case StatusSucceeded:
			summary.Succeeded++
		case StatusFailed:
			summary.Failed++
		default:
			summary.Running++
		}
		if outcome != "" {
			summary.Outcomes[outcome]++
		}
	}
	return summary, rows.Err()
}

const attemptColumns = "id, run_id, asset_id, scene_id, scene_index, asset_type, provider, retry, status, outcome, error_message, bytes, duration_ms, started_at, finished_at"

func scanAttempt(scanner interface{ Scan(dest ...any) error }) (Attempt, error) {
	var (
		a        Attempt
		provider sql.NullString
		retry    int
		outcome  sql.NullString
		message  sql.NullString
		millis   int64
		started  sql.NullString
		finished sql.NullString
	)
	if err := scanner.Scan(
		&a.ID, &a.RunID, &a.AssetID, &a.SceneID, &a.SceneIndex, &a.AssetType,
		&provider, &retry, &a.Status, &outcome, &message, &a.Bytes, &millis, &started, &finished,
	); err != nil {
		return Attempt{}, err
	}
	a.Provider = provider.String
	a.Retry = retry != 0
	a.Outcome = outcome.String
	a.ErrorMessage = message.String
	a.Duration = time.Duration(millis) * time.Millisecond
	a.StartedAt = parseTime(started)
	a.FinishedAt = parseTime(finished)
	return a, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
