package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// StartRun inserts a run row. Status defaults to RunActive.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.Status == "" {
		run.Status = RunActive
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, topic, output_dir, scene_count, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, nullableString(run.Topic), nullableString(run.OutputDir), run.SceneCount, run.Status, formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the final status and, when set, the assembled video path.
func (s *Store) FinishRun(ctx context.Context, runID, status, videoPath string) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, video_path = COALESCE(?, video_path) WHERE id = ?`,
		status, formatTime(s.now()), nullableString(videoPath), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: not found", runID)
	}
	return nil
}

// GetRun fetches one run. A missing run returns (nil, nil).
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Runs lists the most recent runs first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

const runColumns = "id, topic, output_dir, scene_count, status, started_at, finished_at, video_path"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run       Run
		topic     sql.NullString
		outputDir sql.NullString
		started   sql.NullString
		finished  sql.NullString
		video     sql.NullString
	)
	if err := scanner.Scan(&run.ID, &topic, &outputDir, &run.SceneCount, &run.Status, &started, &finished, &video); err != nil {
		return nil, err
	}
	run.Topic = topic.String
	run.OutputDir = outputDir.String
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.VideoPath = video.String
	return &run, nil
}
