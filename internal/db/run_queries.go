package db

import (
	"context"
	"fmt"
	"time"
)

// InsertPageRunParams describes one finished page pass.
type InsertPageRunParams struct {
	RunUUID    string
	DocumentID string
	Mode       string
	TargetLang string
	Outcome    string
	Units      int
	Translated int
	Cached     int
	Failed     int
	Batches    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// PageRunRow is one page_runs listing row.
type PageRunRow struct {
	RunUUID    string
	DocumentID string
	Mode       string
	TargetLang string
	Outcome    string
	Units      int
	Translated int
	Failed     int
	StartedAt  time.Time
	FinishedAt *time.Time
}

func (p *Pool) InsertPageRun(ctx context.Context, row InsertPageRunParams) error {
	const q = `
INSERT INTO pagetrans.page_runs (
	run_uuid, document_id, mode, target_lang, outcome,
	units, translated, cached, failed, batches, started_at, finished_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	_, err := p.Exec(ctx, q,
		row.RunUUID,
		row.DocumentID,
		row.Mode,
		row.TargetLang,
		row.Outcome,
		row.Units,
		row.Translated,
		row.Cached,
		row.Failed,
		row.Batches,
		row.StartedAt.UTC(),
		row.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert page run: %w", err)
	}
	return nil
}

// ListRecentPageRuns returns the newest runs first.
func (p *Pool) ListRecentPageRuns(ctx context.Context, limit int) ([]PageRunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT run_uuid::text, document_id::text, mode, target_lang, outcome,
	units, translated, failed, started_at, finished_at
FROM pagetrans.page_runs
ORDER BY started_at DESC
LIMIT ?
`
	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list page runs: %w", err)
	}
	defer rows.Close()

	out := make([]PageRunRow, 0, limit)
	for rows.Next() {
		var row PageRunRow
		if err := rows.Scan(
			&row.RunUUID,
			&row.DocumentID,
			&row.Mode,
			&row.TargetLang,
			&row.Outcome,
			&row.Units,
			&row.Translated,
			&row.Failed,
			&row.StartedAt,
			&row.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan page run: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page runs: %w", err)
	}
	return out, nil
}

func (p *Pool) CountPageRuns(ctx context.Context) (int64, error) {
	var count int64
	if err := p.QueryRow(ctx, `SELECT count(*) FROM pagetrans.page_runs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count page runs: %w", err)
	}
	return count, nil
}
