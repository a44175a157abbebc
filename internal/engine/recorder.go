package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"horse.fit/pagetrans/internal/batch"
	"horse.fit/pagetrans/internal/db"
)

// Run summarises one finished page pass.
type Run struct {
	DocumentID string
	Mode       string
	TargetLang string
	Outcome    string
	Stats      batch.Stats
	StartedAt  time.Time
	FinishedAt time.Time
}

type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}

type runQueries interface {
	InsertPageRun(ctx context.Context, row db.InsertPageRunParams) error
}

// DBRecorder writes runs to pagetrans.page_runs.
type DBRecorder struct {
	queries runQueries
}

func NewDBRecorder(queries runQueries) *DBRecorder {
	return &DBRecorder{queries: queries}
}

func (r *DBRecorder) RecordRun(ctx context.Context, run Run) error {
	return r.queries.InsertPageRun(ctx, db.InsertPageRunParams{
		RunUUID:    uuid.NewString(),
		DocumentID: run.DocumentID,
		Mode:       run.Mode,
		TargetLang: run.TargetLang,
		Outcome:    run.Outcome,
		Units:      run.Stats.Total,
		Translated: run.Stats.Translated,
		Cached:     run.Stats.Cached,
		Failed:     run.Stats.Failed,
		Batches:    run.Stats.Batches,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	})
}
