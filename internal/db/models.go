package db

import "time"

// Setting maps pagetrans.settings.
type Setting struct {
	Key       string    `gorm:"column:key;type:text;primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Setting) TableName() string { return "pagetrans.settings" }

// PageRun maps pagetrans.page_runs, one row per finished page pass.
type PageRun struct {
	PageRunID  int64      `gorm:"column:page_run_id;primaryKey;autoIncrement"`
	RunUUID    string     `gorm:"column:run_uuid;type:uuid;not null;unique"`
	DocumentID string     `gorm:"column:document_id;type:uuid;not null"`
	Mode       string     `gorm:"column:mode;type:text;not null"`
	TargetLang string     `gorm:"column:target_lang;type:text;not null"`
	Outcome    string     `gorm:"column:outcome;type:text;not null"`
	Units      int        `gorm:"column:units;type:integer;not null;default:0"`
	Translated int        `gorm:"column:translated;type:integer;not null;default:0"`
	Cached     int        `gorm:"column:cached;type:integer;not null;default:0"`
	Failed     int        `gorm:"column:failed;type:integer;not null;default:0"`
	Batches    int        `gorm:"column:batches;type:integer;not null;default:0"`
	StartedAt  time.Time  `gorm:"column:started_at;type:timestamptz;not null"`
	FinishedAt *time.Time `gorm:"column:finished_at;type:timestamptz"`
}

func (PageRun) TableName() string { return "pagetrans.page_runs" }

func autoMigrateModels() []any {
	return []any{
		&Setting{},
		&PageRun{},
	}
}
