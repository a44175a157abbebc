package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetSetting returns the stored value for key, or ErrNoRows.
func (p *Pool) GetSetting(ctx context.Context, key string) (string, error) {
	if p == nil || p.gdb == nil {
		return "", fmt.Errorf("database pool is not initialized")
	}
	var row Setting
	err := p.gdb.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNoRows
	}
	if err != nil {
		return "", fmt.Errorf("query setting %q: %w", key, err)
	}
	return row.Value, nil
}

// UpsertSetting writes value under key.
func (p *Pool) UpsertSetting(ctx context.Context, key, value string) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	row := Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := p.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert setting %q: %w", key, err)
	}
	return nil
}
