// Package settings persists user preferences such as the last chosen target language.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"horse.fit/pagetrans/internal/db"
	"horse.fit/pagetrans/internal/language"
)

const KeyLastTargetLang = "lastTargetLang"

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// settingsQueries is the part of *db.Pool the postgres store needs.
type settingsQueries interface {
	GetSetting(ctx context.Context, key string) (string, error)
	UpsertSetting(ctx context.Context, key, value string) error
}

// DBStore keeps settings in pagetrans.settings.
type DBStore struct {
	queries settingsQueries
}

func NewDBStore(queries settingsQueries) *DBStore {
	return &DBStore{queries: queries}
}

func (s *DBStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.queries.GetSetting(ctx, key)
	if errors.Is(err, db.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *DBStore) Set(ctx context.Context, key, value string) error {
	return s.queries.UpsertSetting(ctx, key, value)
}

// LastTargetLang reads the persisted target language, or fallback when none
// is stored or the stored value is unusable.
func LastTargetLang(ctx context.Context, store Store, fallback string) (string, error) {
	if store == nil {
		return fallback, nil
	}
	raw, ok, err := store.Get(ctx, KeyLastTargetLang)
	if err != nil {
		return fallback, fmt.Errorf("load %s: %w", KeyLastTargetLang, err)
	}
	if !ok {
		return fallback, nil
	}
	resolved, err := language.Resolve(raw)
	if err != nil || resolved == language.Auto {
		return fallback, nil
	}
	return resolved, nil
}

// SaveLastTargetLang validates and stores lang.
func SaveLastTargetLang(ctx context.Context, store Store, lang string) (string, error) {
	resolved, err := language.Resolve(lang)
	if err != nil {
		return "", err
	}
	if resolved == language.Auto {
		return "", fmt.Errorf("target language cannot be %q", language.Auto)
	}
	if err := store.Set(ctx, KeyLastTargetLang, resolved); err != nil {
		return "", fmt.Errorf("save %s: %w", KeyLastTargetLang, err)
	}
	return resolved, nil
}
