package settings

import (
	"context"
	"errors"
	"testing"

	"horse.fit/pagetrans/internal/db"
)

type stubQueries struct {
	values map[string]string
	err    error
}

func (s *stubQueries) GetSetting(_ context.Context, key string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	value, ok := s.values[key]
	if !ok {
		return "", db.ErrNoRows
	}
	return value, nil
}

func (s *stubQueries) UpsertSetting(_ context.Context, key, value string) error {
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value
	return nil
}

func TestLastTargetLangRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for name, store := range map[string]Store{
		"memory": NewMemoryStore(),
		"db":     NewDBStore(&stubQueries{}),
	} {
		got, err := LastTargetLang(ctx, store, "zh")
		if err != nil || got != "zh" {
			t.Fatalf("%s: expected fallback zh, got %q (%v)", name, got, err)
		}
		saved, err := SaveLastTargetLang(ctx, store, "ja-JP")
		if err != nil || saved != "ja" {
			t.Fatalf("%s: save returned %q (%v)", name, saved, err)
		}
		got, err = LastTargetLang(ctx, store, "zh")
		if err != nil || got != "ja" {
			t.Fatalf("%s: expected ja, got %q (%v)", name, got, err)
		}
	}
}

func TestSaveRejectsAuto(t *testing.T) {
	t.Parallel()

	if _, err := SaveLastTargetLang(context.Background(), NewMemoryStore(), "auto"); err == nil {
		t.Fatalf("expected auto to be rejected as a target")
	}
}

func TestLastTargetLangStoreError(t *testing.T) {
	t.Parallel()

	store := NewDBStore(&stubQueries{err: errors.New("connection refused")})
	got, err := LastTargetLang(context.Background(), store, "en")
	if err == nil || got != "en" {
		t.Fatalf("expected fallback with error, got %q (%v)", got, err)
	}
}
