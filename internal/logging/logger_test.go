package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewParsesLevel(t *testing.T) {
	t.Parallel()

	logger, err := New("production", " WARN ")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", logger.GetLevel())
	}
	if _, err := New("local", "loud"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}
}

func TestNewWithWriterTagsService(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "production", "info")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info().Str("doc_id", "abc").Msg("page translated")
	out := buf.String()
	if !strings.Contains(out, `"service":"pagetrans"`) || !strings.Contains(out, `"doc_id":"abc"`) {
		t.Fatalf("unexpected log line %s", out)
	}
}
