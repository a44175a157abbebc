package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/pagetrans/internal/selector"
	"horse.fit/pagetrans/internal/translation"
)

type stubTranslator struct {
	mu       sync.Mutex
	cache    map[string]string
	failOn   map[string]bool
	inFlight atomic.Int64
	peak     atomic.Int64
	calls    atomic.Int64
	delay    time.Duration
}

func (s *stubTranslator) Lookup(text, _ string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.cache[text]
	return value, ok
}

func (s *stubTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	s.calls.Add(1)
	current := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if current <= peak || s.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.failOn[text] {
		return "", &translation.ProviderTransportError{Provider: "stub", StatusCode: 500}
	}
	return strings.ToUpper(text), nil
}

func makeUnits(n int) []selector.TextUnit {
	units := make([]selector.TextUnit, n)
	for i := range units {
		units[i] = selector.TextUnit{Index: i, Text: fmt.Sprintf("unit text %02d", i)}
	}
	return units
}

func TestPartition(t *testing.T) {
	t.Parallel()

	batches := Partition(makeUnits(37), 15)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	for i, want := range []int{15, 15, 7} {
		if len(batches[i]) != want {
			t.Fatalf("batch %d: expected %d units, got %d", i, want, len(batches[i]))
		}
	}
	if len(Partition(nil, 15)) != 0 {
		t.Fatalf("expected no batches for no units")
	}
}

func TestRunBatchesStrictlyInSequence(t *testing.T) {
	t.Parallel()

	translator := &stubTranslator{
		failOn: map[string]bool{"unit text 03": true},
		delay:  time.Millisecond,
	}

	var (
		eventsMu sync.Mutex
		events   []string
		sizes    []int
		sleeps   int
	)
	opts := Options{
		BatchSize:     15,
		Delay:         100 * time.Millisecond,
		MaxConcurrent: 4,
		TargetLang:    "zh",
		Sleep: func(context.Context, time.Duration) error {
			sleeps++
			return nil
		},
		Hooks: Hooks{
			BatchStarted: func(index, size int) {
				if n := translator.inFlight.Load(); n != 0 {
					t.Errorf("batch %d started with %d requests still in flight", index, n)
				}
				eventsMu.Lock()
				events = append(events, fmt.Sprintf("start %d", index))
				sizes = append(sizes, size)
				eventsMu.Unlock()
			},
			BatchSettled: func(index int, _ Stats) {
				eventsMu.Lock()
				events = append(events, fmt.Sprintf("settle %d", index))
				eventsMu.Unlock()
			},
		},
	}

	var delivered atomic.Int64
	stats, err := New(translator, opts, zerolog.Nop()).Run(context.Background(), makeUnits(37), func(res Result) Outcome {
		delivered.Add(1)
		return Applied
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	wantEvents := []string{"start 0", "settle 0", "start 1", "settle 1", "start 2", "settle 2"}
	if strings.Join(events, ",") != strings.Join(wantEvents, ",") {
		t.Fatalf("expected events %v, got %v", wantEvents, events)
	}
	if fmt.Sprint(sizes) != "[15 15 7]" {
		t.Fatalf("unexpected batch sizes %v", sizes)
	}
	if sleeps != 2 {
		t.Fatalf("expected pacing only between batches (2), got %d", sleeps)
	}
	if peak := translator.peak.Load(); peak > 4 {
		t.Fatalf("expected at most 4 concurrent requests, saw %d", peak)
	}
	if stats.Batches != 3 || stats.Failed != 1 || stats.Translated != 36 || stats.Total != 37 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if delivered.Load() != 37 {
		t.Fatalf("expected every unit delivered, got %d", delivered.Load())
	}
}

func TestRunCacheHitsSkipProvider(t *testing.T) {
	t.Parallel()

	translator := &stubTranslator{cache: map[string]string{"unit text 00": "cached"}}
	var got []Result
	var mu sync.Mutex
	stats, err := New(translator, Options{TargetLang: "fr"}, zerolog.Nop()).Run(context.Background(), makeUnits(2), func(res Result) Outcome {
		mu.Lock()
		got = append(got, res)
		mu.Unlock()
		return Applied
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if translator.calls.Load() != 1 {
		t.Fatalf("expected one provider call, got %d", translator.calls.Load())
	}
	if stats.Cached != 1 || stats.Translated != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	for _, res := range got {
		if res.Unit.Index == 0 && (!res.Cached || res.Text != "cached") {
			t.Fatalf("expected cached result for unit 0, got %+v", res)
		}
	}
}

func TestRunReportsUnitErrors(t *testing.T) {
	t.Parallel()

	translator := &stubTranslator{failOn: map[string]bool{"unit text 01": true}}
	var failed Result
	_, err := New(translator, Options{TargetLang: "de"}, zerolog.Nop()).Run(context.Background(), makeUnits(3), func(res Result) Outcome {
		if res.Err != nil {
			failed = res
		}
		return Applied
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var unitErr *translation.UnitTranslationError
	if !errors.As(failed.Err, &unitErr) || unitErr.Index != 1 {
		t.Fatalf("expected unit error for index 1, got %v", failed.Err)
	}
	if failed.Text != "" {
		t.Fatalf("expected failed result to carry no text")
	}
}

func TestRunCountsSinkOutcomes(t *testing.T) {
	t.Parallel()

	translator := &stubTranslator{}
	stats, err := New(translator, Options{TargetLang: "ja", BatchSize: 2}, zerolog.Nop()).Run(context.Background(), makeUnits(3), func(res Result) Outcome {
		switch res.Unit.Index {
		case 0:
			return Unchanged
		case 1:
			return Discarded
		default:
			return Applied
		}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Unchanged != 1 || stats.Discarded != 1 || stats.Translated != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

type langStub string

func (l langStub) DetectISO6391(string) string {
	return string(l)
}

func TestRunSkipsTextAlreadyInTarget(t *testing.T) {
	t.Parallel()

	translator := &stubTranslator{}
	stats, err := New(translator, Options{TargetLang: "en", Detector: langStub("en")}, zerolog.Nop()).Run(context.Background(), makeUnits(4), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Skipped != 4 || translator.calls.Load() != 0 {
		t.Fatalf("expected all units skipped without provider calls, got %+v calls=%d", stats, translator.calls.Load())
	}
}

func TestRunStopsBetweenBatchesOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	translator := &stubTranslator{}
	opts := Options{
		BatchSize:  2,
		TargetLang: "ko",
		Hooks: Hooks{
			BatchSettled: func(int, Stats) { cancel() },
		},
		Sleep: func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	}
	stats, err := New(translator, opts, zerolog.Nop()).Run(ctx, makeUnits(6), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if stats.Batches != 1 {
		t.Fatalf("expected only the first batch to run, got %d", stats.Batches)
	}
}
