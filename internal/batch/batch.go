// Package batch drives page text units through a translator in fixed-size,
// strictly ordered batches.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/pagetrans/internal/globaltime"
	"horse.fit/pagetrans/internal/langdetect"
	"horse.fit/pagetrans/internal/selector"
	"horse.fit/pagetrans/internal/translation"
)

const (
	DefaultBatchSize     = 15
	DefaultDelay         = 100 * time.Millisecond
	DefaultMaxConcurrent = 15
)

// Translator resolves text through the cache and, on a miss, the provider.
type Translator interface {
	Lookup(text, targetLang string) (string, bool)
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Result carries either Text or Err for one unit.
type Result struct {
	Unit   selector.TextUnit
	Text   string
	Err    error
	Cached bool
}

type Outcome int

const (
	Applied Outcome = iota
	Unchanged
	Discarded
)

// Sink receives results as they settle. It may be called from several
// goroutines at once.
type Sink func(Result) Outcome

type Hooks struct {
	BatchStarted func(index, size int)
	BatchSettled func(index int, stats Stats)
}

type Options struct {
	BatchSize     int
	Delay         time.Duration
	MaxConcurrent int
	SourceLang    string
	TargetLang    string
	// Detector, when set, skips units already written in TargetLang.
	Detector langdetect.Detector
	Hooks    Hooks
	Sleep    func(ctx context.Context, d time.Duration) error
}

type Stats struct {
	Total      int `json:"total"`
	Translated int `json:"translated"`
	Cached     int `json:"cached"`
	Failed     int `json:"failed"`
	Unchanged  int `json:"unchanged"`
	Discarded  int `json:"discarded"`
	Skipped    int `json:"skipped"`
	Batches    int `json:"batches"`
}

type Scheduler struct {
	translator Translator
	opts       Options
	logger     zerolog.Logger
}

func New(translator Translator, opts Options, logger zerolog.Logger) *Scheduler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = opts.BatchSize
	}
	if opts.SourceLang == "" {
		opts.SourceLang = "auto"
	}
	if opts.Sleep == nil {
		opts.Sleep = globaltime.Sleep
	}
	return &Scheduler{translator: translator, opts: opts, logger: logger}
}

// Partition splits units into consecutive batches of at most size.
func Partition(units []selector.TextUnit, size int) [][]selector.TextUnit {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]selector.TextUnit, 0, (len(units)+size-1)/size)
	for start := 0; start < len(units); start += size {
		end := min(start+size, len(units))
		batches = append(batches, units[start:end])
	}
	return batches
}

// Run translates every unit. Individual failures are logged and reported to
// sink; they never stop the run. Only ctx cancellation ends it early, and
// only between batches.
func (s *Scheduler) Run(ctx context.Context, units []selector.TextUnit, sink Sink) (Stats, error) {
	if s.translator == nil {
		return Stats{}, fmt.Errorf("batch scheduler has no translator")
	}
	if sink == nil {
		sink = func(Result) Outcome { return Discarded }
	}

	var (
		mu    sync.Mutex
		stats = Stats{Total: len(units)}
	)
	record := func(res Result, outcome Outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case res.Err != nil:
			stats.Failed++
		case outcome == Discarded:
			stats.Discarded++
		case outcome == Unchanged:
			stats.Unchanged++
		default:
			stats.Translated++
			if res.Cached {
				stats.Cached++
			}
		}
	}
	deliver := func(res Result) {
		record(res, sink(res))
	}

	batches := Partition(units, s.opts.BatchSize)
	for index, batch := range batches {
		if err := ctx.Err(); err != nil {
			return s.snapshot(&mu, &stats), fmt.Errorf("run batch %d: %w", index, err)
		}
		if s.opts.Hooks.BatchStarted != nil {
			s.opts.Hooks.BatchStarted(index, len(batch))
		}
		s.logger.Debug().Int("batch", index).Int("size", len(batch)).Msg("batch started")

		var group errgroup.Group
		group.SetLimit(s.opts.MaxConcurrent)
		for _, unit := range batch {
			if langdetect.AlreadyInTarget(s.opts.Detector, unit.Text, s.opts.TargetLang) {
				mu.Lock()
				stats.Skipped++
				mu.Unlock()
				continue
			}
			if cached, ok := s.translator.Lookup(unit.Text, s.opts.TargetLang); ok {
				deliver(Result{Unit: unit, Text: cached, Cached: true})
				continue
			}
			group.Go(func() error {
				text, err := s.translator.Translate(ctx, unit.Text, s.opts.SourceLang, s.opts.TargetLang)
				if err != nil {
					unitErr := &translation.UnitTranslationError{Index: unit.Index, Text: unit.Text, Err: err}
					s.logger.Warn().Err(unitErr).Int("unit", unit.Index).Int("batch", index).Msg("unit left untranslated")
					deliver(Result{Unit: unit, Err: unitErr})
					return nil
				}
				deliver(Result{Unit: unit, Text: text})
				return nil
			})
		}
		_ = group.Wait()

		mu.Lock()
		stats.Batches++
		settled := stats
		mu.Unlock()
		if s.opts.Hooks.BatchSettled != nil {
			s.opts.Hooks.BatchSettled(index, settled)
		}

		if index == len(batches)-1 || s.opts.Delay == 0 {
			continue
		}
		if err := s.opts.Sleep(ctx, s.opts.Delay); err != nil {
			return s.snapshot(&mu, &stats), fmt.Errorf("pace after batch %d: %w", index, err)
		}
	}

	return s.snapshot(&mu, &stats), nil
}

func (s *Scheduler) snapshot(mu *sync.Mutex, stats *Stats) Stats {
	mu.Lock()
	defer mu.Unlock()
	return *stats
}
