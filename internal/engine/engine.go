// Package engine hosts one document and runs page and selection translation
// against it. Every tree mutation happens under the engine lock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"horse.fit/pagetrans/internal/batch"
	"horse.fit/pagetrans/internal/dom"
	"horse.fit/pagetrans/internal/geometry"
	"horse.fit/pagetrans/internal/globaltime"
	"horse.fit/pagetrans/internal/langdetect"
	"horse.fit/pagetrans/internal/language"
	"horse.fit/pagetrans/internal/overlay"
	"horse.fit/pagetrans/internal/panel"
	"horse.fit/pagetrans/internal/selector"
	"horse.fit/pagetrans/internal/session"
	"horse.fit/pagetrans/internal/settings"
)

// DefaultViewport is assumed when a message carries no viewport.
var DefaultViewport = geometry.Viewport{Width: 1280, Height: 800}

// Translator is what the engine needs from the translation client.
type Translator interface {
	batch.Translator
}

type Options struct {
	Mode       overlay.Mode
	SourceLang string
	TargetLang string

	Selector selector.Options

	BatchSize          int
	BatchDelay         time.Duration
	MaxConcurrent      int
	SkipTargetLanguage bool

	HoverHideDelay time.Duration
	PanelPadding   float64
	TranslateTitle bool

	Scheduler globaltime.Scheduler
	Settings  settings.Store
	Recorder  RunRecorder
}

// PageResult answers a page-translate request.
type PageResult struct {
	Accepted   bool          `json:"accepted"`
	State      session.State `json:"-"`
	StateName  string        `json:"state"`
	Units      int           `json:"units"`
	Generation uint64        `json:"generation"`
}

type Engine struct {
	mu sync.Mutex

	id       string
	doc      *html.Node
	root     *html.Node
	index    *dom.Index
	session  *session.Session
	renderer overlay.Renderer
	hover    *overlay.HoverRenderer
	inline   *overlay.InlineRenderer
	panel    *panel.Panel

	client Translator
	opts   Options
	logger zerolog.Logger

	notices      []Notice
	restoreBtn   *html.Node
	stateMarked  bool
	prevState    string
	hadPrevState bool
	hovered      *html.Node
	lastStats    batch.Stats
	lastStarted  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wraps doc. The overlay mode is fixed for the lifetime of the engine.
func New(id string, doc *html.Node, client Translator, opts Options, logger zerolog.Logger) (*Engine, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	if client == nil {
		return nil, fmt.Errorf("translator is nil")
	}
	mode, err := overlay.ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	opts.Mode = mode
	if opts.SourceLang == "" {
		opts.SourceLang = language.Auto
	}
	target, err := language.Resolve(opts.TargetLang)
	if err != nil || target == language.Auto {
		return nil, fmt.Errorf("invalid target language %q", opts.TargetLang)
	}
	opts.TargetLang = target

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		id:      id,
		doc:     doc,
		root:    dom.Body(doc),
		index:   dom.NewIndex(doc),
		session: session.New(),
		client:  client,
		opts:    opts,
		logger:  logger.With().Str("doc_id", id).Str("mode", string(mode)).Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}

	switch mode {
	case overlay.ModeInline:
		e.inline = overlay.NewInlineRenderer()
		e.renderer = e.inline
	default:
		tip := overlay.NewTipController(&e.mu, e, e.translatable, overlay.TipOptions{
			HideDelay: opts.HoverHideDelay,
			Scheduler: opts.Scheduler,
		})
		e.hover = overlay.NewHoverRenderer(tip)
		e.renderer = e.hover
	}
	return e, nil
}

func (e *Engine) ID() string {
	return e.id
}

func (e *Engine) Mode() overlay.Mode {
	return e.opts.Mode
}

func (e *Engine) TargetLang() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.TargetLang
}

// SetTargetLang changes the language used by the next page pass.
func (e *Engine) SetTargetLang(lang string) error {
	resolved, err := language.Resolve(lang)
	if err != nil || resolved == language.Auto {
		return fmt.Errorf("invalid target language %q", lang)
	}
	e.mu.Lock()
	e.opts.TargetLang = resolved
	e.mu.Unlock()
	return nil
}

// BeginPageTranslate starts a page pass in the background. A pass that is
// already running or finished rejects the request with a notice and leaves
// the tree untouched.
func (e *Engine) BeginPageTranslate() (PageResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	gen, err := e.session.Begin()
	if err != nil {
		switch {
		case errors.Is(err, session.ErrAlreadyTranslating):
			e.noticeLocked(NoticeWarning, MsgAlreadyTranslating)
		case errors.Is(err, session.ErrAlreadyTranslated):
			e.noticeLocked(NoticeWarning, MsgAlreadyTranslated)
		}
		state := e.session.State()
		return PageResult{State: state, StateName: state.String()}, err
	}

	if err := e.renderer.Prepare(e.doc); err != nil {
		e.session.Restore()
		return PageResult{}, fmt.Errorf("prepare %s overlay: %w", e.opts.Mode, err)
	}
	e.markStateLocked(session.InProgress)

	units := selector.New(e.opts.Selector, e.session).Select(e.root).Collect()
	e.ensureRestoreButtonLocked()
	e.lastStarted = globaltime.Now()

	title := ""
	if e.inline != nil && e.opts.TranslateTitle {
		title = e.inline.Title()
	}
	target := e.opts.TargetLang

	e.logger.Info().Int("units", len(units)).Uint64("generation", gen).Str("target_lang", target).Msg("page translation started")

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(gen, units, title, target)
	}()

	return PageResult{
		Accepted:   true,
		State:      session.InProgress,
		StateName:  session.InProgress.String(),
		Units:      len(units),
		Generation: gen,
	}, nil
}

func (e *Engine) run(gen uint64, units []selector.TextUnit, title, target string) {
	opts := batch.Options{
		BatchSize:     e.opts.BatchSize,
		Delay:         e.opts.BatchDelay,
		MaxConcurrent: e.opts.MaxConcurrent,
		SourceLang:    e.opts.SourceLang,
		TargetLang:    target,
	}
	if e.opts.SkipTargetLanguage {
		opts.Detector = langdetect.Lingua{}
	}

	if title != "" {
		if translated, err := e.client.Translate(e.ctx, title, e.opts.SourceLang, target); err != nil {
			e.logger.Warn().Err(err).Msg("title left untranslated")
		} else {
			e.mu.Lock()
			if e.session.Active(gen) {
				e.inline.SetTitle(translated)
			}
			e.mu.Unlock()
		}
	}

	stats, err := batch.New(e.client, opts, e.logger).Run(e.ctx, units, e.sink(gen))
	finished := globaltime.Now()

	e.mu.Lock()
	outcome := "completed"
	e.lastStats = stats
	started := e.lastStarted
	switch {
	case err != nil:
		outcome = "cancelled"
		e.logger.Warn().Err(err).Msg("page translation stopped")
	case !e.session.Active(gen):
		outcome = "restored"
		e.logger.Info().Uint64("generation", gen).Msg("page translation finished after restore")
	default:
		if completeErr := e.session.Complete(gen); completeErr != nil {
			e.logger.Error().Err(completeErr).Msg("complete session failed")
		}
		e.markStateLocked(session.Completed)
		if e.hover != nil {
			e.noticeLocked(NoticeSuccess, MsgHoverDone)
		} else {
			e.noticeLocked(NoticeSuccess, MsgInlineDone)
		}
		e.logger.Info().
			Int("units", stats.Total).
			Int("translated", stats.Translated).
			Int("failed", stats.Failed).
			Int("batches", stats.Batches).
			Msg("page translation completed")
	}
	e.mu.Unlock()

	if e.opts.Recorder != nil {
		run := Run{
			DocumentID: e.id,
			Mode:       string(e.opts.Mode),
			TargetLang: target,
			Outcome:    outcome,
			Stats:      stats,
			StartedAt:  started,
			FinishedAt: finished,
		}
		if err := e.opts.Recorder.RecordRun(context.WithoutCancel(e.ctx), run); err != nil {
			e.logger.Warn().Err(err).Msg("record page run failed")
		}
	}
}

// sink applies results for generation gen. Late results from a restored
// session are dropped.
func (e *Engine) sink(gen uint64) batch.Sink {
	return func(res batch.Result) batch.Outcome {
		e.mu.Lock()
		defer e.mu.Unlock()

		if !e.session.Active(gen) {
			return batch.Discarded
		}
		unit := res.Unit
		if e.session.Has(unit.Node) {
			return batch.Discarded
		}
		e.session.MarkProcessed(unit.Node)
		if res.Err != nil {
			return batch.Unchanged
		}
		if !e.renderer.Apply(unit, res.Text) {
			return batch.Unchanged
		}
		if e.hover != nil {
			e.session.MarkProcessed(unit.Parent)
		}
		return batch.Applied
	}
}

// Restore undoes the current session. It reports false when there was
// nothing to undo.
func (e *Engine) Restore() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.session.Restore() {
		return false, nil
	}
	if err := e.renderer.Restore(); err != nil {
		return true, fmt.Errorf("restore %s overlay: %w", e.opts.Mode, err)
	}
	e.removeRestoreButtonLocked()
	e.unmarkStateLocked()
	if e.inline != nil {
		e.root = dom.Body(e.doc)
		e.index = dom.NewIndex(e.doc)
	}
	e.hovered = nil
	e.noticeLocked(NoticeInfo, MsgRestored)
	e.logger.Info().Msg("page restored")
	return true, nil
}

// Wait blocks until background page passes and panel fetches have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close stops launching new batches and waits for background work.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) State() session.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.State()
}

func (e *Engine) ProcessedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.ProcessedCount()
}

func (e *Engine) LastStats() batch.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastStats
}

// HTML serialises the document as it currently stands.
func (e *Engine) HTML() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return dom.Render(e.doc)
}

// markStateLocked records the session state on the <html> element so host
// scripts can read it.
func (e *Engine) markStateLocked(state session.State) {
	root := dom.FindFirst(e.doc, "html")
	if root == nil {
		return
	}
	if !e.stateMarked {
		e.prevState, e.hadPrevState = dom.Attr(root, dom.AttrSessionState)
		e.stateMarked = true
	}
	dom.SetAttr(root, dom.AttrSessionState, state.String())
}

func (e *Engine) unmarkStateLocked() {
	if !e.stateMarked {
		return
	}
	e.stateMarked = false
	root := dom.FindFirst(e.doc, "html")
	if root == nil {
		return
	}
	if e.hadPrevState {
		dom.SetAttr(root, dom.AttrSessionState, e.prevState)
		return
	}
	dom.RemoveAttr(root, dom.AttrSessionState)
}
