// Package panel models the floating popup used to translate a selection or
// manually entered text.
package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"horse.fit/pagetrans/internal/dom"
	"horse.fit/pagetrans/internal/geometry"
	"horse.fit/pagetrans/internal/language"
)

const (
	LoadingText    = "translating..."
	FailedText     = "translation failed, please retry"
	EmptyInputText = "please enter text to translate"
)

var (
	ErrNothingToCopy = errors.New("no translation to copy")
	ErrNoSource      = errors.New("panel has no source text")
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusEmpty   Status = "empty"
)

type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

type Clipboard interface {
	WriteText(text string) error
}

// View is a snapshot of the panel for rendering.
type View struct {
	Visible    bool           `json:"visible"`
	Position   geometry.Point `json:"position"`
	Size       geometry.Size  `json:"size"`
	Original   string         `json:"original"`
	Result     string         `json:"result"`
	Message    string         `json:"message,omitempty"`
	Status     Status         `json:"status"`
	TargetLang string         `json:"target_lang"`
}

type Options struct {
	Padding    float64
	Size       geometry.Size
	TargetLang string
	// OnTargetChange is called whenever the user picks a different target language.
	OnTargetChange func(lang string)
}

// Request identifies one translation started by the panel. A newer request
// supersedes older ones.
type Request struct {
	seq    uint64
	text   string
	target string
}

type Panel struct {
	mu         sync.Mutex
	translator Translator
	opts       Options
	logger     zerolog.Logger

	view View
	seq  uint64
}

func New(translator Translator, opts Options, logger zerolog.Logger) *Panel {
	if opts.Padding <= 0 {
		opts.Padding = geometry.DefaultPanelPadding
	}
	if opts.Size.Width <= 0 || opts.Size.Height <= 0 {
		opts.Size = geometry.DefaultPanelSize
	}
	target := language.NormalizeCode(opts.TargetLang)
	if target == "" {
		target = "zh"
	}
	return &Panel{
		translator: translator,
		opts:       opts,
		logger:     logger,
		view: View{
			Size:       opts.Size,
			Status:     StatusIdle,
			TargetLang: target,
		},
	}
}

// Show places the panel at anchor and displays text with a loading
// placeholder. The caller completes the request with Fetch.
func (p *Panel) Show(text string, anchor geometry.Point, vp geometry.Viewport) (Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.view.Visible = true
	p.view.Position = geometry.PlacePanel(anchor, p.opts.Size, vp, p.opts.Padding)
	return p.startLocked(text)
}

func (p *Panel) startLocked(text string) (Request, bool) {
	p.seq++
	trimmed := strings.TrimSpace(text)
	p.view.Original = trimmed
	p.view.Result = ""
	if trimmed == "" {
		p.view.Status = StatusEmpty
		p.view.Message = EmptyInputText
		return Request{seq: p.seq}, false
	}
	p.view.Status = StatusLoading
	p.view.Message = LoadingText
	return Request{seq: p.seq, text: trimmed, target: p.view.TargetLang}, true
}

// Fetch runs req through the translator and records the outcome unless a
// newer request has started meanwhile.
func (p *Panel) Fetch(ctx context.Context, req Request) View {
	if req.text == "" {
		return p.View()
	}
	result, err := p.translator.Translate(ctx, req.text, language.Auto, req.target)

	p.mu.Lock()
	defer p.mu.Unlock()
	if req.seq != p.seq {
		return p.view
	}
	if err != nil {
		p.logger.Warn().Err(err).Str("target_lang", req.target).Msg("panel translation failed")
		p.view.Status = StatusFailed
		p.view.Message = FailedText
		return p.view
	}
	p.view.Status = StatusDone
	p.view.Result = result
	p.view.Message = ""
	return p.view
}

// Open is Show followed by Fetch.
func (p *Panel) Open(ctx context.Context, text string, anchor geometry.Point, vp geometry.Viewport) View {
	req, ok := p.Show(text, anchor, vp)
	if !ok {
		return p.View()
	}
	return p.Fetch(ctx, req)
}

// Manual translates text typed into the panel under lang without moving it.
func (p *Panel) Manual(ctx context.Context, text, lang string) (View, error) {
	p.mu.Lock()
	if err := p.setTargetLocked(lang); err != nil {
		p.mu.Unlock()
		return View{}, err
	}
	p.view.Visible = true
	req, ok := p.startLocked(text)
	p.mu.Unlock()
	if !ok {
		return p.View(), nil
	}
	return p.Fetch(ctx, req), nil
}

// Retranslate repeats the current source text under lang.
func (p *Panel) Retranslate(ctx context.Context, lang string) (View, error) {
	p.mu.Lock()
	if p.view.Original == "" {
		p.mu.Unlock()
		return View{}, ErrNoSource
	}
	if err := p.setTargetLocked(lang); err != nil {
		p.mu.Unlock()
		return View{}, err
	}
	req, _ := p.startLocked(p.view.Original)
	p.mu.Unlock()
	return p.Fetch(ctx, req), nil
}

func (p *Panel) setTargetLocked(lang string) error {
	if strings.TrimSpace(lang) == "" {
		return nil
	}
	resolved, err := language.Resolve(lang)
	if err != nil || resolved == language.Auto {
		return fmt.Errorf("invalid target language %q", lang)
	}
	if resolved == p.view.TargetLang {
		return nil
	}
	p.view.TargetLang = resolved
	if p.opts.OnTargetChange != nil {
		p.opts.OnTargetChange(resolved)
	}
	return nil
}

// SetTargetLang changes the default target without translating.
func (p *Panel) SetTargetLang(lang string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setTargetLocked(lang)
}

// Copy writes the current result to clip and returns it.
func (p *Panel) Copy(clip Clipboard) (string, error) {
	p.mu.Lock()
	result := p.view.Result
	done := p.view.Status == StatusDone
	p.mu.Unlock()

	if !done || result == "" {
		return "", ErrNothingToCopy
	}
	if clip != nil {
		if err := clip.WriteText(result); err != nil {
			return "", fmt.Errorf("copy translation: %w", err)
		}
	}
	return result, nil
}

func (p *Panel) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.Visible = false
}

// HandlePointerDown hides the panel on any press outside it.
func (p *Panel) HandlePointerDown(insidePanel bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if insidePanel || !p.view.Visible {
		return false
	}
	p.view.Visible = false
	return true
}

func (p *Panel) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Render builds the panel markup for the current view.
func (p *Panel) Render() (string, error) {
	view := p.View()
	root := dom.NewElement("div",
		dom.ClassAttr(dom.ClassPanel),
		html.Attribute{Key: "data-status", Val: string(view.Status)},
		html.Attribute{Key: "style", Val: fmt.Sprintf("left:%gpx;top:%gpx;width:%gpx;display:%s",
			view.Position.X, view.Position.Y, view.Size.Width, displayValue(view.Visible))},
	)
	root.AppendChild(section("translate-panel-original", view.Original))
	body := view.Result
	if view.Status != StatusDone {
		body = view.Message
	}
	root.AppendChild(section("translate-panel-result", body))

	closeButton := dom.NewElement("button", dom.ClassAttr("translate-panel-close"))
	closeButton.AppendChild(dom.NewText("×"))
	root.AppendChild(closeButton)
	return dom.Render(root)
}

func section(class, text string) *html.Node {
	el := dom.NewElement("div", dom.ClassAttr(class))
	el.AppendChild(dom.NewText(text))
	return el
}

func displayValue(visible bool) string {
	if visible {
		return "block"
	}
	return "none"
}
