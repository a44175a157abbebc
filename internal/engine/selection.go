package engine

import (
	"context"

	"horse.fit/pagetrans/internal/geometry"
	"horse.fit/pagetrans/internal/panel"
	"horse.fit/pagetrans/internal/settings"
)

func (e *Engine) ensurePanel() *panel.Panel {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.panel == nil {
		e.panel = panel.New(e.client, panel.Options{
			Padding:        e.opts.PanelPadding,
			TargetLang:     e.opts.TargetLang,
			OnTargetChange: e.persistTargetLang,
		}, e.logger)
	}
	return e.panel
}

// persistTargetLang runs with the panel lock held.
func (e *Engine) persistTargetLang(lang string) {
	e.mu.Lock()
	e.opts.TargetLang = lang
	e.mu.Unlock()

	if e.opts.Settings == nil {
		return
	}
	if _, err := settings.SaveLastTargetLang(e.ctx, e.opts.Settings, lang); err != nil {
		e.logger.Warn().Err(err).Str("target_lang", lang).Msg("persist target language failed")
	}
}

// BeginSelectionTranslate opens the panel at anchor showing text and a
// loading placeholder. The translation completes in the background.
func (e *Engine) BeginSelectionTranslate(text string, anchor geometry.Point, vp geometry.Viewport) panel.View {
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = DefaultViewport
	}
	p := e.ensurePanel()
	req, ok := p.Show(text, anchor, vp)
	if ok {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			p.Fetch(e.ctx, req)
		}()
	}
	return p.View()
}

// TranslateSelection is BeginSelectionTranslate that waits for the result.
func (e *Engine) TranslateSelection(ctx context.Context, text string, anchor geometry.Point, vp geometry.Viewport) panel.View {
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = DefaultViewport
	}
	return e.ensurePanel().Open(ctx, text, anchor, vp)
}

func (e *Engine) PanelRetranslate(ctx context.Context, lang string) (panel.View, error) {
	return e.ensurePanel().Retranslate(ctx, lang)
}

func (e *Engine) PanelManual(ctx context.Context, text, lang string) (panel.View, error) {
	return e.ensurePanel().Manual(ctx, text, lang)
}

// PanelCopy returns the panel result and raises a "copied" notice.
func (e *Engine) PanelCopy(clip panel.Clipboard) (string, error) {
	text, err := e.ensurePanel().Copy(clip)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	e.noticeLocked(NoticeSuccess, MsgCopied)
	e.mu.Unlock()
	return text, nil
}

func (e *Engine) PanelClose() {
	e.ensurePanel().Hide()
}

// PointerDown hides the panel on presses outside it.
func (e *Engine) PointerDown(insidePanel bool) bool {
	e.mu.Lock()
	p := e.panel
	e.mu.Unlock()
	if p == nil {
		return false
	}
	return p.HandlePointerDown(insidePanel)
}

// Panel returns the panel view and markup. ok is false before the panel was
// first opened.
func (e *Engine) Panel() (panel.View, string, bool) {
	e.mu.Lock()
	p := e.panel
	e.mu.Unlock()
	if p == nil {
		return panel.View{}, "", false
	}
	markup, err := p.Render()
	if err != nil {
		e.logger.Warn().Err(err).Msg("render panel failed")
	}
	return p.View(), markup, true
}
