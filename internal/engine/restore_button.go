package engine

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"horse.fit/pagetrans/internal/dom"
)

const restoreButtonLabel = "Show original"

// ensureRestoreButtonLocked adds the restore control once per session.
func (e *Engine) ensureRestoreButtonLocked() *html.Node {
	if e.restoreBtn != nil && dom.Contains(e.root, e.restoreBtn) {
		return e.restoreBtn
	}
	if existing := goquery.NewDocumentFromNode(e.root).Find("button." + dom.ClassRestoreButton).First(); existing.Length() > 0 {
		e.restoreBtn = existing.Get(0)
		return e.restoreBtn
	}

	btn := dom.NewElement("button",
		dom.ClassAttr(dom.ClassRestoreButton),
		html.Attribute{Key: "type", Val: "button"},
	)
	btn.AppendChild(dom.NewText(restoreButtonLabel))
	e.root.AppendChild(btn)
	e.index.Add(btn)
	e.restoreBtn = btn
	return btn
}

func (e *Engine) removeRestoreButtonLocked() {
	goquery.NewDocumentFromNode(e.doc).Find("button." + dom.ClassRestoreButton).Remove()
	e.restoreBtn = nil
}

// RestoreButtonID returns the node id of the restore control, if present.
func (e *Engine) RestoreButtonID() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.restoreBtn == nil {
		return 0, false
	}
	return e.index.ID(e.restoreBtn)
}
