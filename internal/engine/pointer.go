package engine

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"

	"horse.fit/pagetrans/internal/dom"
	"horse.fit/pagetrans/internal/geometry"
	"horse.fit/pagetrans/internal/overlay"
)

// DefaultTipSize is used when the host does not measure the tip.
var DefaultTipSize = geometry.Size{Width: 240, Height: 48}

// ErrUnknownNode is returned for node ids the engine never issued.
var ErrUnknownNode = errors.New("unknown node id")

// Annotated is one translatable element as seen by a host page.
type Annotated struct {
	NodeID      int    `json:"node_id"`
	Tag         string `json:"tag"`
	Original    string `json:"original"`
	Translation string `json:"translation"`
}

// ElementUnderPointer is the hover tip's re-sample probe. It is only called
// with the engine lock held.
func (e *Engine) ElementUnderPointer() *html.Node {
	return e.hovered
}

func (e *Engine) translatable(n *html.Node) bool {
	if e.hover == nil {
		return false
	}
	_, ok := e.hover.Translatable(n)
	return ok
}

// PointerEnter reports the pointer entering node id. In hover mode it shows
// the tip for the nearest translatable element and reports whether the tip
// changed.
func (e *Engine) PointerEnter(id int, rect geometry.Rect, tipSize geometry.Size, vp geometry.Viewport) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	el, ok := e.index.Node(id)
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	e.hovered = el
	if e.hover == nil {
		return false, nil
	}
	ann, ok := e.hover.Translatable(el)
	if !ok {
		return false, nil
	}
	if tipSize.Width <= 0 || tipSize.Height <= 0 {
		tipSize = DefaultTipSize
	}
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = DefaultViewport
	}
	return e.hover.Tip().PointerEnter(ann.Element, ann.Translation, rect, tipSize, vp), nil
}

// PointerLeave reports the pointer leaving node id for related, which is
// nil when the pointer left the document.
func (e *Engine) PointerLeave(id int, related *int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	el, ok := e.index.Node(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	e.hovered = nil
	if related != nil {
		if next, ok := e.index.Node(*related); ok {
			e.hovered = next
		}
	}
	if e.hover == nil {
		return nil
	}
	if ann, ok := e.hover.Translatable(el); ok {
		e.hover.Tip().PointerLeave(ann.Element)
	}
	return nil
}

// Tip returns the hover tip on display.
func (e *Engine) Tip() (overlay.Tip, overlay.TipState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hover == nil {
		return overlay.Tip{}, overlay.TipHidden, false
	}
	tip, ok := e.hover.Tip().Current()
	return tip, e.hover.Tip().State(), ok
}

// Annotations lists translatable elements with their node ids.
func (e *Engine) Annotations() []Annotated {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hover == nil {
		return nil
	}
	anns := e.hover.Annotations()
	out := make([]Annotated, 0, len(anns))
	for _, ann := range anns {
		id := e.index.Add(ann.Element)
		out = append(out, Annotated{
			NodeID:      id,
			Tag:         ann.Element.Data,
			Original:    ann.Original,
			Translation: ann.Translation,
		})
	}
	return out
}

// NodeID returns the id of the first element matching selector.
func (e *Engine) NodeID(selector string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	el := dom.FindFirst(e.doc, selector)
	if el == nil {
		return 0, false
	}
	return e.index.Add(el), true
}
