package overlay

import (
	"slices"
	"strings"

	"golang.org/x/net/html"

	"horse.fit/pagetrans/internal/dom"
	"horse.fit/pagetrans/internal/selector"
)

// Annotation records one element marked by the hover strategy and the
// attributes it carried before.
type Annotation struct {
	Element     *html.Node
	Original    string
	Translation string
	HasHandler  bool

	prevAttr []html.Attribute
}

// HoverRenderer marks parent elements with their translation and leaves node
// identity untouched, so restore is exact.
type HoverRenderer struct {
	annotations map[*html.Node]*Annotation
	order       []*html.Node
	tip         *TipController
}

func NewHoverRenderer(tip *TipController) *HoverRenderer {
	return &HoverRenderer{
		annotations: make(map[*html.Node]*Annotation),
		tip:         tip,
	}
}

func (r *HoverRenderer) Mode() Mode {
	return ModeHover
}

func (r *HoverRenderer) Prepare(doc *html.Node) error {
	if r.tip != nil {
		r.tip.SetHost(dom.Body(doc))
	}
	return nil
}

func (r *HoverRenderer) Apply(unit selector.TextUnit, translation string) bool {
	el := unit.Parent
	if el == nil || IsNoop(unit.Text, translation) {
		return false
	}
	translation = strings.TrimSpace(translation)

	ann, exists := r.annotations[el]
	if !exists {
		ann = &Annotation{
			Element:  el,
			prevAttr: slices.Clone(el.Attr),
		}
		r.annotations[el] = ann
		r.order = append(r.order, el)
		ann.Original = unit.Text
		ann.Translation = translation
	} else {
		// Several text leaves under one element share its tip.
		ann.Original += " " + unit.Text
		ann.Translation += " " + translation
	}

	dom.SetAttr(el, dom.AttrTranslatable, "true")
	dom.SetAttr(el, dom.AttrOriginal, ann.Original)
	dom.SetAttr(el, dom.AttrTranslation, ann.Translation)
	dom.AddClass(el, dom.ClassTranslatable)
	ann.HasHandler = true
	return true
}

// Lookup returns the annotation for el, if it is translatable.
func (r *HoverRenderer) Lookup(el *html.Node) (*Annotation, bool) {
	ann, ok := r.annotations[el]
	return ann, ok
}

// Translatable finds the nearest annotated element containing n.
func (r *HoverRenderer) Translatable(n *html.Node) (*Annotation, bool) {
	el := dom.Closest(n, func(candidate *html.Node) bool {
		ann, ok := r.annotations[candidate]
		return ok && ann.HasHandler
	})
	if el == nil {
		return nil, false
	}
	return r.annotations[el], true
}

// Annotations lists annotations in the order they were created.
func (r *HoverRenderer) Annotations() []Annotation {
	out := make([]Annotation, 0, len(r.order))
	for _, el := range r.order {
		out = append(out, *r.annotations[el])
	}
	return out
}

func (r *HoverRenderer) Restore() error {
	for i := len(r.order) - 1; i >= 0; i-- {
		el := r.order[i]
		ann := r.annotations[el]
		el.Attr = ann.prevAttr
		ann.HasHandler = false
	}
	clear(r.annotations)
	r.order = nil
	if r.tip != nil {
		r.tip.Reset()
	}
	return nil
}

func (r *HoverRenderer) Count() int {
	return len(r.order)
}

func (r *HoverRenderer) Tip() *TipController {
	return r.tip
}
