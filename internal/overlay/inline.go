package overlay

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"horse.fit/pagetrans/internal/dom"
	"horse.fit/pagetrans/internal/selector"
)

// Replacement is a synthetic pair that took the place of one text node.
type Replacement struct {
	Wrapper     *html.Node
	Original    string
	Translation string
}

// InlineRenderer swaps text nodes for original+translation pairs. Node
// identity is lost, so Restore writes back a markup snapshot taken by Prepare.
// Edits made to the tree while a session is live are discarded by Restore.
type InlineRenderer struct {
	root  *html.Node
	title *html.Node

	snapshot      string
	titleSnapshot string
	titleChanged  bool
	prepared      bool

	replacements []*Replacement
}

func NewInlineRenderer() *InlineRenderer {
	return &InlineRenderer{}
}

func (r *InlineRenderer) Mode() Mode {
	return ModeInline
}

func (r *InlineRenderer) Prepare(doc *html.Node) error {
	root := dom.Body(doc)
	if root == nil {
		return fmt.Errorf("document has no root")
	}
	markup, err := goquery.NewDocumentFromNode(root).Html()
	if err != nil {
		return fmt.Errorf("snapshot document: %w", err)
	}
	r.root = root
	r.snapshot = markup
	r.title = dom.Title(doc)
	r.titleSnapshot = dom.TextContent(r.title)
	r.titleChanged = false
	r.prepared = true
	r.replacements = nil
	return nil
}

func (r *InlineRenderer) Apply(unit selector.TextUnit, translation string) bool {
	if !r.prepared || unit.Node == nil || unit.Node.Parent == nil {
		return false
	}
	if IsNoop(unit.Text, translation) {
		return false
	}
	if dom.Closest(unit.Parent, func(el *html.Node) bool { return dom.HasAttr(el, dom.AttrTranslated) }) != nil {
		return false
	}

	original := dom.NewElement("span", dom.ClassAttr(dom.ClassPairOriginal))
	original.AppendChild(dom.NewText(unit.Node.Data))
	translated := dom.NewElement("span", dom.ClassAttr(dom.ClassPairTranslated))
	translated.AppendChild(dom.NewText(translation))

	wrapper := dom.NewElement("span",
		dom.ClassAttr(dom.ClassPair),
		html.Attribute{Key: dom.AttrTranslated, Val: "true"},
	)
	wrapper.AppendChild(original)
	wrapper.AppendChild(translated)

	if err := dom.ReplaceNode(unit.Node, wrapper); err != nil {
		return false
	}
	r.replacements = append(r.replacements, &Replacement{
		Wrapper:     wrapper,
		Original:    unit.Text,
		Translation: translation,
	})
	return true
}

// SetTitle rewrites the document title; Restore puts the old one back.
func (r *InlineRenderer) SetTitle(text string) bool {
	if !r.prepared || r.title == nil || IsNoop(r.titleSnapshot, text) {
		return false
	}
	goquery.NewDocumentFromNode(r.title).SetText(text)
	r.titleChanged = true
	return true
}

// Title returns the title text captured by Prepare.
func (r *InlineRenderer) Title() string {
	return r.titleSnapshot
}

func (r *InlineRenderer) Restore() error {
	if !r.prepared {
		return nil
	}
	goquery.NewDocumentFromNode(r.root).SetHtml(r.snapshot)
	if r.titleChanged && r.title != nil {
		goquery.NewDocumentFromNode(r.title).SetText(r.titleSnapshot)
	}
	r.prepared = false
	r.titleChanged = false
	r.replacements = nil
	r.snapshot = ""
	return nil
}

func (r *InlineRenderer) Count() int {
	return len(r.replacements)
}

// Replacements lists the pairs created this session.
func (r *InlineRenderer) Replacements() []Replacement {
	out := make([]Replacement, 0, len(r.replacements))
	for _, rep := range r.replacements {
		out = append(out, *rep)
	}
	return out
}
