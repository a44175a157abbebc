// Package selector finds the text leaves of a document that a page pass
// should translate.
package selector

import (
	"iter"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"horse.fit/pagetrans/internal/dom"
)

const (
	DefaultMinLen = 4
	DefaultMaxLen = 499
)

// DefaultExcludedTags never contain rendered prose.
var DefaultExcludedTags = []string{"script", "style", "code", "pre", "noscript", "textarea"}

// TextUnit is one eligible text leaf.
type TextUnit struct {
	Index  int
	Node   *html.Node
	Parent *html.Node
	Text   string
}

// Processed reports nodes already handled in the current session.
type Processed interface {
	Has(n *html.Node) bool
}

type Options struct {
	MinLen       int
	MaxLen       int
	ExcludedTags []string
}

func (o Options) withDefaults() Options {
	if o.MinLen <= 0 {
		o.MinLen = DefaultMinLen
	}
	if o.MaxLen <= 0 {
		o.MaxLen = DefaultMaxLen
	}
	if o.ExcludedTags == nil {
		o.ExcludedTags = DefaultExcludedTags
	}
	return o
}

type Selector struct {
	opts      Options
	excluded  map[string]struct{}
	processed Processed
}

func New(opts Options, processed Processed) *Selector {
	opts = opts.withDefaults()
	excluded := make(map[string]struct{}, len(opts.ExcludedTags))
	for _, tag := range opts.ExcludedTags {
		excluded[strings.ToLower(strings.TrimSpace(tag))] = struct{}{}
	}
	return &Selector{opts: opts, excluded: excluded, processed: processed}
}

// Select starts a pre-order walk of root. The returned cursor yields each
// eligible unit once and cannot be rewound.
func (s *Selector) Select(root *html.Node) *Cursor {
	c := &Cursor{sel: s}
	if root != nil {
		c.stack = []*html.Node{root}
	}
	return c
}

// Eligible reports whether the text node n should be translated and returns
// its trimmed text.
func (s *Selector) Eligible(n *html.Node) (string, bool) {
	if n == nil || n.Type != html.TextNode {
		return "", false
	}
	parent := dom.ParentElement(n)
	if parent == nil {
		return "", false
	}
	if _, skip := s.excluded[parent.Data]; skip {
		return "", false
	}
	if s.processed != nil && (s.processed.Has(parent) || s.processed.Has(n)) {
		return "", false
	}
	if dom.Closest(parent, isTranslatedOrUI) != nil {
		return "", false
	}

	text := strings.TrimSpace(n.Data)
	if !hasASCIILetter(text) {
		return "", false
	}
	length := utf8.RuneCountInString(text)
	if length < s.opts.MinLen || length > s.opts.MaxLen {
		return "", false
	}
	return text, true
}

func isTranslatedOrUI(el *html.Node) bool {
	if dom.HasAttr(el, dom.AttrTranslated) {
		return true
	}
	return slices.ContainsFunc(dom.UIClasses, func(class string) bool {
		return dom.HasClass(el, class)
	})
}

func hasASCIILetter(text string) bool {
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	return false
}

// Cursor walks the tree lazily with an explicit stack.
type Cursor struct {
	sel   *Selector
	stack []*html.Node
	next  int
}

// Next returns the following eligible unit, or false once the walk is done.
func (c *Cursor) Next() (TextUnit, bool) {
	for len(c.stack) > 0 {
		n := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]

		if n.Type == html.ElementNode {
			if _, skip := c.sel.excluded[n.Data]; skip {
				continue
			}
		}
		for child := n.LastChild; child != nil; child = child.PrevSibling {
			c.stack = append(c.stack, child)
		}

		text, ok := c.sel.Eligible(n)
		if !ok {
			continue
		}
		unit := TextUnit{Index: c.next, Node: n, Parent: dom.ParentElement(n), Text: text}
		c.next++
		return unit, true
	}
	return TextUnit{}, false
}

// All ranges over the remaining units.
func (c *Cursor) All() iter.Seq[TextUnit] {
	return func(yield func(TextUnit) bool) {
		for {
			unit, ok := c.Next()
			if !ok || !yield(unit) {
				return
			}
		}
	}
}

// Collect materialises the remaining units.
func (c *Cursor) Collect() []TextUnit {
	return slices.Collect(c.All())
}
