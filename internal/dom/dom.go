// Package dom holds the HTML tree helpers shared by the selector, the overlay
// renderers and the engine. Trees are golang.org/x/net/html nodes; queries go
// through goquery.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Markers written into the tree by the engine.
const (
	AttrTranslated   = "data-translated"
	AttrTranslatable = "data-translatable"
	AttrOriginal     = "data-original"
	AttrTranslation  = "data-translation"
	AttrSessionState = "data-translate-state"
	AttrNodeID       = "data-translate-id"

	ClassTranslatable   = "translatable-text"
	ClassPanel          = "translate-panel"
	ClassHoverContainer = "translate-hover-container"
	ClassHoverTip       = "translate-hover-tip"
	ClassRestoreButton  = "translate-restore-btn"
	ClassToast          = "translate-toast"
	ClassPair           = "translate-pair"
	ClassPairOriginal   = "translate-original"
	ClassPairTranslated = "translate-translation"
)

// UIClasses identify subtrees owned by the engine itself.
var UIClasses = []string{ClassPanel, ClassHoverContainer, ClassRestoreButton, ClassToast}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ParseString is Parse for in-memory markup.
func ParseString(markup string) (*html.Node, error) {
	return Parse(strings.NewReader(markup))
}

// Render serializes n and its descendants.
func Render(n *html.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	markup, err := goquery.NewDocumentFromNode(n).Html()
	if err != nil {
		return "", fmt.Errorf("render inner html: %w", err)
	}
	return markup, nil
}

// Body returns the <body> element of doc, or doc itself when there is none.
func Body(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	sel := goquery.NewDocumentFromNode(doc).Find("body").First()
	if sel.Length() == 0 {
		return doc
	}
	return sel.Get(0)
}

// Title returns the <title> element of doc, if any.
func Title(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	sel := goquery.NewDocumentFromNode(doc).Find("head > title").First()
	if sel.Length() == 0 {
		return nil
	}
	return sel.Get(0)
}

// FindFirst returns the first element under root matching selector.
func FindFirst(root *html.Node, selector string) *html.Node {
	if root == nil {
		return nil
	}
	sel := goquery.NewDocumentFromNode(root).Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel.Get(0)
}

func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// ParentElement returns the nearest element ancestor of n.
func ParentElement(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// Closest walks from n up through its ancestors and returns the first element matching match.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && match(cur) {
			return cur
		}
	}
	return nil
}

// Contains reports whether descendant is root or lies under it.
func Contains(root, descendant *html.Node) bool {
	for cur := descendant; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr overwrites key in place, or appends it when absent.
func SetAttr(n *html.Node, key, val string) {
	if n == nil {
		return
	}
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes key and reports whether it was present.
func RemoveAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	before := len(n.Attr)
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
	return len(n.Attr) != before
}

func HasClass(n *html.Node, class string) bool {
	raw, ok := Attr(n, "class")
	if !ok {
		return false
	}
	return slices.Contains(strings.Fields(raw), class)
}

// AddClass appends class to the class attribute when not already present.
func AddClass(n *html.Node, class string) {
	if n == nil || HasClass(n, class) {
		return
	}
	raw, ok := Attr(n, "class")
	if !ok || strings.TrimSpace(raw) == "" {
		SetAttr(n, "class", class)
		return
	}
	SetAttr(n, "class", raw+" "+class)
}

func RemoveClass(n *html.Node, class string) {
	raw, ok := Attr(n, "class")
	if !ok {
		return
	}
	fields := slices.DeleteFunc(strings.Fields(raw), func(c string) bool { return c == class })
	SetAttr(n, "class", strings.Join(fields, " "))
}

// IsEngineUI reports whether n belongs to one of the engine's own widgets.
func IsEngineUI(n *html.Node) bool {
	return Closest(n, func(el *html.Node) bool {
		for _, class := range UIClasses {
			if HasClass(el, class) {
				return true
			}
		}
		return false
	}) != nil
}

// NewElement builds a detached element with the given tag and attributes.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// NewText builds a detached text node.
func NewText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// ClassAttr is shorthand for a class attribute.
func ClassAttr(classes ...string) html.Attribute {
	return html.Attribute{Key: "class", Val: strings.Join(classes, " ")}
}

// Detach removes n from its parent, if it has one.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// ReplaceNode swaps old for replacement at the same position.
func ReplaceNode(old, replacement *html.Node) error {
	if old == nil || old.Parent == nil {
		return fmt.Errorf("node is not attached")
	}
	parent := old.Parent
	parent.InsertBefore(replacement, old)
	parent.RemoveChild(old)
	return nil
}

// TextContent concatenates all descendant text.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	return goquery.NewDocumentFromNode(n).Text()
}
