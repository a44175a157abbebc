package dom

import (
	"strings"
	"testing"
)

func TestClassHelpersRoundTrip(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(`<html><body><p class="lead">Hello</p></body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := FindFirst(doc, "p")
	if p == nil {
		t.Fatalf("expected <p>")
	}

	before, _ := Render(doc)
	AddClass(p, ClassTranslatable)
	if !HasClass(p, ClassTranslatable) || !HasClass(p, "lead") {
		t.Fatalf("expected both classes, got %v", p.Attr)
	}
	RemoveClass(p, ClassTranslatable)
	after, _ := Render(doc)
	if before != after {
		t.Fatalf("class round trip changed markup\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestSetAndRemoveAttr(t *testing.T) {
	t.Parallel()

	el := NewElement("div")
	SetAttr(el, AttrOriginal, "a")
	SetAttr(el, AttrOriginal, "b")
	if got, _ := Attr(el, AttrOriginal); got != "b" || len(el.Attr) != 1 {
		t.Fatalf("expected single overwritten attr, got %v", el.Attr)
	}
	if !RemoveAttr(el, AttrOriginal) {
		t.Fatalf("expected attr removal")
	}
	if RemoveAttr(el, AttrOriginal) {
		t.Fatalf("did not expect second removal to report true")
	}
}

func TestIsEngineUI(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(`<body><div class="translate-panel"><span>Panel text</span></div><p>Page</p></body>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !IsEngineUI(FindFirst(doc, "span")) {
		t.Fatalf("expected span inside panel to be engine UI")
	}
	if IsEngineUI(FindFirst(doc, "p")) {
		t.Fatalf("did not expect page paragraph to be engine UI")
	}
}

func TestInnerHTMLAndIndex(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(`<body><ul><li>One</li><li>Two</li></ul></body>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	body := Body(doc)
	inner, err := InnerHTML(body)
	if err != nil {
		t.Fatalf("inner html: %v", err)
	}
	if !strings.HasPrefix(inner, "<ul>") {
		t.Fatalf("unexpected inner html: %q", inner)
	}

	idx := NewIndex(doc)
	li := FindFirst(doc, "li")
	id, ok := idx.ID(li)
	if !ok {
		t.Fatalf("expected li to be indexed")
	}
	if got, _ := idx.Node(id); got != li {
		t.Fatalf("index lookup mismatch")
	}
	if _, ok := idx.Node(idx.Len()); ok {
		t.Fatalf("did not expect lookup past the end to succeed")
	}
}
