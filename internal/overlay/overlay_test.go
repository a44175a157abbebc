package overlay

import (
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/html"

	"horse.fit/pagetrans/internal/dom"
	"horse.fit/pagetrans/internal/geometry"
	"horse.fit/pagetrans/internal/globaltime"
	"horse.fit/pagetrans/internal/selector"
)

const pageMarkup = `<html><head><title>Sample page</title></head><body><div id="main"><p class="lead">Hello world</p><p>Second paragraph <b>bold part</b></p><p>Hi</p></div></body></html>`

func parseDoc(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func render(t *testing.T, n *html.Node) string {
	t.Helper()
	out, err := dom.Render(n)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

func units(doc *html.Node) []selector.TextUnit {
	return selector.New(selector.Options{}, nil).Select(dom.Body(doc)).Collect()
}

func upper(text string) string {
	if text == "Hi" {
		return text
	}
	return strings.ToUpper(text)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	if mode, err := ParseMode(""); err != nil || mode != ModeHover {
		t.Fatalf("expected default hover mode, got %q (%v)", mode, err)
	}
	if mode, err := ParseMode(" Inline "); err != nil || mode != ModeInline {
		t.Fatalf("expected inline mode, got %q (%v)", mode, err)
	}
	if _, err := ParseMode("sidebar"); err == nil {
		t.Fatalf("expected unknown mode to fail")
	}
}

func TestHoverApplyAndExactRestore(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, pageMarkup)
	before := render(t, doc)

	var mu sync.Mutex
	renderer := NewHoverRenderer(NewTipController(&mu, nil, nil, TipOptions{Scheduler: globaltime.NewManualScheduler()}))
	if err := renderer.Prepare(doc); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	applied := 0
	for _, unit := range units(doc) {
		if renderer.Apply(unit, upper(unit.Text)) {
			applied++
		}
	}
	if applied != 3 || renderer.Count() != 3 {
		t.Fatalf("expected 3 annotations (Hi is a no-op), got applied=%d count=%d", applied, renderer.Count())
	}

	lead := dom.FindFirst(doc, "p.lead")
	if got, _ := dom.Attr(lead, dom.AttrTranslation); got != "HELLO WORLD" {
		t.Fatalf("unexpected translation attr %q", got)
	}
	if !dom.HasClass(lead, dom.ClassTranslatable) || !dom.HasClass(lead, "lead") {
		t.Fatalf("expected lead paragraph to keep its class and gain the marker")
	}
	if ann, ok := renderer.Translatable(lead.FirstChild); !ok || !ann.HasHandler {
		t.Fatalf("expected text inside lead to resolve to its annotation")
	}

	hi := dom.FindFirst(doc, "p:nth-of-type(3)")
	if dom.HasAttr(hi, dom.AttrTranslatable) {
		t.Fatalf("did not expect identical translation to be annotated")
	}

	if err := renderer.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if after := render(t, doc); after != before {
		t.Fatalf("hover restore is not exact\nbefore: %s\nafter:  %s", before, after)
	}
	if renderer.Count() != 0 {
		t.Fatalf("expected annotations to be cleared")
	}
}

func TestInlineApplyAndSnapshotRestore(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, pageMarkup)
	before := render(t, doc)

	renderer := NewInlineRenderer()
	if err := renderer.Prepare(doc); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	for _, unit := range units(doc) {
		renderer.Apply(unit, upper(unit.Text))
	}
	if !renderer.SetTitle("SAMPLE PAGE") {
		t.Fatalf("expected title to change")
	}
	if renderer.Count() != 3 {
		t.Fatalf("expected 3 replacements, got %d", renderer.Count())
	}

	translated := render(t, doc)
	if !strings.Contains(translated, `<span class="translate-pair" data-translated="true"><span class="translate-original">Hello world</span><span class="translate-translation">HELLO WORLD</span></span>`) {
		t.Fatalf("expected replacement wrapper in %s", translated)
	}
	if !strings.Contains(translated, "<title>SAMPLE PAGE</title>") {
		t.Fatalf("expected translated title in %s", translated)
	}

	wrapper := dom.FindFirst(doc, "span.translate-pair")
	unit := selector.TextUnit{Node: wrapper.FirstChild.FirstChild, Parent: wrapper.FirstChild, Text: "Hello world"}
	if renderer.Apply(unit, "AGAIN") {
		t.Fatalf("did not expect a node inside a wrapper to be replaced again")
	}

	if err := renderer.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if after := render(t, doc); after != before {
		t.Fatalf("inline restore differs\nbefore: %s\nafter:  %s", before, after)
	}
}

type fixedProbe struct {
	el *html.Node
}

func (p *fixedProbe) ElementUnderPointer() *html.Node {
	return p.el
}

func newTipFixture(t *testing.T) (*TipController, *globaltime.ManualScheduler, *fixedProbe, *html.Node, *html.Node, *sync.Mutex) {
	t.Helper()
	doc := parseDoc(t, `<body><p id="a" class="translatable-text">Alpha text</p><p id="b">Plain text</p></body>`)
	sched := globaltime.NewManualScheduler()
	probe := &fixedProbe{}
	mu := &sync.Mutex{}
	tip := NewTipController(mu, probe, func(n *html.Node) bool {
		return dom.Closest(n, func(el *html.Node) bool { return dom.HasClass(el, dom.ClassTranslatable) }) != nil
	}, TipOptions{Scheduler: sched})
	tip.SetHost(dom.Body(doc))
	return tip, sched, probe, dom.FindFirst(doc, "#a"), dom.FindFirst(doc, "#b"), mu
}

var (
	tipAnchor = geometry.Rect{Left: 100, Top: 200, Width: 120, Height: 20}
	tipSize   = geometry.Size{Width: 80, Height: 30}
	tipVP     = geometry.Viewport{Width: 800, Height: 600}
)

func TestTipShowsAboveAndIgnoresIdenticalContent(t *testing.T) {
	t.Parallel()

	tip, _, _, a, _, _ := newTipFixture(t)
	if !tip.PointerEnter(a, "ALPHA", tipAnchor, tipSize, tipVP) {
		t.Fatalf("expected first show to change the tip")
	}
	current, ok := tip.Current()
	if !ok || current.Text != "ALPHA" || current.Placement.Below {
		t.Fatalf("unexpected tip %+v", current)
	}
	if current.Placement.Top != 158 || current.Placement.Left != 120 {
		t.Fatalf("expected tip centred above anchor, got %+v", current.Placement)
	}
	if tip.PointerEnter(a, "ALPHA", tipAnchor, tipSize, tipVP) {
		t.Fatalf("expected identical content to be a no-op")
	}
	if tip.State() != TipShown {
		t.Fatalf("expected shown state, got %s", tip.State())
	}
}

func TestTipHideCancelledWhenPointerStillOnTranslatable(t *testing.T) {
	t.Parallel()

	tip, sched, probe, a, _, _ := newTipFixture(t)
	tip.PointerEnter(a, "ALPHA", tipAnchor, tipSize, tipVP)
	tip.PointerLeave(a)
	if tip.State() != TipPendingHide {
		t.Fatalf("expected pending hide, got %s", tip.State())
	}

	probe.el = a.FirstChild
	sched.Advance(DefaultHideDelay)
	if tip.State() != TipShown {
		t.Fatalf("expected re-sample to keep the tip, got %s", tip.State())
	}
}

func TestTipHidesAfterGraceAndFade(t *testing.T) {
	t.Parallel()

	tip, sched, probe, a, b, _ := newTipFixture(t)
	tip.PointerEnter(a, "ALPHA", tipAnchor, tipSize, tipVP)
	tip.PointerLeave(a)
	probe.el = b

	sched.Advance(DefaultHideDelay - 1)
	if tip.State() != TipPendingHide {
		t.Fatalf("expected tip to survive the grace period, got %s", tip.State())
	}
	sched.Advance(1)
	if tip.State() != TipHidden {
		t.Fatalf("expected hidden tip, got %s", tip.State())
	}
	if dom.FindFirst(b.Parent, ".translate-hover-tip") == nil {
		t.Fatalf("expected tip element to linger during fade")
	}
	sched.Advance(DefaultFadeDelay)
	if dom.FindFirst(b.Parent, ".translate-hover-tip") != nil {
		t.Fatalf("expected tip element removed after fade")
	}
}

func TestTipReenterCancelsPendingHide(t *testing.T) {
	t.Parallel()

	tip, sched, _, a, _, _ := newTipFixture(t)
	tip.PointerEnter(a, "ALPHA", tipAnchor, tipSize, tipVP)
	tip.PointerLeave(a)
	tip.PointerEnter(a, "ALPHA", tipAnchor, tipSize, tipVP)
	if tip.State() != TipShown {
		t.Fatalf("expected re-enter to restore shown state, got %s", tip.State())
	}
	if fired := sched.Advance(DefaultHideDelay * 2); fired != 0 {
		t.Fatalf("expected cancelled hide timer not to fire, fired %d", fired)
	}
}

func TestTipResetRemovesContainer(t *testing.T) {
	t.Parallel()

	tip, sched, _, a, _, _ := newTipFixture(t)
	tip.PointerEnter(a, "ALPHA", tipAnchor, tipSize, tipVP)
	tip.PointerLeave(a)
	tip.Reset()

	if tip.State() != TipHidden || sched.Pending() != 0 {
		t.Fatalf("expected reset to clear state and timers, state=%s pending=%d", tip.State(), sched.Pending())
	}
	if dom.FindFirst(a.Parent, ".translate-hover-container") != nil {
		t.Fatalf("expected container to be detached")
	}
}
