package overlay

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/html"

	"horse.fit/pagetrans/internal/dom"
	"horse.fit/pagetrans/internal/geometry"
	"horse.fit/pagetrans/internal/globaltime"
)

const (
	DefaultHideDelay = 150 * time.Millisecond
	DefaultFadeDelay = 100 * time.Millisecond
)

type TipState int

const (
	TipHidden TipState = iota
	TipPendingShow
	TipShown
	TipPendingHide
)

func (s TipState) String() string {
	switch s {
	case TipHidden:
		return "hidden"
	case TipPendingShow:
		return "pending_show"
	case TipShown:
		return "shown"
	case TipPendingHide:
		return "pending_hide"
	default:
		return fmt.Sprintf("tip_state(%d)", int(s))
	}
}

var tipTransitions = map[TipState][]TipState{
	TipHidden:      {TipPendingShow},
	TipPendingShow: {TipShown},
	TipShown:       {TipPendingShow, TipPendingHide},
	TipPendingHide: {TipPendingShow, TipShown, TipHidden},
}

// Tip is the single hover tooltip.
type Tip struct {
	Anchor    *html.Node
	Text      string
	Placement geometry.TipPlacement
}

// PointerProbe reports the element currently under the pointer.
type PointerProbe interface {
	ElementUnderPointer() *html.Node
}

type TipOptions struct {
	HideDelay time.Duration
	FadeDelay time.Duration
	Scheduler globaltime.Scheduler
}

type pendingHide struct {
	timer globaltime.Timer
}

// TipController runs the hover tip state machine. Callers invoke its methods
// while holding lock; timer callbacks acquire lock themselves.
type TipController struct {
	lock         sync.Locker
	sched        globaltime.Scheduler
	probe        PointerProbe
	translatable func(*html.Node) bool
	hideDelay    time.Duration
	fadeDelay    time.Duration

	host      *html.Node
	container *html.Node
	tipEl     *html.Node
	fading    globaltime.Timer

	state   TipState
	current *Tip
	hides   map[*html.Node]*pendingHide
}

// NewTipController builds a controller. translatable decides whether the
// element under the pointer keeps the tip alive.
func NewTipController(lock sync.Locker, probe PointerProbe, translatable func(*html.Node) bool, opts TipOptions) *TipController {
	if opts.HideDelay <= 0 {
		opts.HideDelay = DefaultHideDelay
	}
	if opts.FadeDelay <= 0 {
		opts.FadeDelay = DefaultFadeDelay
	}
	if opts.Scheduler == nil {
		opts.Scheduler = globaltime.RealScheduler
	}
	return &TipController{
		lock:         lock,
		sched:        opts.Scheduler,
		probe:        probe,
		translatable: translatable,
		hideDelay:    opts.HideDelay,
		fadeDelay:    opts.FadeDelay,
		hides:        make(map[*html.Node]*pendingHide),
	}
}

// SetHost sets the element the tip container is appended to.
func (c *TipController) SetHost(host *html.Node) {
	c.host = host
}

func (c *TipController) State() TipState {
	return c.state
}

// Current returns the tip on display, if any.
func (c *TipController) Current() (Tip, bool) {
	if c.current == nil || c.state == TipHidden {
		return Tip{}, false
	}
	return *c.current, true
}

func (c *TipController) setState(next TipState) {
	if next == c.state {
		return
	}
	for _, allowed := range tipTransitions[c.state] {
		if allowed == next {
			c.state = next
			return
		}
	}
	panic(fmt.Sprintf("overlay: invalid tip transition %s -> %s", c.state, next))
}

// PointerEnter shows or moves the tip above el. It reports whether the tip
// content changed.
func (c *TipController) PointerEnter(el *html.Node, text string, anchor geometry.Rect, size geometry.Size, vp geometry.Viewport) bool {
	c.cancelHide(el)
	if c.state == TipPendingHide && len(c.hides) == 0 {
		c.setState(TipShown)
	}
	if c.current != nil && c.state != TipHidden && c.current.Text == text {
		return false
	}

	c.setState(TipPendingShow)
	if c.fading != nil {
		c.fading.Stop()
		c.fading = nil
	}
	placement := geometry.PlaceTip(anchor, size, vp)
	c.render(text, placement)
	c.current = &Tip{Anchor: el, Text: text, Placement: placement}
	c.setState(TipShown)
	return true
}

// PointerLeave arms the hide grace timer for el.
func (c *TipController) PointerLeave(el *html.Node) {
	if c.state != TipShown && c.state != TipPendingHide {
		return
	}
	c.cancelHide(el)
	entry := &pendingHide{}
	entry.timer = c.sched.AfterFunc(c.hideDelay, func() {
		c.lock.Lock()
		defer c.lock.Unlock()
		c.expireHide(el, entry)
	})
	c.hides[el] = entry
	c.setState(TipPendingHide)
}

func (c *TipController) expireHide(el *html.Node, entry *pendingHide) {
	if c.hides[el] != entry {
		return
	}
	delete(c.hides, el)
	if c.state != TipPendingHide {
		return
	}

	var under *html.Node
	if c.probe != nil {
		under = c.probe.ElementUnderPointer()
	}
	if under != nil && c.translatable != nil && c.translatable(under) {
		if len(c.hides) == 0 {
			c.setState(TipShown)
		}
		return
	}
	if len(c.hides) > 0 {
		return
	}
	c.hide()
}

func (c *TipController) hide() {
	c.setState(TipHidden)
	c.current = nil
	if c.tipEl == nil {
		return
	}
	dom.SetAttr(c.tipEl, "data-fading", "true")
	tipEl := c.tipEl
	var fade globaltime.Timer
	fade = c.sched.AfterFunc(c.fadeDelay, func() {
		c.lock.Lock()
		defer c.lock.Unlock()
		if c.fading != fade || c.tipEl != tipEl {
			return
		}
		c.fading = nil
		dom.Detach(c.tipEl)
		c.tipEl = nil
	})
	c.fading = fade
}

func (c *TipController) cancelHide(el *html.Node) {
	entry, ok := c.hides[el]
	if !ok {
		return
	}
	entry.timer.Stop()
	delete(c.hides, el)
}

func (c *TipController) render(text string, placement geometry.TipPlacement) {
	if c.host == nil {
		return
	}
	if c.container == nil {
		c.container = dom.NewElement("div", dom.ClassAttr(dom.ClassHoverContainer))
		c.host.AppendChild(c.container)
	}
	if c.tipEl == nil {
		c.tipEl = dom.NewElement("div", dom.ClassAttr(dom.ClassHoverTip))
		c.container.AppendChild(c.tipEl)
	}
	for c.tipEl.FirstChild != nil {
		c.tipEl.RemoveChild(c.tipEl.FirstChild)
	}
	c.tipEl.AppendChild(dom.NewText(text))
	dom.RemoveAttr(c.tipEl, "data-fading")
	side := "above"
	if placement.Below {
		side = "below"
	}
	dom.SetAttr(c.tipEl, "data-placement", side)
	dom.SetAttr(c.tipEl, "style", "left:"+px(placement.Left)+";top:"+px(placement.Top))
}

// Reset drops the tip, its container and every pending timer.
func (c *TipController) Reset() {
	for el, entry := range c.hides {
		entry.timer.Stop()
		delete(c.hides, el)
	}
	if c.fading != nil {
		c.fading.Stop()
		c.fading = nil
	}
	dom.Detach(c.container)
	c.container = nil
	c.tipEl = nil
	c.current = nil
	c.state = TipHidden
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
