// Package geometry places floating UI relative to anchors inside a viewport.
// All coordinates are CSS pixels relative to the viewport unless a field says otherwise.
package geometry

const (
	// TipMargin is the minimum distance between a hover tip and the viewport edge.
	TipMargin = 8.0
	// TipGap separates a hover tip from the element it describes.
	TipGap = 12.0
	// DefaultPanelPadding offsets the floating panel from its anchor point.
	DefaultPanelPadding = 20.0
)

// DefaultPanelSize matches the panel's fixed stylesheet dimensions.
var DefaultPanelSize = Size{Width: 300, Height: 200}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Viewport describes the visible window. Scroll offsets convert viewport
// coordinates into page coordinates for absolutely positioned elements.
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	ScrollX float64 `json:"scroll_x"`
	ScrollY float64 `json:"scroll_y"`
}

// TipPlacement is where a hover tip lands. Left/Top are page coordinates.
type TipPlacement struct {
	Left  float64 `json:"left"`
	Top   float64 `json:"top"`
	Below bool    `json:"below"`
}

// PlaceTip centers a tip above anchor, clamps it horizontally to TipMargin and
// flips it below the anchor when there is not enough room above.
func PlaceTip(anchor Rect, tip Size, vp Viewport) TipPlacement {
	left := anchor.Left + (anchor.Width-tip.Width)/2
	top := anchor.Top - tip.Height - TipGap

	if left < TipMargin {
		left = TipMargin
	} else if left+tip.Width > vp.Width-TipMargin {
		left = vp.Width - tip.Width - TipMargin
	}

	below := false
	if top < TipMargin {
		top = anchor.Bottom() + TipGap
		below = true
	}

	return TipPlacement{
		Left:  left + vp.ScrollX,
		Top:   top + vp.ScrollY,
		Below: below,
	}
}

// PlacePanel puts a panel right of and below anchor, flipping to the other
// side on any axis that would overflow, then clamps to padding from the
// top-left viewport edges. Scroll offsets are deliberately ignored.
func PlacePanel(anchor Point, panel Size, vp Viewport, padding float64) Point {
	if padding < 0 {
		padding = 0
	}

	x := anchor.X + padding
	y := anchor.Y + padding

	if x+panel.Width > vp.Width {
		x = anchor.X - panel.Width - padding
	}
	if y+panel.Height > vp.Height {
		y = anchor.Y - panel.Height - padding
	}

	x = max(padding, x)
	y = max(padding, y)

	return Point{X: x, Y: y}
}
