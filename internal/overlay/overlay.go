// Package overlay renders translations into a document tree and undoes them.
package overlay

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"horse.fit/pagetrans/internal/selector"
)

type Mode string

const (
	ModeHover  Mode = "hover"
	ModeInline Mode = "inline"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeHover:
		return ModeHover, nil
	case ModeInline:
		return ModeInline, nil
	default:
		return "", fmt.Errorf("unknown overlay mode %q (want hover or inline)", raw)
	}
}

// Renderer is one overlay strategy. A document uses exactly one renderer for
// its whole lifetime.
type Renderer interface {
	Mode() Mode
	// Prepare runs once per session before the first Apply.
	Prepare(doc *html.Node) error
	// Apply renders translation for unit and reports whether the tree changed.
	Apply(unit selector.TextUnit, translation string) bool
	// Restore undoes every Apply of the current session.
	Restore() error
	Count() int
}

// IsNoop reports whether translation adds nothing over original.
func IsNoop(original, translation string) bool {
	trimmed := strings.TrimSpace(translation)
	return trimmed == "" || trimmed == strings.TrimSpace(original)
}
