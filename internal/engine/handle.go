package engine

import (
	"context"
	"errors"
	"fmt"

	"horse.fit/pagetrans/internal/geometry"
	"horse.fit/pagetrans/internal/messages"
	"horse.fit/pagetrans/internal/panel"
	"horse.fit/pagetrans/internal/session"
)

// Reply is the engine's answer to one trigger message.
type Reply struct {
	Type     messages.Type `json:"type"`
	Pong     bool          `json:"pong,omitempty"`
	Page     *PageResult   `json:"page,omitempty"`
	Restored *bool         `json:"restored,omitempty"`
	Changed  *bool         `json:"changed,omitempty"`
	Panel    *panel.View   `json:"panel,omitempty"`
	Copied   string        `json:"copied,omitempty"`
	State    string        `json:"state"`
	Notices  []Notice      `json:"notices"`
}

// ErrRejected wraps requests the engine refused without changing anything.
var ErrRejected = errors.New("request rejected")

// Handle dispatches a validated trigger message. Ping never touches engine
// state.
func (e *Engine) Handle(ctx context.Context, msg *messages.Trigger) (Reply, error) {
	if msg == nil {
		return Reply{}, fmt.Errorf("message is nil")
	}
	if msg.Type == messages.Ping {
		return Reply{Type: msg.Type, Pong: true}, nil
	}

	reply := Reply{Type: msg.Type}
	var err error

	switch msg.Type {
	case messages.BeginPageTranslate:
		if msg.TargetLang != "" && e.State() == session.Idle {
			if err := e.SetTargetLang(msg.TargetLang); err != nil {
				return Reply{}, err
			}
		}
		var result PageResult
		result, err = e.BeginPageTranslate()
		reply.Page = &result
		if errors.Is(err, session.ErrAlreadyTranslating) || errors.Is(err, session.ErrAlreadyTranslated) {
			err = fmt.Errorf("%w: %w", ErrRejected, err)
		}

	case messages.Restore:
		var restored bool
		restored, err = e.Restore()
		reply.Restored = &restored

	case messages.BeginSelectionTranslate:
		view := e.BeginSelectionTranslate(msg.Text, pointOrZero(msg.Anchor), viewportOrDefault(msg.Viewport))
		reply.Panel = &view

	case messages.PointerEnter:
		var changed bool
		changed, err = e.PointerEnter(*msg.NodeID, rectOrZero(msg.Rect), sizeOrDefault(msg.TipSize), viewportOrDefault(msg.Viewport))
		reply.Changed = &changed

	case messages.PointerLeave:
		err = e.PointerLeave(*msg.NodeID, msg.RelatedNodeID)

	case messages.PointerDown:
		changed := e.PointerDown(msg.InsidePanel)
		reply.Changed = &changed

	case messages.PanelRetranslate:
		var view panel.View
		view, err = e.PanelRetranslate(ctx, msg.TargetLang)
		reply.Panel = &view

	case messages.PanelManual:
		var view panel.View
		view, err = e.PanelManual(ctx, msg.Text, msg.TargetLang)
		reply.Panel = &view

	case messages.PanelCopy:
		reply.Copied, err = e.PanelCopy(nil)

	case messages.PanelClose:
		e.PanelClose()

	default:
		return Reply{}, fmt.Errorf("unsupported message type %q", msg.Type)
	}

	reply.State = e.State().String()
	reply.Notices = e.Notices()
	return reply, err
}

func pointOrZero(p *geometry.Point) geometry.Point {
	if p == nil {
		return geometry.Point{}
	}
	return *p
}

func rectOrZero(r *geometry.Rect) geometry.Rect {
	if r == nil {
		return geometry.Rect{}
	}
	return *r
}

func sizeOrDefault(s *geometry.Size) geometry.Size {
	if s == nil {
		return DefaultTipSize
	}
	return *s
}

func viewportOrDefault(vp *geometry.Viewport) geometry.Viewport {
	if vp == nil {
		return DefaultViewport
	}
	return *vp
}
