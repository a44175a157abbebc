package engine

import (
	"time"

	"horse.fit/pagetrans/internal/globaltime"
)

// NoticeTTL is how long a toast stays visible.
const NoticeTTL = 2 * time.Second

const (
	MsgAlreadyTranslating = "page translation already in progress"
	MsgAlreadyTranslated  = "page already translated"
	MsgHoverDone          = "page translation done, hover over text to view"
	MsgInlineDone         = "page translation done"
	MsgRestored           = "page restored"
	MsgCopied             = "copied"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is a short-lived toast for the host page.
type Notice struct {
	Level     NoticeLevel `json:"level"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (e *Engine) noticeLocked(level NoticeLevel, message string) Notice {
	now := globaltime.Now()
	n := Notice{
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(NoticeTTL),
	}
	e.pruneNoticesLocked(now)
	e.notices = append(e.notices, n)
	return n
}

func (e *Engine) pruneNoticesLocked(now time.Time) {
	live := e.notices[:0]
	for _, n := range e.notices {
		if now.Before(n.ExpiresAt) {
			live = append(live, n)
		}
	}
	e.notices = live
}

// Notices returns the toasts that have not expired yet.
func (e *Engine) Notices() []Notice {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneNoticesLocked(globaltime.Now())
	return append([]Notice(nil), e.notices...)
}
