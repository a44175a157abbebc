// Package session tracks the page-translation lifecycle of one document.
package session

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"
)

type State int

const (
	Idle State = iota
	InProgress
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Event int

const (
	PageTranslate Event = iota
	BatchesDone
	Restore
)

func (e Event) String() string {
	switch e {
	case PageTranslate:
		return "page_translate"
	case BatchesDone:
		return "batches_done"
	case Restore:
		return "restore"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var (
	ErrAlreadyTranslating = errors.New("page translation already in progress")
	ErrAlreadyTranslated  = errors.New("page already translated")
	ErrStaleGeneration    = errors.New("session generation is no longer current")
)

type transition struct {
	next State
	err  error
}

var transitions = map[State]map[Event]transition{
	Idle: {
		PageTranslate: {next: InProgress},
		Restore:       {next: Idle},
	},
	InProgress: {
		PageTranslate: {next: InProgress, err: ErrAlreadyTranslating},
		BatchesDone:   {next: Completed},
		Restore:       {next: Idle},
	},
	Completed: {
		PageTranslate: {next: Completed, err: ErrAlreadyTranslated},
		Restore:       {next: Idle},
	},
}

// Next looks up the transition for event in state. Rejected events leave the
// state unchanged and return the rejection error.
func Next(state State, event Event) (State, error) {
	t, ok := transitions[state][event]
	if !ok {
		return state, fmt.Errorf("event %s is not valid in state %s", event, state)
	}
	return t.next, t.err
}

// Session is not safe for concurrent use; the owning engine serialises access.
type Session struct {
	state      State
	generation uint64
	processed  map[*html.Node]struct{}
}

func New() *Session {
	return &Session{processed: make(map[*html.Node]struct{})}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Generation() uint64 {
	return s.generation
}

// Begin starts a page pass and returns its generation.
func (s *Session) Begin() (uint64, error) {
	next, err := Next(s.state, PageTranslate)
	if err != nil {
		return 0, err
	}
	s.state = next
	s.generation++
	return s.generation, nil
}

// Active reports whether results tagged with gen may still touch the tree.
func (s *Session) Active(gen uint64) bool {
	return s.state == InProgress && s.generation == gen
}

// Complete marks the pass identified by gen finished.
func (s *Session) Complete(gen uint64) error {
	if s.generation != gen {
		return ErrStaleGeneration
	}
	next, err := Next(s.state, BatchesDone)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Restore returns to Idle, forgets processed nodes, and invalidates any
// in-flight pass. It reports whether there was a session to undo.
func (s *Session) Restore() bool {
	had := s.state != Idle
	next, _ := Next(s.state, Restore)
	s.state = next
	if had {
		s.generation++
	}
	clear(s.processed)
	return had
}

func (s *Session) MarkProcessed(n *html.Node) {
	if n != nil {
		s.processed[n] = struct{}{}
	}
}

func (s *Session) Has(n *html.Node) bool {
	_, ok := s.processed[n]
	return ok
}

func (s *Session) ProcessedCount() int {
	return len(s.processed)
}
