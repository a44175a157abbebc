package globaltime

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler fires callbacks only when Advance is called.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	owner   *ManualScheduler
	due     time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{owner: s, due: s.now + d, seq: s.seq, fn: f}
	s.pending = append(s.pending, t)
	return t
}

// Advance moves the clock forward and runs every callback that came due, in due order.
// Callbacks run on the calling goroutine without the scheduler lock held.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	fired := 0
	for {
		s.mu.Lock()
		sort.SliceStable(s.pending, func(i, j int) bool {
			if s.pending[i].due == s.pending[j].due {
				return s.pending[i].seq < s.pending[j].seq
			}
			return s.pending[i].due < s.pending[j].due
		})
		var next *manualTimer
		for len(s.pending) > 0 {
			head := s.pending[0]
			if head.stopped {
				s.pending = s.pending[1:]
				continue
			}
			if head.due <= target {
				next = head
				s.pending = s.pending[1:]
			}
			break
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return fired
		}
		s.now = next.due
		next.fired = true
		s.mu.Unlock()

		next.fn()
		fired++
	}
}

// Pending reports how many timers are armed and not stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, t := range s.pending {
		if !t.stopped && !t.fired {
			count++
		}
	}
	return count
}
