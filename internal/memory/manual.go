package memory

import (
	"sync"
	"time"
)

// ManualScheduler is a Scheduler that only moves when Advance is called.
// It makes rounds fully deterministic for tests and replays.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	s    *ManualScheduler
	at   time.Duration
	seq  int
	f    func()
	done bool
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Cancel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTask{s: s, at: s.now + d, seq: s.seq, f: f}
	s.tasks = append(s.tasks, t)
	return t
}

func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves time forward by d and runs every task that falls due, in
// order. Tasks scheduled while advancing run too if they fall inside d.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()
	for {
		s.mu.Lock()
		var next *manualTask
		for _, t := range s.tasks {
			if t.done || t.at > target {
				continue
			}
			if next == nil || t.at < next.at || (t.at == next.at && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.compactLocked()
			s.mu.Unlock()
			return
		}
		s.now = next.at
		next.done = true
		s.mu.Unlock()
		next.f()
	}
}

// Pending counts tasks that have neither run nor been stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.done {
			n++
		}
	}
	return n
}

func (s *ManualScheduler) compactLocked() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.done {
			live = append(live, t)
		}
	}
	clear(s.tasks[len(live):])
	s.tasks = live
}
