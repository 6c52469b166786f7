package schedule

import (
	"sort"
	"sync"
	"time"
)

// Cancel stops a scheduled action. It reports whether the action was still pending.
type Cancel func() bool

// Scheduler runs fn once after d has elapsed.
type Scheduler interface {
	After(d time.Duration, fn func()) Cancel
	Now() time.Time
}

type realScheduler struct{}

// Real returns a [Scheduler] backed by [time.AfterFunc]. Actions run on their own goroutine.
func Real() Scheduler { return realScheduler{} }

func (realScheduler) After(d time.Duration, fn func()) Cancel {
	t := time.AfterFunc(d, fn)
	return t.Stop
}

func (realScheduler) Now() time.Time { return time.Now() }

type task struct {
	seq uint64
	at  time.Time
	fn  func()
}

// Manual is a virtual clock. Actions only run inside [Manual.Advance], on the caller's goroutine.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*task
}

// NewManual starts the clock at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) After(d time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d < 0 {
		d = 0
	}
	m.seq++
	t := &task{seq: m.seq, at: m.now.Add(d), fn: fn}
	m.tasks = append(m.tasks, t)

	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, queued := range m.tasks {
			if queued == t {
				m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
				return true
			}
		}
		return false
	}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of queued actions.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves the clock forward by d, running every action that falls due in order.
// Actions scheduled while advancing run too when their due time is inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	end := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.popDue(end)
		if next == nil {
			m.now = end
			m.mu.Unlock()
			return
		}
		if next.at.After(m.now) {
			m.now = next.at
		}
		m.mu.Unlock()

		next.fn()
	}
}

// Flush runs every action due at the current instant.
func (m *Manual) Flush() { m.Advance(0) }

func (m *Manual) popDue(end time.Time) *task {
	if len(m.tasks) == 0 {
		return nil
	}
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].at.Equal(m.tasks[j].at) {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].at.Before(m.tasks[j].at)
	})
	first := m.tasks[0]
	if first.at.After(end) {
		return nil
	}
	m.tasks = m.tasks[1:]
	return first
}
