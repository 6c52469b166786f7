package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManual(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	t.Run("runs actions in due order", func(t *testing.T) {
		m := NewManual(start)
		var got []string
		m.After(3*time.Second, func() { got = append(got, "c") })
		m.After(time.Second, func() { got = append(got, "a") })
		m.After(2*time.Second, func() { got = append(got, "b") })

		m.Advance(2 * time.Second)
		if len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Fatalf("expected [a b], got %v", got)
		}
		if m.Pending() != 1 {
			t.Errorf("expected 1 pending, got %d", m.Pending())
		}

		m.Advance(time.Second)
		if len(got) != 3 || got[2] != "c" {
			t.Errorf("expected c to run, got %v", got)
		}
	})

	t.Run("clock reads due time inside actions", func(t *testing.T) {
		m := NewManual(start)
		var seen time.Time
		m.After(1500*time.Millisecond, func() { seen = m.Now() })

		m.Advance(5 * time.Second)
		if want := start.Add(1500 * time.Millisecond); !seen.Equal(want) {
			t.Errorf("expected %v, got %v", want, seen)
		}
		if want := start.Add(5 * time.Second); !m.Now().Equal(want) {
			t.Errorf("expected clock at %v, got %v", want, m.Now())
		}
	})

	t.Run("chained actions inside the window run", func(t *testing.T) {
		m := NewManual(start)
		var runs int
		var tick func()
		tick = func() {
			runs++
			m.After(time.Second, tick)
		}
		m.After(time.Second, tick)

		m.Advance(5 * time.Second)
		if runs != 5 {
			t.Errorf("expected 5 runs, got %d", runs)
		}
		if m.Pending() != 1 {
			t.Errorf("expected the next tick to be queued, got %d", m.Pending())
		}
	})

	t.Run("cancel", func(t *testing.T) {
		m := NewManual(start)
		var ran bool
		cancel := m.After(time.Second, func() { ran = true })

		if !cancel() {
			t.Error("expected first cancel to report pending")
		}
		if cancel() {
			t.Error("expected second cancel to report not pending")
		}

		m.Advance(time.Minute)
		if ran {
			t.Error("cancelled action ran")
		}
	})

	t.Run("cancel after run", func(t *testing.T) {
		m := NewManual(start)
		cancel := m.After(0, func() {})
		m.Flush()
		if cancel() {
			t.Error("expected cancel after run to report not pending")
		}
	})
}

func TestReal(t *testing.T) {
	s := Real()

	t.Run("fires", func(t *testing.T) {
		done := make(chan struct{})
		s.After(time.Millisecond, func() { close(done) })

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("action did not fire")
		}
	})

	t.Run("cancel", func(t *testing.T) {
		var fired atomic.Bool
		cancel := s.After(time.Hour, func() { fired.Store(true) })
		if !cancel() {
			t.Error("expected pending timer to cancel")
		}
		if fired.Load() {
			t.Error("cancelled action fired")
		}
	})
}
