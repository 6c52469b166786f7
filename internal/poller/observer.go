package poller

import "time"

// Outcome classifies a finished poll cycle.
type Outcome string

const (
	OutcomeChanged   Outcome = "changed"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeError     Outcome = "error"
	OutcomeStopped   Outcome = "stopped"   // failure that hit MaxErrors
	OutcomeDiscarded Outcome = "discarded" // arrived after Stop
)

// Cycle describes one settled poll.
type Cycle struct {
	Source   string
	Outcome  Outcome
	Interval time.Duration // Interval chosen for the next cycle
	Duration time.Duration // Time spent fetching
	Err      error
}

// Observer is notified after every poll cycle.
type Observer interface {
	ObservePoll(c Cycle)
}

// ObserverFunc is a function adapter for Observer.
type ObserverFunc func(Cycle)

func (f ObserverFunc) ObservePoll(c Cycle) { f(c) }

type nopObserver struct{}

func (nopObserver) ObservePoll(Cycle) {}
