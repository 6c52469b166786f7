package printing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/brewq/internal/schedule"
	"github.com/desertthunder/brewq/internal/shared"
)

// PopupBlockedMessage is shown when a label viewport cannot be opened.
const PopupBlockedMessage = "Could not open the label. Allow the label viewer to open, or open the label link manually."

// Viewport is an opened label document. A Viewport that implements [io.Closer] is closed once its job finishes.
type Viewport interface {
	// Ready reports whether the content finished loading. An error means readiness cannot be observed.
	Ready() (bool, error)
	Closed() bool
	Print() error
}

// Opener opens the label for an order.
type Opener interface {
	Open(ctx context.Context, orderID int64) (Viewport, error)
}

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(msg string)
}

// Recorder persists the outcome of a print job.
type Recorder interface {
	RecordPrint(ctx context.Context, job JobResult) error
}

// Timing controls the readiness loop.
type Timing struct {
	PollInterval  time.Duration // default: 100ms
	SettleDelay   time.Duration // default: 1s
	FallbackDelay time.Duration // default: 2s
	Timeout       time.Duration // default: 15s
}

// DefaultTiming returns the standard readiness timings.
func DefaultTiming() Timing {
	return Timing{
		PollInterval:  100 * time.Millisecond,
		SettleDelay:   time.Second,
		FallbackDelay: 2 * time.Second,
		Timeout:       15 * time.Second,
	}
}

func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	if t.PollInterval <= 0 {
		t.PollInterval = d.PollInterval
	}
	if t.SettleDelay <= 0 {
		t.SettleDelay = d.SettleDelay
	}
	if t.FallbackDelay <= 0 {
		t.FallbackDelay = d.FallbackDelay
	}
	if t.Timeout <= 0 {
		t.Timeout = d.Timeout
	}
	return t
}

// Outcome is how a print job ended.
type Outcome string

const (
	OutcomePrinted  Outcome = "printed"
	OutcomeFailed   Outcome = "failed"
	OutcomeClosed   Outcome = "closed"
	OutcomeTimedOut Outcome = "timed_out"
	OutcomeBlocked  Outcome = "blocked"
)

// JobResult describes a finished print job.
type JobResult struct {
	ID       string
	OrderID  int64
	Outcome  Outcome
	Fallback bool // printed without observing readiness
	Err      error
}

// Trigger opens labels and prints them once.
type Trigger struct {
	opener   Opener
	alerter  Alerter
	sched    schedule.Scheduler
	timing   Timing
	logger   *log.Logger
	recorder Recorder
}

// TriggerOpts configures a [Trigger]. Zero values use the real clock and [DefaultTiming].
type TriggerOpts struct {
	Scheduler schedule.Scheduler
	Timing    Timing
	Logger    *log.Logger
	Recorder  Recorder
}

// NewTrigger creates a Trigger.
func NewTrigger(opener Opener, alerter Alerter, opts TriggerOpts) *Trigger {
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.Real()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Trigger{
		opener:   opener,
		alerter:  alerter,
		sched:    opts.Scheduler,
		timing:   opts.Timing.withDefaults(),
		logger:   opts.Logger,
		recorder: opts.Recorder,
	}
}

// Print opens the label for orderID and starts the readiness loop. It returns without waiting for the print;
// use [Job.Done] to wait. An Open failure is alerted immediately and not retried.
func (t *Trigger) Print(ctx context.Context, orderID int64) (*Job, error) {
	job := &Job{
		id:      shared.GenerateID(),
		orderID: orderID,
		trigger: t,
		done:    make(chan struct{}),
	}

	vp, err := t.opener.Open(ctx, orderID)
	if err != nil || vp == nil {
		if err == nil {
			err = errors.New("no viewport")
		}
		err = fmt.Errorf("%w: %w", shared.ErrPopupBlocked, err)
		t.logger.Error("failed to open label", "order", orderID, "err", err)
		if t.alerter != nil {
			t.alerter.Alert(PopupBlockedMessage)
		}
		job.finish(OutcomeBlocked, err)
		return job, err
	}

	job.vp = vp
	t.logger.Debug("label opened", "order", orderID, "job", job.id)

	job.mu.Lock()
	job.timeout = t.sched.After(t.timing.Timeout, job.expire)
	job.tick = t.sched.After(t.timing.PollInterval, job.check)
	job.mu.Unlock()
	return job, nil
}

// Job tracks one Print invocation.
type Job struct {
	id      string
	orderID int64
	trigger *Trigger
	vp      Viewport

	mu       sync.Mutex
	tick     schedule.Cancel
	delay    schedule.Cancel
	timeout  schedule.Cancel
	printed  bool
	fallback bool
	finished bool
	result   JobResult
	done     chan struct{}
}

func (j *Job) ID() string { return j.id }

// Done is closed once the job reaches an outcome and the outcome is recorded.
func (j *Job) Done() <-chan struct{} { return j.done }

// Result returns the outcome. It is only meaningful after Done is closed.
func (j *Job) Result() JobResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Wait blocks until the job finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) (JobResult, error) {
	select {
	case <-j.done:
		return j.Result(), nil
	case <-ctx.Done():
		return JobResult{}, ctx.Err()
	}
}

func (j *Job) check() {
	j.mu.Lock()
	if j.finished || j.tick == nil {
		j.mu.Unlock()
		return
	}
	j.tick = nil
	j.mu.Unlock()

	if j.vp.Closed() {
		j.finish(OutcomeClosed, nil)
		return
	}

	ready, err := j.vp.Ready()
	t := j.trigger

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished {
		return
	}
	switch {
	case err != nil:
		t.logger.Debug("label readiness not observable, using fallback delay", "order", j.orderID, "err", err)
		j.fallback = true
		j.delay = t.sched.After(t.timing.FallbackDelay, j.fire)
	case ready:
		j.delay = t.sched.After(t.timing.SettleDelay, j.fire)
	default:
		j.tick = t.sched.After(t.timing.PollInterval, j.check)
	}
}

// fire issues the print action at most once and never on a closed viewport.
func (j *Job) fire() {
	j.mu.Lock()
	j.delay = nil
	if j.printed || j.finished {
		j.mu.Unlock()
		return
	}
	if j.vp.Closed() {
		j.mu.Unlock()
		j.finish(OutcomeClosed, nil)
		return
	}
	j.printed = true
	j.mu.Unlock()

	if err := j.vp.Print(); err != nil {
		err = fmt.Errorf("%w: %w", shared.ErrPrintFailed, err)
		j.trigger.logger.Error("print failed", "order", j.orderID, "err", err)
		j.finish(OutcomeFailed, err)
		return
	}
	j.trigger.logger.Info("label printed", "order", j.orderID, "job", j.id)
	j.finish(OutcomePrinted, nil)
}

// expire stops the readiness loop. A pending settle or fallback print still fires.
func (j *Job) expire() {
	j.mu.Lock()
	j.timeout = nil
	if j.finished {
		j.mu.Unlock()
		return
	}
	if j.tick != nil {
		j.tick()
		j.tick = nil
	}
	pending := j.delay != nil
	j.mu.Unlock()

	if !pending {
		j.trigger.logger.Warn("label never became ready", "order", j.orderID)
		j.finish(OutcomeTimedOut, shared.ErrNotObservable)
	}
}

func (j *Job) finish(outcome Outcome, err error) {
	j.mu.Lock()
	if j.finished {
		j.mu.Unlock()
		return
	}
	j.finished = true
	for _, c := range []schedule.Cancel{j.tick, j.delay, j.timeout} {
		if c != nil {
			c()
		}
	}
	j.tick, j.delay, j.timeout = nil, nil, nil
	j.result = JobResult{ID: j.id, OrderID: j.orderID, Outcome: outcome, Fallback: j.fallback, Err: err}
	result := j.result
	j.mu.Unlock()

	if c, ok := j.vp.(io.Closer); ok {
		if err := c.Close(); err != nil {
			j.trigger.logger.Warn("failed to release label", "job", j.id, "err", err)
		}
	}
	if rec := j.trigger.recorder; rec != nil {
		if err := rec.RecordPrint(context.Background(), result); err != nil {
			j.trigger.logger.Warn("failed to record print job", "job", j.id, "err", err)
		}
	}
	close(j.done)
}
