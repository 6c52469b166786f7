package printing

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/brewq/internal/schedule"
	"github.com/desertthunder/brewq/internal/shared"
)

type fakeViewport struct {
	mu         sync.Mutex
	readyAfter int // Ready calls before reporting ready; -1 never
	readyErr   error
	closed     bool
	printErr   error
	checks     int
	prints     int
}

func (v *fakeViewport) Ready() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.checks++
	if v.readyErr != nil {
		return false, v.readyErr
	}
	return v.readyAfter >= 0 && v.checks > v.readyAfter, nil
}

func (v *fakeViewport) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *fakeViewport) Print() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prints++
	return v.printErr
}

func (v *fakeViewport) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}

type fakeOpener struct {
	viewports []*fakeViewport
	err       error
	opened    int
}

func (o *fakeOpener) Open(ctx context.Context, orderID int64) (Viewport, error) {
	if o.err != nil {
		return nil, o.err
	}
	vp := o.viewports[o.opened]
	o.opened++
	return vp, nil
}

// slowRecorder takes a while to persist each job.
type slowRecorder struct {
	delay time.Duration

	mu   sync.Mutex
	jobs []JobResult
}

func (r *slowRecorder) RecordPrint(ctx context.Context, job JobResult) error {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *slowRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

type closingViewport struct {
	fakeViewport
	released int
}

func (v *closingViewport) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.released++
	return nil
}

type openerFunc func(ctx context.Context, orderID int64) (Viewport, error)

func (f openerFunc) Open(ctx context.Context, orderID int64) (Viewport, error) { return f(ctx, orderID) }

type alerts struct{ msgs []string }

func (a *alerts) Alert(msg string) { a.msgs = append(a.msgs, msg) }

type memRecorder struct{ jobs []JobResult }

func (r *memRecorder) RecordPrint(ctx context.Context, job JobResult) error {
	r.jobs = append(r.jobs, job)
	return nil
}

func newTestTrigger(opener Opener) (*Trigger, *schedule.Manual, *alerts, *memRecorder) {
	clock := schedule.NewManual(time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC))
	a := &alerts{}
	rec := &memRecorder{}
	tr := NewTrigger(opener, a, TriggerOpts{
		Scheduler: clock,
		Logger:    shared.NewLogger(io.Discard),
		Recorder:  rec,
	})
	return tr, clock, a, rec
}

func finished(j *Job) bool {
	select {
	case <-j.Done():
		return true
	default:
		return false
	}
}

func TestTriggerPrint(t *testing.T) {
	ctx := context.Background()

	t.Run("prints one settle delay after ready", func(t *testing.T) {
		vp := &fakeViewport{readyAfter: 2}
		tr, clock, _, rec := newTestTrigger(&fakeOpener{viewports: []*fakeViewport{vp}})

		job, err := tr.Print(ctx, 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		clock.Advance(300 * time.Millisecond)
		if vp.prints != 0 {
			t.Fatal("printed before settle delay")
		}
		clock.Advance(999 * time.Millisecond)
		if vp.prints != 0 {
			t.Fatal("printed before settle delay elapsed")
		}
		clock.Advance(time.Millisecond)
		if vp.prints != 1 {
			t.Fatalf("expected 1 print, got %d", vp.prints)
		}

		if !finished(job) || job.Result().Outcome != OutcomePrinted {
			t.Errorf("unexpected result %+v", job.Result())
		}
		if clock.Pending() != 0 {
			t.Errorf("expected no timers left, got %d", clock.Pending())
		}
		if len(rec.jobs) != 1 || rec.jobs[0].OrderID != 7 {
			t.Errorf("expected job recorded, got %+v", rec.jobs)
		}
	})

	t.Run("falls back when readiness is unobservable", func(t *testing.T) {
		vp := &fakeViewport{readyErr: shared.ErrNotObservable}
		tr, clock, _, _ := newTestTrigger(&fakeOpener{viewports: []*fakeViewport{vp}})

		job, _ := tr.Print(ctx, 1)
		clock.Advance(100 * time.Millisecond)
		clock.Advance(1999 * time.Millisecond)
		if vp.prints != 0 {
			t.Fatal("printed before fallback delay")
		}
		clock.Advance(time.Millisecond)
		if vp.prints != 1 {
			t.Fatalf("expected fallback print, got %d", vp.prints)
		}
		if r := job.Result(); !r.Fallback || r.Outcome != OutcomePrinted {
			t.Errorf("unexpected result %+v", r)
		}
		if vp.checks != 1 {
			t.Errorf("expected readiness loop to stop after the error, got %d checks", vp.checks)
		}
	})

	t.Run("global timeout stops the loop", func(t *testing.T) {
		vp := &fakeViewport{readyAfter: -1}
		tr, clock, _, _ := newTestTrigger(&fakeOpener{viewports: []*fakeViewport{vp}})

		job, _ := tr.Print(ctx, 1)
		clock.Advance(15 * time.Second)

		if !finished(job) || job.Result().Outcome != OutcomeTimedOut {
			t.Fatalf("expected timeout, got %+v", job.Result())
		}
		checks := vp.checks
		clock.Advance(time.Minute)
		if vp.checks != checks || vp.prints != 0 {
			t.Errorf("expected loop to stay stopped, checks %d->%d prints %d", checks, vp.checks, vp.prints)
		}
		if clock.Pending() != 0 {
			t.Errorf("expected no leaked timers, got %d", clock.Pending())
		}
	})

	t.Run("settle print still fires after the timeout", func(t *testing.T) {
		vp := &fakeViewport{readyAfter: 148}
		tr, clock, _, _ := newTestTrigger(&fakeOpener{viewports: []*fakeViewport{vp}})

		job, _ := tr.Print(ctx, 1)
		clock.Advance(15 * time.Second)
		if finished(job) {
			t.Fatalf("expected pending settle print, got %+v", job.Result())
		}
		clock.Advance(time.Second)
		if vp.prints != 1 || job.Result().Outcome != OutcomePrinted {
			t.Errorf("expected print after settle, got %d prints %+v", vp.prints, job.Result())
		}
	})

	t.Run("never prints a closed viewport", func(t *testing.T) {
		vp := &fakeViewport{readyAfter: 0}
		tr, clock, _, _ := newTestTrigger(&fakeOpener{viewports: []*fakeViewport{vp}})

		job, _ := tr.Print(ctx, 1)
		clock.Advance(100 * time.Millisecond)
		vp.close()
		clock.Advance(time.Second)

		if vp.prints != 0 {
			t.Errorf("printed a closed viewport")
		}
		if job.Result().Outcome != OutcomeClosed {
			t.Errorf("expected closed outcome, got %+v", job.Result())
		}
	})

	t.Run("closed before ready ends the loop", func(t *testing.T) {
		vp := &fakeViewport{readyAfter: -1, closed: true}
		tr, clock, _, _ := newTestTrigger(&fakeOpener{viewports: []*fakeViewport{vp}})

		job, _ := tr.Print(ctx, 1)
		clock.Advance(100 * time.Millisecond)
		if !finished(job) || vp.checks != 0 {
			t.Errorf("expected loop to end without checking readiness, got %+v", job.Result())
		}
	})

	t.Run("open failure alerts immediately", func(t *testing.T) {
		tr, clock, a, rec := newTestTrigger(&fakeOpener{err: errors.New("no display")})

		job, err := tr.Print(ctx, 1)
		if !errors.Is(err, shared.ErrPopupBlocked) {
			t.Fatalf("expected ErrPopupBlocked, got %v", err)
		}
		if len(a.msgs) != 1 || a.msgs[0] != PopupBlockedMessage {
			t.Errorf("expected popup alert, got %v", a.msgs)
		}
		if clock.Pending() != 0 {
			t.Errorf("expected no retry, got %d timers", clock.Pending())
		}
		if !finished(job) || job.Result().Outcome != OutcomeBlocked || len(rec.jobs) != 1 {
			t.Errorf("unexpected result %+v", job.Result())
		}
	})

	t.Run("print failure is reported", func(t *testing.T) {
		vp := &fakeViewport{readyAfter: 0, printErr: errors.New("spooler offline")}
		tr, clock, _, _ := newTestTrigger(&fakeOpener{viewports: []*fakeViewport{vp}})

		job, _ := tr.Print(ctx, 1)
		clock.Advance(2 * time.Second)
		r := job.Result()
		if r.Outcome != OutcomeFailed || !errors.Is(r.Err, shared.ErrPrintFailed) {
			t.Errorf("unexpected result %+v", r)
		}
		if vp.prints != 1 {
			t.Errorf("expected a single attempt, got %d", vp.prints)
		}
	})

	t.Run("rapid invocations print once per viewport", func(t *testing.T) {
		a, b := &fakeViewport{readyAfter: 0}, &fakeViewport{readyAfter: 0}
		tr, clock, _, _ := newTestTrigger(&fakeOpener{viewports: []*fakeViewport{a, b}})

		j1, _ := tr.Print(ctx, 3)
		j2, _ := tr.Print(ctx, 3)
		clock.Advance(time.Minute)

		if a.prints != 1 || b.prints != 1 {
			t.Errorf("expected one print per viewport, got %d and %d", a.prints, b.prints)
		}
		if j1.ID() == j2.ID() {
			t.Error("expected distinct job ids")
		}
	})

	t.Run("Wait returns after the job is recorded", func(t *testing.T) {
		vp := &fakeViewport{readyAfter: 0}
		rec := &slowRecorder{delay: 50 * time.Millisecond}
		tr := NewTrigger(&fakeOpener{viewports: []*fakeViewport{vp}}, &alerts{}, TriggerOpts{
			Logger:   shared.NewLogger(io.Discard),
			Recorder: rec,
			Timing: Timing{
				PollInterval:  time.Millisecond,
				SettleDelay:   time.Millisecond,
				FallbackDelay: time.Millisecond,
				Timeout:       time.Second,
			},
		})

		job, err := tr.Print(ctx, 11)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		res, err := job.Wait(wctx)
		if err != nil {
			t.Fatalf("job did not finish: %v", err)
		}

		if res.Outcome != OutcomePrinted {
			t.Errorf("expected printed, got %+v", res)
		}
		if n := rec.count(); n != 1 {
			t.Errorf("expected job recorded before Wait returned, got %d records", n)
		}
	})

	t.Run("finished job releases a closable viewport", func(t *testing.T) {
		vp := &closingViewport{fakeViewport: fakeViewport{readyAfter: -1}}
		clock := schedule.NewManual(time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC))
		tr := NewTrigger(openerFunc(func(context.Context, int64) (Viewport, error) { return vp, nil }), &alerts{}, TriggerOpts{
			Scheduler: clock,
			Logger:    shared.NewLogger(io.Discard),
		})

		job, _ := tr.Print(ctx, 2)
		clock.Advance(15 * time.Second)

		if !finished(job) || job.Result().Outcome != OutcomeTimedOut {
			t.Fatalf("expected timeout, got %+v", job.Result())
		}
		if vp.released != 1 {
			t.Errorf("expected viewport released once, got %d", vp.released)
		}
	})

	t.Run("Wait honours context", func(t *testing.T) {
		vp := &fakeViewport{readyAfter: -1}
		tr, _, _, _ := newTestTrigger(&fakeOpener{viewports: []*fakeViewport{vp}})
		job, _ := tr.Print(ctx, 1)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := job.Wait(cctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
