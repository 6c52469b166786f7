package poller

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/schedule"
	"github.com/desertthunder/brewq/internal/shared"
)

const (
	noChangeGrowth = 1.2
	errorGrowth    = 1.5
	errorStep      = 0.1
)

// FetchResult is the outcome of a single conditional fetch.
type FetchResult struct {
	NotModified bool
	Payload     models.Payload
}

// Fetcher performs one conditional GET. etag is empty when no hash is known.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values, etag string) (*FetchResult, error)
}

// Handler receives changed payloads.
type Handler interface {
	HandlePayload(p models.Payload)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(models.Payload)

func (f HandlerFunc) HandlePayload(p models.Payload) { f(p) }

// Config holds poller configuration.
type Config struct {
	Source            string        // Data source name, used in logs and metrics
	Endpoint          string        // Path or URL handed to the Fetcher
	Params            url.Values    // Static query parameters
	MinInterval       time.Duration // Interval after a change (default: 10s)
	MaxInterval       time.Duration // Backoff cap (default: 60s)
	NoChangeThreshold int           // Unchanged polls tolerated before backing off (default: 2)
	MaxErrors         int           // Consecutive failures before stopping (default: 5)
	Timeout           time.Duration // Per-request timeout (default: 15s)
}

// DefaultConfig returns the defaults used by the order board.
func DefaultConfig() Config {
	return Config{
		MinInterval:       10 * time.Second,
		MaxInterval:       60 * time.Second,
		NoChangeThreshold: 2,
		MaxErrors:         5,
		Timeout:           15 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinInterval <= 0 {
		c.MinInterval = d.MinInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = d.MaxInterval
	}
	if c.MaxInterval < c.MinInterval {
		c.MaxInterval = c.MinInterval
	}
	if c.NoChangeThreshold < 0 {
		c.NoChangeThreshold = d.NoChangeThreshold
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = d.MaxErrors
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// Options carries the poller's collaborators. Zero values fall back to a real clock and a stderr logger.
type Options struct {
	Scheduler schedule.Scheduler
	Logger    *log.Logger
	Observer  Observer
}

// State is a point-in-time snapshot of a poller.
type State struct {
	Source     string
	Interval   time.Duration
	Hash       string
	LastUpdate models.Timestamp
	NoChange   int
	Errors     int
	Running    bool
	Paused     bool
	InFlight   bool
}

// Poller polls one endpoint with adaptive backoff.
type Poller struct {
	cfg      Config
	fetcher  Fetcher
	handler  Handler
	sched    schedule.Scheduler
	logger   *log.Logger
	observer Observer

	mu         sync.Mutex
	running    bool
	paused     bool
	inFlight   bool
	pendingNow bool
	generation uint64
	cancel     schedule.Cancel

	interval   time.Duration
	lastHash   string
	lastUpdate models.Timestamp
	noChange   int
	errCount   int
}

// New creates a stopped Poller.
func New(cfg Config, fetcher Fetcher, handler Handler, opts Options) *Poller {
	cfg = cfg.withDefaults()
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.Real()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	return &Poller{
		cfg:        cfg,
		fetcher:    fetcher,
		handler:    handler,
		sched:      opts.Scheduler,
		logger:     opts.Logger.With("source", cfg.Source),
		observer:   opts.Observer,
		interval:   cfg.MinInterval,
		lastUpdate: models.TimestampOf(opts.Scheduler.Now()),
	}
}

// Start begins polling with an immediate first cycle. It is a no-op while running.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.paused = false
	p.errCount = 0
	p.generation++
	p.logger.Debug("poller started", "endpoint", p.cfg.Endpoint, "interval", p.interval)
	p.pollNowLocked()
}

// Stop cancels the pending cycle. A fetch already in flight completes but its result is dropped.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.stopLocked()
	p.logger.Debug("poller stopped")
}

func (p *Poller) stopLocked() {
	p.running = false
	p.pendingNow = false
	p.generation++
	p.cancelLocked()
}

// Pause suspends the schedule, keeping interval and hash.
func (p *Poller) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running || p.paused {
		return
	}
	p.paused = true
	p.pendingNow = false
	p.cancelLocked()
}

// Resume polls immediately if the poller is running and paused.
func (p *Poller) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running || !p.paused {
		return
	}
	p.paused = false
	p.pollNowLocked()
}

// ForceRefresh forgets the last hash, resets the interval to the minimum and polls immediately.
// While paused or stopped only the state is reset.
func (p *Poller) ForceRefresh() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastHash = ""
	p.interval = p.cfg.MinInterval
	p.noChange = 0
	if p.running && !p.paused {
		p.pollNowLocked()
	}
}

// State returns a snapshot of the poller.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return State{
		Source:     p.cfg.Source,
		Interval:   p.interval,
		Hash:       p.lastHash,
		LastUpdate: p.lastUpdate,
		NoChange:   p.noChange,
		Errors:     p.errCount,
		Running:    p.running,
		Paused:     p.paused,
		InFlight:   p.inFlight,
	}
}

// Config returns the effective configuration.
func (p *Poller) Config() Config { return p.cfg }

func (p *Poller) cancelLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// pollNowLocked runs a cycle as soon as possible without overlapping an in-flight fetch.
func (p *Poller) pollNowLocked() {
	if p.inFlight {
		p.pendingNow = true
		return
	}
	p.scheduleLocked(0)
}

func (p *Poller) scheduleLocked(d time.Duration) {
	p.cancelLocked()
	gen := p.generation
	p.cancel = p.sched.After(d, func() { p.cycle(gen) })
}

func (p *Poller) cycle(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || !p.running || p.paused {
		p.mu.Unlock()
		return
	}
	if p.inFlight {
		p.pendingNow = true
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	p.cancel = nil
	etag := p.lastHash
	params := p.requestParams()
	p.mu.Unlock()

	started := p.sched.Now()
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	res, err := p.fetcher.Fetch(ctx, p.cfg.Endpoint, params, etag)
	cancel()

	p.settle(gen, res, err, p.sched.Now().Sub(started))
}

func (p *Poller) requestParams() url.Values {
	params := url.Values{}
	maps.Copy(params, p.cfg.Params)
	params.Set("since", p.lastUpdate.String())
	return params
}

// settle applies a fetch outcome, delivers changed payloads outside the lock, then schedules the next cycle.
func (p *Poller) settle(gen uint64, res *FetchResult, err error, elapsed time.Duration) {
	p.mu.Lock()
	if gen != p.generation || !p.running {
		p.inFlight = false
		p.resumeDeferredLocked()
		p.mu.Unlock()
		p.logger.Debug("discarding result of stopped poller")
		p.observer.ObservePoll(Cycle{Source: p.cfg.Source, Outcome: OutcomeDiscarded, Duration: elapsed, Err: err})
		return
	}

	if err == nil && res == nil {
		err = fmt.Errorf("%w: empty fetch result", shared.ErrInvalidPayload)
	}

	var outcome Outcome
	var deliver *models.Payload
	switch {
	case err != nil:
		outcome, err = p.failLocked(err)
	case res.NotModified || (res.Payload.HasHash() && res.Payload.Hash == p.lastHash):
		outcome = p.unchangedLocked()
	default:
		outcome = OutcomeChanged
		payload := res.Payload
		payload.Source = p.cfg.Source
		deliver = &payload
		p.changedLocked(payload)
	}
	cycle := Cycle{Source: p.cfg.Source, Outcome: outcome, Interval: p.interval, Duration: elapsed, Err: err}
	p.mu.Unlock()

	if deliver != nil && p.handler != nil {
		p.handler.HandlePayload(*deliver)
	}
	p.observer.ObservePoll(cycle)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = false
	if gen != p.generation {
		p.resumeDeferredLocked()
		return
	}
	if p.running && !p.paused {
		if p.pendingNow {
			p.pendingNow = false
			p.scheduleLocked(0)
		} else {
			p.scheduleLocked(p.interval)
		}
	}
}

// resumeDeferredLocked honours an immediate poll requested by a restart while the stale fetch was running.
func (p *Poller) resumeDeferredLocked() {
	if p.running && !p.paused && p.pendingNow {
		p.pendingNow = false
		p.scheduleLocked(0)
	}
}

func (p *Poller) changedLocked(payload models.Payload) {
	p.noChange = 0
	p.errCount = 0
	p.interval = p.cfg.MinInterval
	p.lastHash = payload.Hash
	if payload.Timestamp != 0 {
		p.lastUpdate = payload.Timestamp
	} else {
		p.lastUpdate = models.TimestampOf(p.sched.Now())
	}
}

func (p *Poller) unchangedLocked() Outcome {
	p.noChange++
	p.errCount = 0
	if p.noChange > p.cfg.NoChangeThreshold {
		p.interval = p.grow(noChangeGrowth)
	}
	return OutcomeUnchanged
}

// failLocked counts a failed cycle. The returned error wraps [shared.ErrPollerStopped] once MaxErrors is reached.
func (p *Poller) failLocked(err error) (Outcome, error) {
	p.errCount++
	p.interval = p.grow(errorGrowth + errorStep*float64(p.errCount))

	if p.errCount >= p.cfg.MaxErrors {
		p.logger.Error("too many consecutive errors, stopping poller", "errors", p.errCount, "err", err)
		p.stopLocked()
		return OutcomeStopped, fmt.Errorf("%w: %w", shared.ErrPollerStopped, err)
	}

	level := log.WarnLevel
	if errors.Is(err, context.DeadlineExceeded) {
		level = log.InfoLevel
	}
	p.logger.Log(level, "poll failed", "errors", p.errCount, "next", p.interval, "err", err)
	return OutcomeError, err
}

func (p *Poller) grow(factor float64) time.Duration {
	next := time.Duration(float64(p.interval) * factor)
	return min(next, p.cfg.MaxInterval)
}
