package realtime

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/poller"
	"github.com/desertthunder/brewq/internal/schedule"
	"github.com/desertthunder/brewq/internal/shared"
)

// Callback receives the transformed data and the raw payload it came from.
type Callback func(data any, raw models.Payload)

// Transform projects a raw payload into the value a subscriber wants.
type Transform func(raw models.Payload) (any, error)

// Unsubscribe removes a subscription. Calling it more than once is safe.
type Unsubscribe func()

// SourceConfig describes how a source is polled and how one subscriber views it.
type SourceConfig struct {
	Endpoint  string        // default: /api/<source>/live
	Interval  time.Duration // minimum poll interval, default: BusOpts.DefaultInterval
	Params    url.Values    // static query parameters
	Transform Transform     // optional; the raw payload is delivered when nil
}

// BusOpts configures a [Bus].
type BusOpts struct {
	Fetcher         poller.Fetcher
	Scheduler       schedule.Scheduler
	Logger          *log.Logger
	Observer        poller.Observer
	DefaultInterval time.Duration // default: 10s
	MaxInterval     time.Duration // default: 60s
	MaxErrors       int           // default: 5
	Timeout         time.Duration // default: 15s
}

type subscriber struct {
	id        string
	callback  Callback
	transform Transform
}

type source struct {
	name   string
	poller *poller.Poller
	subs   []*subscriber
	cached *models.Payload
}

// Bus owns every poller and subscriber registry.
type Bus struct {
	opts   BusOpts
	logger *log.Logger

	mu      sync.Mutex
	sources map[string]*source
	active  bool
	closed  bool
}

// NewBus creates an active Bus with no sources.
func NewBus(opts BusOpts) *Bus {
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.Real()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.DefaultInterval <= 0 {
		opts.DefaultInterval = poller.DefaultConfig().MinInterval
	}

	return &Bus{
		opts:    opts,
		logger:  opts.Logger,
		sources: make(map[string]*source),
		active:  true,
	}
}

// Subscribe registers callback for name. The first subscriber's cfg fixes the source's poller.
func (b *Bus) Subscribe(name string, callback Callback, cfg SourceConfig) (Unsubscribe, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty source name", shared.ErrInvalidInput)
	}
	if callback == nil {
		return nil, fmt.Errorf("%w: nil callback", shared.ErrInvalidInput)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, shared.ErrClosed
	}

	sub := &subscriber{id: shared.GenerateID(), callback: callback, transform: cfg.Transform}
	src, ok := b.sources[name]
	if !ok {
		src = &source{name: name}
		src.poller = poller.New(b.pollerConfig(name, cfg), b.opts.Fetcher, b.handler(src), poller.Options{
			Scheduler: b.opts.Scheduler,
			Logger:    b.logger,
			Observer:  b.opts.Observer,
		})
		b.sources[name] = src
	}
	src.subs = append(src.subs, sub)
	if !ok {
		b.logger.Debug("source registered", "source", name, "endpoint", src.poller.Config().Endpoint)
		src.poller.Start()
	}
	b.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { b.unsubscribe(name, sub.id) }) }, nil
}

func (b *Bus) pollerConfig(name string, cfg SourceConfig) poller.Config {
	pc := poller.DefaultConfig()
	pc.Source = name
	pc.Endpoint = cfg.Endpoint
	if pc.Endpoint == "" {
		pc.Endpoint = fmt.Sprintf("/api/%s/live", name)
	}
	pc.MinInterval = cfg.Interval
	if pc.MinInterval <= 0 {
		pc.MinInterval = b.opts.DefaultInterval
	}
	if b.opts.MaxInterval > 0 {
		pc.MaxInterval = b.opts.MaxInterval
	}
	if b.opts.MaxErrors > 0 {
		pc.MaxErrors = b.opts.MaxErrors
	}
	if b.opts.Timeout > 0 {
		pc.Timeout = b.opts.Timeout
	}
	pc.Params = url.Values{}
	maps.Copy(pc.Params, cfg.Params)
	return pc
}

func (b *Bus) unsubscribe(name, id string) {
	b.mu.Lock()
	src, ok := b.sources[name]
	if !ok {
		b.mu.Unlock()
		return
	}
	src.subs = slices.DeleteFunc(src.subs, func(s *subscriber) bool { return s.id == id })
	if len(src.subs) > 0 {
		b.mu.Unlock()
		return
	}
	delete(b.sources, name)
	b.mu.Unlock()

	src.poller.Stop()
	b.logger.Debug("source released", "source", name)
}

func (b *Bus) handler(src *source) poller.Handler {
	return poller.HandlerFunc(func(p models.Payload) { b.dispatch(src, p) })
}

// dispatch delivers p to every current subscriber of src unless its hash matches the cached payload.
func (b *Bus) dispatch(src *source, p models.Payload) {
	b.mu.Lock()
	if b.closed || b.sources[src.name] != src {
		b.mu.Unlock()
		return
	}
	if p.HasHash() && src.cached != nil && src.cached.Hash == p.Hash {
		b.mu.Unlock()
		b.logger.Debug("dropping duplicate payload", "source", src.name, "hash", p.Hash)
		return
	}
	cached := p
	src.cached = &cached
	subs := slices.Clone(src.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		data := b.transform(src.name, sub, p)
		b.invoke(src.name, sub, data, p)
	}
}

func (b *Bus) transform(name string, sub *subscriber, p models.Payload) (data any) {
	if sub.transform == nil {
		return p
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("transform panicked, delivering raw payload", "source", name, "err", fmt.Errorf("%w: %v", shared.ErrTransformPanic, r))
			data = p
		}
	}()

	out, err := sub.transform(p)
	if err != nil {
		b.logger.Error("transform failed, delivering raw payload", "source", name, "err", err)
		return p
	}
	return out
}

func (b *Bus) invoke(name string, sub *subscriber, data any, p models.Payload) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber callback panicked", "source", name, "subscriber", sub.id, "panic", r)
		}
	}()
	sub.callback(data, p)
}

// SetActive records host visibility. Becoming active resumes every poller; deactivating leaves them running.
func (b *Bus) SetActive(active bool) {
	b.mu.Lock()
	b.active = active
	pollers := b.pollersLocked()
	b.mu.Unlock()

	if active {
		for _, p := range pollers {
			p.Resume()
		}
	}
}

// Active reports the visibility flag.
func (b *Bus) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// PauseAll pauses every poller. Callers that want to stop polling while hidden pair it with [Bus.SetActive].
func (b *Bus) PauseAll() {
	b.mu.Lock()
	pollers := b.pollersLocked()
	b.mu.Unlock()

	for _, p := range pollers {
		p.Pause()
	}
}

// ResumeAll resumes every paused poller.
func (b *Bus) ResumeAll() {
	b.mu.Lock()
	pollers := b.pollersLocked()
	b.mu.Unlock()

	for _, p := range pollers {
		p.Resume()
	}
}

// ForceRefresh forces an immediate poll of name.
func (b *Bus) ForceRefresh(name string) error {
	b.mu.Lock()
	src, ok := b.sources[name]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnknownSource, name)
	}
	src.poller.ForceRefresh()
	return nil
}

// Cached returns the last delivered payload for name.
func (b *Bus) Cached(name string) (models.Payload, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, ok := b.sources[name]
	if !ok || src.cached == nil {
		return models.Payload{}, false
	}
	return *src.cached, true
}

// Sources lists the registered source names in sorted order.
func (b *Bus) Sources() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Sorted(maps.Keys(b.sources))
}

// States snapshots every poller, keyed by source.
func (b *Bus) States() map[string]poller.State {
	b.mu.Lock()
	pollers := make(map[string]*poller.Poller, len(b.sources))
	for name, src := range b.sources {
		pollers[name] = src.poller
	}
	b.mu.Unlock()

	states := make(map[string]poller.State, len(pollers))
	for name, p := range pollers {
		states[name] = p.State()
	}
	return states
}

// Subscribers returns the number of subscribers for name.
func (b *Bus) Subscribers(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if src, ok := b.sources[name]; ok {
		return len(src.subs)
	}
	return 0
}

// Close stops every poller and clears all registries. Later calls are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	pollers := b.pollersLocked()
	b.sources = make(map[string]*source)
	b.mu.Unlock()

	for _, p := range pollers {
		p.Stop()
	}
	b.logger.Debug("update bus closed", "pollers", len(pollers))
}

func (b *Bus) pollersLocked() []*poller.Poller {
	pollers := make([]*poller.Poller, 0, len(b.sources))
	for _, src := range b.sources {
		pollers = append(pollers, src.poller)
	}
	return pollers
}
