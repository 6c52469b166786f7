package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/realtime"
	"github.com/desertthunder/brewq/internal/shared"
)

const (
	CountsSource    = "orderCounts"
	CountsEndpoint  = "/api/order-count"
	CountsInterval  = 8 * time.Second
	NewOrderMessage = "New order received!"
)

// Subscriber is the part of [realtime.Bus] the watcher needs.
type Subscriber interface {
	Subscribe(name string, callback realtime.Callback, cfg realtime.SourceConfig) (realtime.Unsubscribe, error)
}

// Notifier shows a transient message such as a toast or status line.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

// WatcherOpts configures a [CountWatcher].
type WatcherOpts struct {
	Chime    *Chime
	Notifier Notifier
	OnCounts func(models.Counts) // badge updates; called for every delivery
	Interval time.Duration       // default: CountsInterval
	Logger   *log.Logger
}

// CountWatcher raises a chime and a message when the pending count rises.
type CountWatcher struct {
	opts   WatcherOpts
	logger *log.Logger

	mu    sync.Mutex
	last  int
	unsub realtime.Unsubscribe
}

// NewCountWatcher creates a watcher that is idle until [CountWatcher.Watch].
func NewCountWatcher(opts WatcherOpts) *CountWatcher {
	if opts.Interval <= 0 {
		opts.Interval = CountsInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CountWatcher{opts: opts, logger: logger}
}

// TransformCounts projects an order-count payload to [models.Counts].
func TransformCounts(raw models.Payload) (any, error) {
	return models.DecodeCounts(raw.Body)
}

// Watch subscribes to the order-count source on sub.
func (w *CountWatcher) Watch(sub Subscriber) error {
	unsub, err := sub.Subscribe(CountsSource, w.receive, realtime.SourceConfig{
		Endpoint:  CountsEndpoint,
		Interval:  w.opts.Interval,
		Transform: TransformCounts,
	})
	if err != nil {
		return fmt.Errorf("failed to watch order counts: %w", err)
	}

	w.mu.Lock()
	prev := w.unsub
	w.unsub = unsub
	w.mu.Unlock()
	if prev != nil {
		prev()
	}
	return nil
}

// Stop unsubscribes. It is safe to call more than once.
func (w *CountWatcher) Stop() {
	w.mu.Lock()
	unsub := w.unsub
	w.unsub = nil
	w.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (w *CountWatcher) receive(data any, raw models.Payload) {
	counts, ok := data.(models.Counts)
	if !ok {
		var err error
		if counts, err = models.DecodeCounts(raw.Body); err != nil {
			w.logger.Warn("ignoring undecodable order counts", "error", err)
			return
		}
	}
	w.Handle(counts)
}

// Handle applies one counts update and reports whether it announced a new order.
// The first non-zero count only primes the watcher.
func (w *CountWatcher) Handle(c models.Counts) bool {
	w.mu.Lock()
	rose := w.last > 0 && c.Pending > w.last
	w.last = c.Pending
	w.mu.Unlock()

	if rose {
		w.logger.Info("new order received", "pending", c.Pending)
		w.opts.Chime.Ring()
		if w.opts.Notifier != nil {
			w.opts.Notifier.Notify(NewOrderMessage)
		}
	}
	if w.opts.OnCounts != nil {
		w.opts.OnCounts(c)
	}
	return rose
}

// Last is the most recently seen pending count.
func (w *CountWatcher) Last() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
