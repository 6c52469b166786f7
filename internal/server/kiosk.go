package server

import (
	"encoding/json"
	"io"
	"maps"
	"net/http"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/brewq/internal/poller"
	"github.com/desertthunder/brewq/internal/shared"
)

const (
	BoardPath   = "/board"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

// Page renders the order board as HTML.
type Page interface {
	WritePage(w io.Writer, refresh int) error
	HTML() (string, error)
}

// StatusSource reports the state of every poller.
type StatusSource interface {
	States() map[string]poller.State
}

// BoardHandler serves the full kiosk page at / and the bare list at /board.
type BoardHandler struct {
	page    Page
	refresh int
	logger  *log.Logger
}

// NewBoardHandler creates a [BoardHandler]. refresh is the page reload interval in seconds.
func NewBoardHandler(page Page, refresh int, logger *log.Logger) *BoardHandler {
	return &BoardHandler{page: page, refresh: refresh, logger: logger}
}

func (h *BoardHandler) Routes() []string {
	return []string{"/{$}", BoardPath}
}

func (h *BoardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if r.URL.Path == BoardPath {
		html, err := h.page.HTML()
		if err != nil {
			h.fail(w, err)
			return
		}
		io.WriteString(w, html)
		return
	}

	if err := h.page.WritePage(w, h.refresh); err != nil {
		h.fail(w, err)
	}
}

func (h *BoardHandler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("failed to render board", "error", err)
	http.Error(w, "Failed to render board", http.StatusInternalServerError)
}

type sourceHealth struct {
	IntervalSeconds float64 `json:"interval_seconds"`
	LastUpdate      float64 `json:"last_update"`
	NoChange        int     `json:"no_change"`
	Errors          int     `json:"errors"`
	Running         bool    `json:"running"`
	Paused          bool    `json:"paused"`
}

type healthReport struct {
	Status  string                  `json:"status"`
	Stopped []string                `json:"stopped,omitempty"`
	Sources map[string]sourceHealth `json:"sources"`
}

// HealthHandler reports poller state as JSON. A source whose poller has
// stopped makes the report degraded with status 503.
type HealthHandler struct {
	source StatusSource
}

func NewHealthHandler(source StatusSource) *HealthHandler {
	return &HealthHandler{source: source}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := healthReport{Status: "ok", Sources: map[string]sourceHealth{}}
	if h.source != nil {
		states := h.source.States()
		for _, name := range slices.Sorted(maps.Keys(states)) {
			st := states[name]
			report.Sources[name] = sourceHealth{
				IntervalSeconds: st.Interval.Seconds(),
				LastUpdate:      float64(st.LastUpdate),
				NoChange:        st.NoChange,
				Errors:          st.Errors,
				Running:         st.Running,
				Paused:          st.Paused,
			}
			if !st.Running {
				report.Stopped = append(report.Stopped, name)
			}
		}
	}

	code := http.StatusOK
	if len(report.Stopped) > 0 {
		report.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(report)
}

// KioskOpts wires the kiosk routes.
type KioskOpts struct {
	Page    Page
	Refresh int          // seconds, default: 5
	Status  StatusSource // optional
	Metrics http.Handler // optional, served at MetricsPath
	Logger  *log.Logger
}

// NewKiosk builds the kiosk router with recovery and request logging.
func NewKiosk(opts KioskOpts) *BasicRouter {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Refresh <= 0 {
		opts.Refresh = 5
	}

	r := NewBasicRouter()
	r.Use(Recover(opts.Logger), Logging(opts.Logger))
	r.Handler(NewBoardHandler(opts.Page, opts.Refresh, opts.Logger))
	r.Handle(http.MethodGet, HealthPath, NewHealthHandler(opts.Status))
	if opts.Metrics != nil {
		r.Handle(http.MethodGet, MetricsPath, opts.Metrics)
	}
	return r
}
