package display

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"slices"
	"sync"

	"github.com/desertthunder/brewq/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

type item struct {
	Order   models.Order
	Classes string
	Wait    string
}

type boardView struct {
	Items   []item
	Counts  models.Counts
	Refresh int
}

// MarkupRenderer keeps the board as HTML list items keyed by order id.
// Every user supplied field is escaped by html/template.
type MarkupRenderer struct {
	mu         sync.RWMutex
	thresholds models.Thresholds
	orders     map[int64]models.Order
	ids        []int64
	counts     models.Counts
	revisions  map[int64]int
}

// NewMarkupRenderer creates an empty board coloured by thresholds.
func NewMarkupRenderer(thresholds models.Thresholds) *MarkupRenderer {
	if !thresholds.Valid() {
		thresholds = models.DefaultThresholds()
	}
	return &MarkupRenderer{
		thresholds: thresholds,
		orders:     make(map[int64]models.Order),
		revisions:  make(map[int64]int),
	}
}

// SetThresholds changes the wait-time colouring.
func (m *MarkupRenderer) SetThresholds(t models.Thresholds) {
	if !t.Valid() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds = t
}

func (m *MarkupRenderer) Insert(o models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		m.ids = append(m.ids, o.ID)
	}
	m.orders[o.ID] = o
	m.revisions[o.ID]++
}

func (m *MarkupRenderer) Replace(o models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return
	}
	m.orders[o.ID] = o
	m.revisions[o.ID]++
}

func (m *MarkupRenderer) Remove(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	delete(m.revisions, id)
	m.ids = slices.DeleteFunc(m.ids, func(v int64) bool { return v == id })
}

// Reorder sets the display order. Unknown ids are ignored.
func (m *MarkupRenderer) Reorder(ids []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make([]int64, 0, len(m.orders))
	for _, id := range ids {
		if _, ok := m.orders[id]; ok && !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	for _, id := range m.ids {
		if !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	m.ids = next
}

func (m *MarkupRenderer) UpdateWaitTime(id int64, minutes float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok && minutes > 0 {
		o.WaitTimeMinutes = minutes
		m.orders[id] = o
	}
}

func (m *MarkupRenderer) ShowEmpty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.orders)
	clear(m.revisions)
	m.ids = nil
}

func (m *MarkupRenderer) UpdateCounts(c models.Counts) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = c
}

// Revision reports how many times the element for id has been created or replaced.
func (m *MarkupRenderer) Revision(id int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revisions[id]
}

// IDs returns the rendered order ids in display order.
func (m *MarkupRenderer) IDs() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.ids)
}

// Counts returns the last forwarded counts.
func (m *MarkupRenderer) Counts() models.Counts {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts
}

func (m *MarkupRenderer) view(refresh int) boardView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v := boardView{Counts: m.counts, Refresh: refresh}
	for _, id := range m.ids {
		o := m.orders[id]
		v.Items = append(v.Items, item{Order: o, Classes: m.classes(o), Wait: WaitText(o.WaitTimeMinutes)})
	}
	return v
}

func (m *MarkupRenderer) classes(o models.Order) string {
	classes := "list-group-item d-flex justify-content-between align-items-center"
	switch o.Status {
	case models.StatusPending:
		classes += " border-warning"
	case models.StatusInProgress:
		classes += " border-info"
	}
	switch m.thresholds.Level(o.WaitTimeMinutes) {
	case models.WaitCritical:
		classes += " wait-time-urgent"
	case models.WaitWarning:
		classes += " wait-time-warning"
	}
	return classes
}

// HTML renders the board list.
func (m *MarkupRenderer) HTML() (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "board", m.view(0)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WritePage renders a full kiosk page that reloads itself every refresh seconds.
func (m *MarkupRenderer) WritePage(w io.Writer, refresh int) error {
	return templates.ExecuteTemplate(w, "page", m.view(refresh))
}
