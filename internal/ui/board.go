package ui

import (
	"slices"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/brewq/internal/display"
	"github.com/desertthunder/brewq/internal/models"
)

var _ display.Renderer = (*Board)(nil)

// Board is the terminal [display.Renderer]: an ordered set of rows.
//
// It is owned by the bubbletea loop and is not safe for concurrent use.
type Board struct {
	rows       map[int64]*orderItem
	order      []int64
	counts     models.Counts
	empty      bool
	thresholds models.Thresholds
	revisions  map[int64]int
}

// NewBoard creates an empty board.
func NewBoard(thresholds models.Thresholds) *Board {
	if !thresholds.Valid() {
		thresholds = models.DefaultThresholds()
	}
	return &Board{
		rows:       make(map[int64]*orderItem),
		revisions:  make(map[int64]int),
		thresholds: thresholds,
	}
}

func (b *Board) Insert(o models.Order) {
	b.empty = false
	if _, ok := b.rows[o.ID]; !ok {
		b.order = append(b.order, o.ID)
	}
	b.rows[o.ID] = b.item(o)
	b.revisions[o.ID]++
}

func (b *Board) Replace(o models.Order) {
	if _, ok := b.rows[o.ID]; !ok {
		b.Insert(o)
		return
	}
	b.rows[o.ID] = b.item(o)
	b.revisions[o.ID]++
}

func (b *Board) Remove(id int64) {
	delete(b.rows, id)
	delete(b.revisions, id)
	b.order = slices.DeleteFunc(b.order, func(v int64) bool { return v == id })
}

// Reorder moves known ids into the given order. Rows missing from ids keep
// their relative order at the end.
func (b *Board) Reorder(ids []int64) {
	next := make([]int64, 0, len(b.order))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if _, ok := b.rows[id]; ok && !seen[id] {
			next = append(next, id)
			seen[id] = true
		}
	}
	for _, id := range b.order {
		if !seen[id] {
			next = append(next, id)
		}
	}
	b.order = next
}

func (b *Board) UpdateWaitTime(id int64, minutes float64) {
	row, ok := b.rows[id]
	if !ok {
		return
	}
	row.wait = minutes
	row.level = b.thresholds.Level(minutes)
}

func (b *Board) ShowEmpty() {
	clear(b.rows)
	clear(b.revisions)
	b.order = nil
	b.empty = true
}

func (b *Board) UpdateCounts(c models.Counts) { b.counts = c }

func (b *Board) item(o models.Order) *orderItem {
	return &orderItem{order: o, wait: o.WaitTimeMinutes, level: b.thresholds.Level(o.WaitTimeMinutes)}
}

// SetThresholds recolours every row.
func (b *Board) SetThresholds(t models.Thresholds) {
	if !t.Valid() {
		return
	}
	b.thresholds = t
	for _, row := range b.rows {
		row.level = t.Level(row.wait)
	}
}

// Items returns the rows in board order for a [list.Model].
func (b *Board) Items() []list.Item {
	items := make([]list.Item, 0, len(b.order))
	for _, id := range b.order {
		items = append(items, *b.rows[id])
	}
	return items
}

// IDs returns the order ids in board order.
func (b *Board) IDs() []int64 { return slices.Clone(b.order) }

// Len is the number of rows.
func (b *Board) Len() int { return len(b.order) }

// Empty reports whether the placeholder is showing.
func (b *Board) Empty() bool { return b.empty || len(b.order) == 0 }

// Counts returns the last forwarded totals.
func (b *Board) Counts() models.Counts { return b.counts }

// Revision counts how many times the row for id was built.
func (b *Board) Revision(id int64) int { return b.revisions[id] }
