package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/desertthunder/brewq/internal/display"
	"github.com/desertthunder/brewq/internal/formatter"
	"github.com/desertthunder/brewq/internal/models"
)

var (
	_ list.Item         = orderItem{}
	_ list.ItemDelegate = orderDelegate{}
)

// clean strips escape sequences and control characters from server text.
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, ansi.Strip(s))
}

// orderItem wraps [models.Order] to implement [list.Item].
type orderItem struct {
	order models.Order
	wait  float64
	level models.WaitLevel
}

func (i orderItem) FilterValue() string { return clean(i.order.CustomerName) }
func (i orderItem) Title() string {
	return fmt.Sprintf("#%d %s · %s", i.order.ID, clean(i.order.CustomerName), clean(i.order.Drink))
}
func (i orderItem) Description() string {
	desc := clean(formatter.Details(i.order))
	if i.order.Notes != "" {
		if desc != "" {
			desc += " • "
		}
		desc += clean(i.order.Notes)
	}
	return desc
}

// orderDelegate renders an order as a title line and a detail line.
type orderDelegate struct{}

func (d orderDelegate) Height() int  { return 2 }
func (d orderDelegate) Spacing() int { return 1 }

func (d orderDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

func (d orderDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(orderItem)
	if !ok {
		return
	}

	cursor := "  "
	title := it.Title()
	if index == m.Index() {
		cursor = styles.selected.Render("> ")
		title = styles.selected.Render(title)
	}

	line := fmt.Sprintf("%s%s  %s", cursor, title, styles.status(it.order.Status))
	if wt := display.WaitText(it.wait); wt != "" {
		line += "  " + styles.wait(wt, it.level)
	}
	detail := "  " + styles.help.Render(it.Description())

	fmt.Fprintf(w, "%s\n%s", line, detail)
}
