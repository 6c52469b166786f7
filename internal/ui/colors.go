package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/brewq/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// interface Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title    lipgloss.Style
	ok       lipgloss.Style
	err      lipgloss.Style
	warn     lipgloss.Style
	help     lipgloss.Style
	selected lipgloss.Style
	banner   lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:    NewBold(t).MarginBottom(1),
		ok:       NewBold(s),
		err:      NewBold(e),
		warn:     NewStyle(w),
		help:     NewEm(h),
		selected: NewBold(t),
		banner:   NewBold(e).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(e)).Padding(0, 2),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func (p *Palette) On(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Background(c).Render(s)
}

func (p *Palette) As(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

// status colours an order status label.
func (p *Palette) status(s models.Status) string {
	switch s {
	case models.StatusPending:
		return p.warn.Render(s.Label())
	case models.StatusInProgress:
		return p.As(s.Label(), lipgloss.Color("#3B82F6"))
	case models.StatusCompleted:
		return p.ok.Render(s.Label())
	default:
		return s.Label()
	}
}

// wait colours a wait-time label by level.
func (p *Palette) wait(text string, level models.WaitLevel) string {
	switch level {
	case models.WaitCritical:
		return p.err.Render(text)
	case models.WaitWarning:
		return p.warn.Bold(true).Render(text)
	default:
		return p.help.Render(text)
	}
}
