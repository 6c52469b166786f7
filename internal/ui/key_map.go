package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	start    key.Binding
	complete key.Binding
	remove   key.Binding
	print    key.Binding
	refresh  key.Binding
	mute     key.Binding
	enter    key.Binding
	back     key.Binding
	yes      key.Binding
	no       key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		start:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		remove:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		print:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "print label")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		mute:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "sound")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "dismiss")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.start, k.complete, k.remove, k.print, k.refresh, k.mute, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down},
		{k.start, k.complete, k.remove, k.print},
		{k.refresh, k.mute, k.quit},
	}
}
