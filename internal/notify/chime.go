package notify

import (
	"fmt"
	"io"
	"sync"
)

const bell = "\a"

// SoundStore persists the chime toggle.
type SoundStore interface {
	SoundEnabled() (bool, error)
	SetSoundEnabled(enabled bool) error
}

// SoundPreference caches the chime toggle in front of an optional store.
type SoundPreference struct {
	mu      sync.Mutex
	store   SoundStore
	enabled bool
}

// NewSoundPreference loads the stored toggle. With a nil store sound starts
// enabled and changes live only in memory. A load error keeps sound enabled
// and is returned so the caller can log it.
func NewSoundPreference(store SoundStore) (*SoundPreference, error) {
	p := &SoundPreference{store: store, enabled: true}
	if store == nil {
		return p, nil
	}
	enabled, err := store.SoundEnabled()
	if err != nil {
		return p, fmt.Errorf("failed to load sound preference: %w", err)
	}
	p.enabled = enabled
	return p, nil
}

// Enabled reports whether the chime is audible.
func (p *SoundPreference) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// SetEnabled updates and persists the toggle. The in-memory value changes
// even when persisting fails.
func (p *SoundPreference) SetEnabled(enabled bool) error {
	p.mu.Lock()
	p.enabled = enabled
	store := p.store
	p.mu.Unlock()

	if store == nil {
		return nil
	}
	if err := store.SetSoundEnabled(enabled); err != nil {
		return fmt.Errorf("failed to save sound preference: %w", err)
	}
	return nil
}

// Toggle flips the toggle and returns the new value.
func (p *SoundPreference) Toggle() (bool, error) {
	next := !p.Enabled()
	return next, p.SetEnabled(next)
}

// Chime rings the terminal bell.
type Chime struct {
	mu    sync.Mutex
	w     io.Writer
	sound *SoundPreference
}

// NewChime writes the bell to w. A nil sound preference means always audible.
func NewChime(w io.Writer, sound *SoundPreference) *Chime {
	return &Chime{w: w, sound: sound}
}

// Ring sounds the bell unless muted and reports whether it did.
func (c *Chime) Ring() bool {
	if c == nil || c.w == nil {
		return false
	}
	if c.sound != nil && !c.sound.Enabled() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, bell)
	return err == nil
}
