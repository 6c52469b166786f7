package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SoundEnabledKey stores whether the new-order chime is audible.
const SoundEnabledKey = "soundEnabled"

// Preference is a single persisted client setting.
type Preference struct {
	Name      string
	Value     string
	UpdatedAt time.Time
}

// PreferenceRepository stores client settings as name/value pairs.
type PreferenceRepository struct {
	db Querier
}

// NewPreferenceRepository creates a new [PreferenceRepository] with the given database connection
func NewPreferenceRepository(db Querier) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get returns the stored value for name and whether it was set.
func (r *PreferenceRepository) Get(name string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM preferences WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query preference %s: %w", name, err)
	}
	return value, true, nil
}

// Set inserts or replaces the value for name.
func (r *PreferenceRepository) Set(name, value string) error {
	if name == "" {
		return fmt.Errorf("preference name is required")
	}

	query := `
		INSERT INTO preferences (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, name, value, time.Now()); err != nil {
		return fmt.Errorf("failed to save preference %s: %w", name, err)
	}
	return nil
}

// Bool reads a boolean preference, returning def when unset.
// A value that does not parse is an error and def is returned with it.
func (r *PreferenceRepository) Bool(name string, def bool) (bool, error) {
	value, ok, err := r.Get(name)
	if err != nil || !ok {
		return def, err
	}
	b, err := parseBool(value)
	if err != nil {
		return def, fmt.Errorf("preference %s: %w", name, err)
	}
	return b, nil
}

// SetBool stores a boolean preference.
func (r *PreferenceRepository) SetBool(name string, value bool) error {
	return r.Set(name, formatBool(value))
}

// Delete removes name; missing names are not an error.
func (r *PreferenceRepository) Delete(name string) error {
	if _, err := r.db.Exec(`DELETE FROM preferences WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", name, err)
	}
	return nil
}

// List returns every preference ordered by name.
func (r *PreferenceRepository) List() ([]Preference, error) {
	rows, err := r.db.Query(`SELECT name, value, updated_at FROM preferences ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.Name, &p.Value, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		prefs = append(prefs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return prefs, nil
}

// SoundEnabled reports the chime setting, enabled unless explicitly turned off.
func (r *PreferenceRepository) SoundEnabled() (bool, error) {
	return r.Bool(SoundEnabledKey, true)
}

// SetSoundEnabled persists the chime setting.
func (r *PreferenceRepository) SetSoundEnabled(enabled bool) error {
	return r.SetBool(SoundEnabledKey, enabled)
}
