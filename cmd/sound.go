package main

import (
	"context"

	"github.com/desertthunder/brewq/internal/notify"
	"github.com/desertthunder/brewq/internal/repositories"
	"github.com/urfave/cli/v3"
)

func (r *Runner) soundPreference() (*notify.SoundPreference, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return notify.NewSoundPreference(repositories.NewPreferenceRepository(db))
}

// SoundSet returns an action that stores the chime toggle.
func (r *Runner) SoundSet(enabled bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		pref, err := r.soundPreference()
		if err != nil {
			return err
		}
		if err := pref.SetEnabled(enabled); err != nil {
			return err
		}
		return r.writePlain("✓ new-order chime %s\n", onOff(enabled))
	}
}

// SoundStatus prints the stored chime toggle.
func (r *Runner) SoundStatus(ctx context.Context, cmd *cli.Command) error {
	pref, err := r.soundPreference()
	if err != nil {
		return err
	}
	return r.writePlain("new-order chime: %s\n", onOff(pref.Enabled()))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
