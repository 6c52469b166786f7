package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/brewq/internal/display"
	"github.com/desertthunder/brewq/internal/notify"
	"github.com/desertthunder/brewq/internal/repositories"
	"github.com/desertthunder/brewq/internal/shared"
	"github.com/desertthunder/brewq/internal/tasks"
	"github.com/desertthunder/brewq/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch launches the interactive terminal order board.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	client, err := r.connect(ctx)
	if err != nil {
		return err
	}
	db, err := r.database()
	if err != nil {
		return err
	}

	sound, err := notify.NewSoundPreference(repositories.NewPreferenceRepository(db))
	if err != nil {
		r.logger.Warn("failed to load sound preference", "error", err)
	}

	bus := r.newBus(client)
	defer bus.Close()

	// model is assigned before anything can raise an alert.
	var model *ui.Model
	alerts := alertFunc(func(msg string) { model.Alert(msg) })

	trigger, err := r.newTrigger(client, alerts)
	if err != nil {
		return err
	}

	model = ui.NewModel(ctx, ui.Options{
		Bus:         bus,
		Actions:     tasks.NewOrderActions(client, bus, alerts, r.logger),
		Printer:     trigger,
		Sound:       sound,
		Thresholds:  r.thresholds(ctx, client),
		PauseOnBlur: r.config.Polling.PauseOnBlur,
		Logger:      r.logger,
	})

	unsub, err := bus.Subscribe(display.OrdersSource, model.OrdersCallback(), r.ordersFeed())
	if err != nil {
		return fmt.Errorf("failed to subscribe to orders: %w", err)
	}
	defer unsub()

	watcher := notify.NewCountWatcher(notify.WatcherOpts{
		Chime: notify.NewChime(os.Stdout, sound),
		Notifier: notify.NotifierFunc(func(msg string) {
			r.metrics.NewOrder()
			model.Notify(msg)
		}),
		OnCounts: model.SetCounts,
		Interval: r.config.Polling.CountsInterval,
		Logger:   r.logger,
	})
	if err := watcher.Watch(bus); err != nil {
		return err
	}
	defer watcher.Stop()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
