package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/brewq/internal/display"
	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/notify"
	"github.com/desertthunder/brewq/internal/server"
	"github.com/desertthunder/brewq/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the kiosk page until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	kiosk := r.config.Kiosk
	if host := cmd.String("host"); host != "" {
		kiosk.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		kiosk.Port = port
	}

	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	page := display.NewMarkupRenderer(r.thresholds(ctx, client))
	reconciler := display.NewReconciler(page, r.logger)

	bus := r.newBus(client)
	defer bus.Close()

	unsub, err := bus.Subscribe(display.OrdersSource, func(data any, raw models.Payload) {
		p, err := display.OrdersFrom(data, raw)
		if err != nil {
			r.logger.Warn("ignoring undecodable orders", "error", err)
			return
		}
		cs, err := reconciler.Apply(p)
		if err != nil {
			r.logger.Warn("failed to reconcile orders", "error", err)
			return
		}
		r.logger.Debug("board updated", "added", len(cs.Added), "updated", len(cs.Updated), "removed", len(cs.Removed))
	}, r.ordersFeed())
	if err != nil {
		return fmt.Errorf("failed to subscribe to orders: %w", err)
	}
	defer unsub()

	watcher := notify.NewCountWatcher(notify.WatcherOpts{
		Notifier: notify.NotifierFunc(func(msg string) {
			r.metrics.NewOrder()
			r.logger.Info(msg)
		}),
		OnCounts: page.UpdateCounts,
		Interval: r.config.Polling.CountsInterval,
		Logger:   r.logger,
	})
	if err := watcher.Watch(bus); err != nil {
		return err
	}
	defer watcher.Stop()

	logger := shared.WithLogger(r.logger, "component", "kiosk")
	router := server.NewKiosk(server.KioskOpts{
		Page:    page,
		Refresh: kiosk.Refresh,
		Status:  bus,
		Metrics: r.metrics.Handler(),
		Logger:  logger,
	})

	logger.Info("kiosk listening", "url", "http://"+kiosk.Addr())
	return server.New(kiosk.Addr(), router, logger).Run(ctx)
}
