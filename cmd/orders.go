package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/brewq/internal/formatter"
	"github.com/desertthunder/brewq/internal/shared"
	"github.com/desertthunder/brewq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Orders prints the active orders in the requested format.
func (r *Runner) Orders(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	payload, err := client.PendingOrders(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch orders: %w", err)
	}

	if out := cmd.String("output"); out != "" || cmd.Bool("save") {
		path, err := formatter.WriteOrdersFile(*payload, format, out)
		if err != nil {
			return err
		}
		r.logger.Info("orders written", "path", path, "count", len(payload.Orders))
		return nil
	}

	return formatter.WriteOrders(r.output, *payload, format)
}

// OrderAction returns the action for an order subcommand. A single id is applied directly;
// several ids go through the bulk worker pool.
func (r *Runner) OrderAction(action tasks.Action) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		ids, err := parseIDs(cmd.Args().Slice())
		if err != nil {
			return err
		}

		client, err := r.connect(ctx)
		if err != nil {
			return err
		}
		actions := tasks.NewOrderActions(client, nil, r.logAlerts(), r.logger)

		if len(ids) == 1 {
			if err := actions.Apply(ctx, action, ids[0]); err != nil {
				return err
			}
			return r.writePlain("✓ order %d: %s\n", ids[0], action)
		}

		progress := make(chan tasks.ProgressUpdate, len(ids)+2)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for update := range progress {
				r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
			}
		}()

		result, err := actions.Bulk(ctx, progress, action, ids, tasks.BulkOpts{
			NumWorkers: int(cmd.Int("workers")),
			RateLimit:  r.config.Server.ActionRate,
		})
		close(progress)
		<-done
		if err != nil && result == nil {
			return err
		}

		r.writePlainHeader(fmt.Sprintf("%s: %d orders", action, result.Total))
		for _, res := range result.Results {
			if res.Err != nil {
				r.writePlain("✗ %d: %v\n", res.OrderID, res.Err)
				continue
			}
			r.writePlain("✓ %d\n", res.OrderID)
		}
		r.writePlainln("%d succeeded, %d failed", result.Succeeded, result.Failed)

		if err != nil {
			return err
		}
		if result.Failed > 0 {
			return fmt.Errorf("%w: %d of %d orders failed", shared.ErrAPIRequest, result.Failed, result.Total)
		}
		return nil
	}
}

func parseID(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return 0, fmt.Errorf("%w: order id", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: order id %q", shared.ErrInvalidArgument, s)
	}
	return id, nil
}

// parseIDs parses order ids, dropping duplicates while keeping their order.
func parseIDs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: at least one order id", shared.ErrMissingArgument)
	}

	ids := make([]int64, 0, len(args))
	seen := make(map[int64]bool, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}
