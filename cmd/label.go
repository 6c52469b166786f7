package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/brewq/internal/printing"
	"github.com/desertthunder/brewq/internal/repositories"
	"github.com/desertthunder/brewq/internal/shared"
	"github.com/urfave/cli/v3"
)

// LabelPrint downloads the label for one order and sends it to the printer, waiting for the job to finish.
func (r *Runner) LabelPrint(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	client, err := r.connect(ctx)
	if err != nil {
		return err
	}
	trigger, err := r.newTrigger(client, r.logAlerts())
	if err != nil {
		return err
	}

	job, err := trigger.Print(ctx, id)
	if err != nil {
		return err
	}
	r.logger.Info("waiting for label", "order", id, "job", job.ID())

	res, err := job.Wait(ctx)
	if err != nil {
		return err
	}
	if res.Outcome != printing.OutcomePrinted {
		return fmt.Errorf("%w: order %d: %s: %v", shared.ErrPrintFailed, id, res.Outcome, res.Err)
	}

	if res.Fallback {
		return r.writePlain("✓ label for order %d sent to printer (readiness not observed)\n", id)
	}
	return r.writePlain("✓ label for order %d sent to printer\n", id)
}

// LabelHistory lists recorded print jobs.
func (r *Runner) LabelHistory(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if order := int64(cmd.Int("order")); order > 0 {
		criteria["order_id"] = order
	}
	if outcome := cmd.String("outcome"); outcome != "" {
		criteria["outcome"] = printing.Outcome(outcome)
	}

	jobs, err := repositories.NewPrintJobRepository(db).List(criteria)
	if err != nil {
		return err
	}
	total, err := repositories.Count(db, "print_jobs")
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(jobs, true)
	}

	if len(jobs) == 0 {
		return r.writePlain("No print jobs recorded\n")
	}

	r.writePlainHeader(fmt.Sprintf("Print jobs (%d of %d)", len(jobs), total))
	for _, job := range jobs {
		r.writePlain("%s  order %-6d %-10s %s\n", job.CreatedAt.Local().Format(time.DateTime), job.OrderID, job.Outcome, job.Detail)
	}
	return nil
}

// LabelPrune deletes print history older than --older-than.
func (r *Runner) LabelPrune(ctx context.Context, cmd *cli.Command) error {
	age := cmd.Duration("older-than")
	if age <= 0 {
		return fmt.Errorf("%w: --older-than must be positive", shared.ErrInvalidArgument)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	n, err := repositories.NewPrintJobRepository(db).Prune(time.Now().Add(-age))
	if err != nil {
		return err
	}
	return r.writePlain("✓ removed %d print jobs\n", n)
}
