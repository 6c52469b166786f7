package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Thresholds prints the wait-time thresholds the server uses to colour orders.
func (r *Runner) Thresholds(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	t, err := client.WaitTimeThresholds(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(t, true)
	}
	r.writePlain("warning after %d minutes\n", t.Yellow)
	return r.writePlain("urgent after %d minutes\n", t.Red)
}
