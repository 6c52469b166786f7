package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/brewq/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "brewq",
		Usage:    "Live order board, actions and label printing for the café order server",
		Version:  "0.1.0",
		Flags:    rootFlags(),
		Before:   runner.before,
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Run(ctx, os.Args)
	stop()
	runner.Close()

	if err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
