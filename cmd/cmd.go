// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/desertthunder/brewq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// rootFlags are shared by every command.
func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

// setupCommand writes the config file and initializes the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and run database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration after migrating",
			},
		},
		Action: r.Setup,
	}
}

// watchCommand launches the terminal order board.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"board", "tui"},
		Usage:   "Watch live orders in an interactive terminal board",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the board owns the terminal",
				Value: "./tmp/brewq-watch.log",
			},
		},
		Action: r.Watch,
	}
}

// serveCommand runs the HTML kiosk board.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"kiosk"},
		Usage:   "Serve the live order board as an auto-refreshing web page",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides kiosk.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides kiosk.port)",
			},
		},
		Action: r.Serve,
	}
}

// ordersCommand prints a one-shot snapshot of the active orders.
func ordersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "Print the active orders",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, csv, markdown or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Write to orders.<ext> in the current directory",
			},
		},
		Action: r.Orders,
	}
}

// orderCommand changes the status of one or more orders.
func orderCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "order",
		Usage: "Start, complete or delete orders",
		Commands: []*cli.Command{
			{
				Name:      "start",
				Usage:     "Mark orders as in progress",
				ArgsUsage: "<id>...",
				Flags:     []cli.Flag{workersFlag()},
				Action:    r.OrderAction(tasks.ActionStart),
			},
			{
				Name:      "complete",
				Aliases:   []string{"done"},
				Usage:     "Mark orders as completed",
				ArgsUsage: "<id>...",
				Flags:     []cli.Flag{workersFlag()},
				Action:    r.OrderAction(tasks.ActionComplete),
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete orders",
				ArgsUsage: "<id>...",
				Flags:     []cli.Flag{workersFlag()},
				Action:    r.OrderAction(tasks.ActionDelete),
			},
		},
	}
}

func workersFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "workers",
		Aliases: []string{"w"},
		Usage:   "Concurrent requests when several ids are given",
		Value:   3,
	}
}

// labelCommand prints labels and inspects the print history.
func labelCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "label",
		Usage: "Print order labels",
		Commands: []*cli.Command{
			{
				Name:      "print",
				Usage:     "Download and print the label for an order",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.LabelPrint,
			},
			{
				Name:  "history",
				Usage: "List recent print jobs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "order",
						Usage: "Only jobs for this order id",
					},
					&cli.StringFlag{
						Name:  "outcome",
						Usage: "Only jobs with this outcome (printed, failed, closed, timed_out, blocked)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of jobs to list",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LabelHistory,
			},
			{
				Name:  "prune",
				Usage: "Delete print history older than a duration",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Age of the jobs to delete",
						Value: 7 * 24 * time.Hour,
					},
				},
				Action: r.LabelPrune,
			},
		},
	}
}

// soundCommand manages the new-order chime preference.
func soundCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sound",
		Usage: "Enable, disable or show the new-order chime",
		Commands: []*cli.Command{
			{Name: "on", Usage: "Enable the chime", Action: r.SoundSet(true)},
			{Name: "off", Usage: "Disable the chime", Action: r.SoundSet(false)},
			{Name: "status", Usage: "Show whether the chime is enabled", Action: r.SoundStatus},
		},
	}
}

// thresholdsCommand prints the server's wait-time thresholds.
func thresholdsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "thresholds",
		Usage: "Show the wait-time warning thresholds",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Thresholds,
	}
}
