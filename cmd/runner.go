package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/brewq/internal/display"
	"github.com/desertthunder/brewq/internal/metrics"
	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/printing"
	"github.com/desertthunder/brewq/internal/realtime"
	"github.com/desertthunder/brewq/internal/repositories"
	"github.com/desertthunder/brewq/internal/services"
	"github.com/desertthunder/brewq/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	client     *services.Client
	metrics    *metrics.Metrics
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
	closers    []io.Closer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Client     *services.Client // created from Config on first use when nil
	Metrics    *metrics.Metrics
	DB         *sql.DB // opened from Config on first use when nil
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		client:     opts.Client,
		metrics:    opts.Metrics,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, watchCommand, serveCommand, ordersCommand, orderCommand, labelCommand, soundCommand, thresholdsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the configuration named by --config and applies --verbose.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	r.configPath = path
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// SetLogger replaces the logger, keeping the current level.
func (r *Runner) SetLogger(l *log.Logger) {
	l.SetLevel(r.logger.GetLevel())
	r.logger = l
}

// connect returns the order server client, logging in when credentials are configured.
func (r *Runner) connect(ctx context.Context) (*services.Client, error) {
	if r.client != nil {
		return r.client, nil
	}

	cfg := r.config.Server
	client, err := services.NewClient(services.ClientOpts{
		BaseURL:    cfg.BaseURL,
		Token:      cfg.Token,
		Timeout:    cfg.Timeout,
		ActionRate: cfg.ActionRate,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if cfg.Username != "" {
		if err := client.Login(ctx, cfg.Username, cfg.Password); err != nil {
			return nil, err
		}
		r.logger.Debug("logged in", "user", cfg.Username)
	}

	r.client = client
	return client, nil
}

// database opens the configured database and runs pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// Close releases label files and the database handle.
func (r *Runner) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	return errors.Join(errs...)
}

func (r *Runner) newBus(client *services.Client) *realtime.Bus {
	cfg := r.config
	return realtime.NewBus(realtime.BusOpts{
		Fetcher:         client,
		Logger:          shared.WithLogger(r.logger, "component", "bus"),
		Observer:        r.metrics,
		DefaultInterval: cfg.Polling.OrdersInterval,
		MaxInterval:     cfg.Polling.MaxInterval,
		MaxErrors:       cfg.Polling.MaxErrors,
		Timeout:         cfg.Server.Timeout,
	})
}

func (r *Runner) ordersFeed() realtime.SourceConfig {
	return realtime.SourceConfig{
		Endpoint:  display.OrdersEndpoint,
		Interval:  r.config.Polling.OrdersInterval,
		Params:    display.OrdersParams(),
		Transform: display.DecodeOrders,
	}
}

// newTrigger builds a label print trigger. Finished jobs are counted and stored in the print history.
func (r *Runner) newTrigger(client *services.Client, alerter printing.Alerter) (*printing.Trigger, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	cfg := r.config.Printing
	opener := printing.NewLabelOpener(client, printing.LabelOptions{
		Printer:    cfg.Printer,
		OpenViewer: cfg.OpenViewer,
	}, r.logger)
	r.closers = append(r.closers, opener)

	return printing.NewTrigger(opener, alerter, printing.TriggerOpts{
		Timing: printing.Timing{
			PollInterval:  cfg.PollInterval,
			SettleDelay:   cfg.SettleDelay,
			FallbackDelay: cfg.FallbackDelay,
			Timeout:       cfg.Timeout,
		},
		Logger:   r.logger,
		Recorder: r.metrics.Recorder(repositories.NewPrintJobRepository(db)),
	}), nil
}

// thresholds fetches the wait-time thresholds, falling back to the defaults.
func (r *Runner) thresholds(ctx context.Context, client *services.Client) models.Thresholds {
	t, err := client.WaitTimeThresholds(ctx)
	if err != nil {
		r.logger.Warn("using default wait-time thresholds", "error", err)
	}
	return t
}

// alertFunc adapts a function to the alerter interfaces of tasks and printing.
type alertFunc func(msg string)

func (f alertFunc) Alert(msg string) { f(msg) }

func (r *Runner) logAlerts() alertFunc {
	return func(msg string) { r.logger.Error(msg) }
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
