package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/brewq/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded template when missing, then initializes the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("using existing config file", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		r.config = config
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	db, err := r.database()
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		r.logger.Info("rolled back latest migration")
	}

	applied, err := shared.AppliedMigrations(db)
	if err != nil {
		return err
	}

	r.writePlain("✓ Config: %s\n", configPath)
	r.writePlain("✓ Database: %s (%d migrations applied)\n", r.config.Database.Path, applied)
	r.writePlainln("Next: run 'brewq watch' for the terminal board or 'brewq serve' for the kiosk page.")
	return nil
}
