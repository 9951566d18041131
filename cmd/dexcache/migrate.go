package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Strob0t/dexcache/internal/adapter/postgres"
	"github.com/Strob0t/dexcache/internal/config"
)

// runMigrate applies, rolls back or reports the account schema migrations.
func runMigrate(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: dexcache migrate up|down [--steps N]|version")
		return fmt.Errorf("missing migrate command")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()

	switch args[0] {
	case "up":
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Migrations applied")
	case "down":
		fs := flag.NewFlagSet("down", flag.ContinueOnError)
		steps := fs.Int("steps", 1, "number of migrations to roll back")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *steps < 1 {
			return fmt.Errorf("--steps must be at least 1")
		}
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *steps); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Rolled back %d migration(s)\n", *steps)
	case "version":
		v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		fmt.Println(v)
	default:
		return fmt.Errorf("unknown migrate command: %s", args[0])
	}
	return nil
}
