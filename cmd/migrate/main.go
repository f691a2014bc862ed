// Package main provides the schema migration CLI.
// Usage: migrate up
//
//	migrate down [steps]
//	migrate version
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"buildplus/internal/config"
	"buildplus/internal/infrastructure/storage/postgres"
	"buildplus/pkg/logger"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "up", "down", "version":
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(version)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		fmt.Printf("Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	ctx := logger.WithLogger(context.Background(), log)

	if err := run(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, command string, args []string) error {
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	m, err := postgres.NewMigrator(pool)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	switch command {
	case "up":
		return m.Up(ctx)
	case "down":
		steps := 1
		if len(args) > 0 {
			steps, err = strconv.Atoi(args[0])
			if err != nil || steps <= 0 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
		}
		return m.Down(ctx, steps)
	default:
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", v, dirty)
		return nil
	}
}

func printUsage() {
	fmt.Println(`BuildPlus schema migrations

Usage:
  migrate <command> [options]

Commands:
  up             Apply all pending migrations
  down [steps]   Roll back steps migrations (default 1)
  version        Print the current schema version
  help           Show this help

Configuration is read from CONFIG_PATH (default config.yaml) and the
environment; run the server with --help for the full reference.`)
}
