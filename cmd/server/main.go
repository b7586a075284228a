// Package main implements the entry point for the task management API
// server: account registration and login, session tokens, per-user task
// CRUD, and avatar handling.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/platform/postgres"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command (up, down, status) and exit instead of serving")
	flag.Parse()

	if err := run(*migrateCmd); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// run loads configuration, wires the application, and either executes a
// one-off migration command or starts the HTTP server.
func run(migrateCmd string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	if migrateCmd != "" {
		appLogger.Info("running migration command", "command", migrateCmd)
		return postgres.Migrate(ctx, db, migrateCmd)
	}

	// Serving always starts from a fully migrated schema.
	if err := postgres.Migrate(ctx, db, "up"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
