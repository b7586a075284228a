package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/phrazzld/taskman-api/internal/platform/postgres"
	"github.com/phrazzld/taskman-api/internal/service/auth"
	"github.com/phrazzld/taskman-api/internal/service/avatar"
	"github.com/phrazzld/taskman-api/internal/service/mail"
	"github.com/phrazzld/taskman-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore store.UserStore
	taskStore store.TaskStore

	jwtService       auth.JWTService
	passwordHasher   auth.PasswordHasher
	passwordVerifier auth.PasswordVerifier
	mailer           mail.Mailer
	avatars          avatar.Processor
}

// newApplication creates a new application instance with all dependencies
// initialized.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	app.passwordHasher = hasher
	app.passwordVerifier = hasher

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	if cfg.Mail.SendGridAPIKey != "" {
		app.mailer = mail.NewSendGridMailer(cfg.Mail)
		logger.Info("SendGrid mailer initialized", "from", cfg.Mail.FromAddress)
	} else {
		app.mailer = mail.NewNoopMailer()
		logger.Warn("no mail API key configured, notifications disabled")
	}

	app.avatars = avatar.NewImagingProcessor()

	logger.Info("application initialized")
	return app, nil
}
