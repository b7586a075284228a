// Package mail sends transactional account emails. Dispatch is best-effort:
// callers log failures and never surface them to the client or roll back
// committed state.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
)

// Mailer dispatches transactional account emails.
type Mailer interface {
	// SendWelcome sends the account-creation greeting.
	SendWelcome(ctx context.Context, email, name string) error

	// SendCancellation sends the account-deletion goodbye.
	SendCancellation(ctx context.Context, email, name string) error
}

// SendGridMailer implements Mailer using the SendGrid v3 API.
type SendGridMailer struct {
	client      *sendgrid.Client
	fromAddress string
	fromName    string
}

// Ensure implementations satisfy the interface.
var (
	_ Mailer = (*SendGridMailer)(nil)
	_ Mailer = (*NoopMailer)(nil)
)

// NewSendGridMailer creates a Mailer backed by SendGrid.
func NewSendGridMailer(cfg config.MailConfig) *SendGridMailer {
	return &SendGridMailer{
		client:      sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}
}

// SendWelcome implements Mailer.SendWelcome.
func (m *SendGridMailer) SendWelcome(ctx context.Context, email, name string) error {
	subject := "Thanks for joining in!"
	body := fmt.Sprintf(
		"Welcome to Task Manager, %s! Let me know how you get along with the app.", name)
	return m.send(ctx, email, name, subject, body)
}

// SendCancellation implements Mailer.SendCancellation.
func (m *SendGridMailer) SendCancellation(ctx context.Context, email, name string) error {
	subject := "Sorry to see you go!"
	body := fmt.Sprintf("Goodbye, %s. We hope to see you back sometime soon.", name)
	return m.send(ctx, email, name, subject, body)
}

func (m *SendGridMailer) send(ctx context.Context, email, name, subject, body string) error {
	from := sgmail.NewEmail(m.fromName, m.fromAddress)
	to := sgmail.NewEmail(name, email)
	message := sgmail.NewSingleEmail(from, subject, to, body, body)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to dispatch email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("email gateway returned status %d", resp.StatusCode)
	}

	logger.FromContext(ctx).Debug("email dispatched",
		slog.String("subject", subject),
		slog.Int("status_code", resp.StatusCode))
	return nil
}

// NoopMailer is used when no outbound-mail API key is configured. It logs
// the would-be message and succeeds, keeping notification failures from
// ever affecting the request path in development setups.
type NoopMailer struct{}

// NewNoopMailer creates a NoopMailer.
func NewNoopMailer() *NoopMailer {
	return &NoopMailer{}
}

// SendWelcome implements Mailer.SendWelcome.
func (m *NoopMailer) SendWelcome(ctx context.Context, email, name string) error {
	logger.FromContext(ctx).Info("mail disabled, skipping welcome email",
		slog.String("name", name))
	return nil
}

// SendCancellation implements Mailer.SendCancellation.
func (m *NoopMailer) SendCancellation(ctx context.Context, email, name string) error {
	logger.FromContext(ctx).Info("mail disabled, skipping cancellation email",
		slog.String("name", name))
	return nil
}
