package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/taskman-api/internal/service/mail"
)

// SentMail records one notification captured by the RecordingMailer.
type SentMail struct {
	Kind  string
	Email string
	Name  string
}

// RecordingMailer implements mail.Mailer and records what was sent.
// Safe for concurrent use since notifications fire from goroutines.
type RecordingMailer struct {
	mu   sync.Mutex
	sent []SentMail

	// Err, when set, is returned by both send methods.
	Err error
}

var _ mail.Mailer = (*RecordingMailer)(nil)

// NewRecordingMailer creates a RecordingMailer.
func NewRecordingMailer() *RecordingMailer {
	return &RecordingMailer{}
}

// SendWelcome implements the Mailer interface
func (m *RecordingMailer) SendWelcome(ctx context.Context, email, name string) error {
	return m.record("welcome", email, name)
}

// SendCancellation implements the Mailer interface
func (m *RecordingMailer) SendCancellation(ctx context.Context, email, name string) error {
	return m.record("cancellation", email, name)
}

// Sent returns a copy of the recorded notifications.
func (m *RecordingMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMail, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *RecordingMailer) record(kind, email, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentMail{Kind: kind, Email: email, Name: name})
	return nil
}
