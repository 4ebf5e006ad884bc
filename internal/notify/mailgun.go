package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	mailgun "github.com/mailgun/mailgun-go/v3"

	"airspace_fan/internal/models"
)

const mailTimeout = 10 * time.Second

// MailConfig holds the Mailgun account and addresses.
type MailConfig struct {
	Domain     string
	APIKey     string
	Sender     string
	Recipients []string
	// OnlyAlerts skips mail for transitions back to normal or unknown.
	OnlyAlerts bool
}

// mailer is the part of the Mailgun client the sink uses.
type mailer interface {
	NewMessage(from, subject, text string, to ...string) *mailgun.Message
	Send(ctx context.Context, m *mailgun.Message) (string, string, error)
}

// MailgunSink e-mails alert transitions.
type MailgunSink struct {
	mg  mailer
	cfg MailConfig
}

// NewMailgun returns a sink using the Mailgun HTTP API.
func NewMailgun(cfg MailConfig) (*MailgunSink, error) {
	if cfg.Domain == "" || cfg.APIKey == "" || cfg.Sender == "" || len(cfg.Recipients) == 0 {
		return nil, errors.New("notify: mailgun domain, api key, sender and recipients are required")
	}
	return &MailgunSink{mg: mailgun.NewMailgun(cfg.Domain, cfg.APIKey), cfg: cfg}, nil
}

// Notify implements threshold.Sink.
func (s *MailgunSink) Notify(ctx context.Context, c models.AlertChange) error {
	if s.cfg.OnlyAlerts && c.To != models.AlertTooHot && c.To != models.AlertTooCold {
		return nil
	}
	subject, body := Message(c)
	msg := s.mg.NewMessage(s.cfg.Sender, subject, body, s.cfg.Recipients...)

	ctx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}
	if id == "" {
		return fmt.Errorf("send alert mail: no message id: %s", resp)
	}
	return nil
}
