package mailer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	mail "gopkg.in/gomail.v2"

	"docually-mailer/internal/config"
)

// SMTPMailer sends emails through a plain SMTP relay
type SMTPMailer struct {
	dialer *mail.Dialer
	config *config.MailConfig
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(cfg *config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		config: cfg,
	}
}

// Send delivers the message over SMTP. SMTP has no provider-assigned message
// id, so one is minted locally and stamped into the Message-Id header.
func (s *SMTPMailer) Send(ctx context.Context, msg Message) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messageID := fmt.Sprintf("<%s@docually>", uuid.NewString())

	m := mail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.config.FromEmail, s.config.FromName))
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-Id", messageID)
	if msg.PlainText != "" {
		m.SetBody("text/plain", msg.PlainText)
		m.AddAlternative("text/html", msg.HTML)
	} else {
		m.SetBody("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return nil, fmt.Errorf("smtp send failed: %w", err)
	}

	logrus.Infof("Sent email to %s via SMTP (message id %s)", msg.To, messageID)
	return &Result{MessageID: messageID}, nil
}

// Close closes the mailer (no-op, connections are per-send)
func (s *SMTPMailer) Close() error {
	return nil
}
