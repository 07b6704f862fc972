// Package mailer abstracts the outbound mail provider. Two backends are
// supported: plain SMTP and the Gmail API, selected by mail.provider.
package mailer

import (
	"context"
	"fmt"

	"docually-mailer/internal/config"
)

// Message is a single outbound email
type Message struct {
	To        string
	Subject   string
	HTML      string
	PlainText string
}

// Result carries the provider's send outcome
type Result struct {
	MessageID string
}

// Mailer sends emails through an outbound provider
type Mailer interface {
	Send(ctx context.Context, msg Message) (*Result, error)
	Close() error
}

// NewFromConfig constructs the mailer selected by cfg.Provider
func NewFromConfig(cfg *config.MailConfig) (Mailer, error) {
	switch cfg.Provider {
	case "smtp":
		return NewSMTPMailer(cfg), nil
	case "gmail":
		return NewGmailMailer(cfg)
	default:
		return nil, fmt.Errorf("unknown mail provider: %s", cfg.Provider)
	}
}
