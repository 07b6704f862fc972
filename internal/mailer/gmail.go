package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"docually-mailer/internal/config"
)

// GmailMailer sends emails through the Gmail API
type GmailMailer struct {
	service *gmail.Service
	config  *config.MailConfig
}

// NewGmailMailer creates a new Gmail API mailer
func NewGmailMailer(cfg *config.MailConfig) (*GmailMailer, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailMailer{
		service: service,
		config:  cfg,
	}, nil
}

// Send delivers the message through the Gmail API with quota-aware retries
func (g *GmailMailer) Send(ctx context.Context, msg Message) (*Result, error) {
	raw := g.buildRawMessage(msg)
	message := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := g.service.Users.Messages.Send(g.config.UserEmail, message).Context(ctx).Do()
		if err == nil {
			logrus.Infof("Sent email to %s via Gmail API (message id %s)", msg.To, resp.Id)
			return &Result{MessageID: resp.Id}, nil
		}

		lastErr = err
		logrus.Warnf("Failed to send email (attempt %d/%d): %v", attempt, 3, err)

		if strings.Contains(err.Error(), "quota") || strings.Contains(err.Error(), "rate") {
			waitTime := time.Duration(attempt*attempt) * time.Second
			logrus.Infof("Rate limited, waiting %v before retry", waitTime)
			time.Sleep(waitTime)
		} else {
			break
		}
	}

	return nil, fmt.Errorf("failed to send email after retries: %w", lastErr)
}

// buildRawMessage assembles the RFC 2822 message for the raw Gmail payload
func (g *GmailMailer) buildRawMessage(msg Message) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("From: %s <%s>\r\n", g.config.FromName, g.config.FromEmail))
	b.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	return b.String()
}

// Close closes the mailer (no-op for the Gmail API)
func (g *GmailMailer) Close() error {
	return nil
}
