// Package delivery orchestrates one email-send attempt end to end: audit log
// first, then template rendering, then the outbound provider call, then the
// final status transition.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"docually-mailer/internal/mailer"
	"docually-mailer/internal/metrics"
	"docually-mailer/internal/model"
	"docually-mailer/internal/repository"
)

// EmailLogStore is the slice of the repository the delivery service needs
type EmailLogStore interface {
	Create(params repository.CreateParams) (string, error)
	UpdateStatus(id, status string, patch model.Metadata) error
	PendingReminders(now time.Time) ([]model.EmailLog, error)
}

// Renderer renders a named template into a self-contained HTML document
type Renderer interface {
	Render(templateName string, data map[string]interface{}, emailID string) (string, error)
}

// ValidationError reports a missing required input
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// DeliveryError reports that the outbound provider rejected or failed the
// send. The associated email log has already been marked failed.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// SendParams are the inputs for one send attempt
type SendParams struct {
	To           string
	Subject      string
	TemplateName string
	TemplateData map[string]interface{}
	DocumentID   string
	RecipientID  string
}

// SendResult is returned on a successful send
type SendResult struct {
	MessageID  string
	EmailLogID string
}

// Service orchestrates email sending with auditable logging
type Service struct {
	store    EmailLogStore
	renderer Renderer
	mailer   mailer.Mailer
	metrics  *metrics.Metrics
}

// NewService creates a new delivery service
func NewService(store EmailLogStore, renderer Renderer, m mailer.Mailer, met *metrics.Metrics) *Service {
	return &Service{
		store:    store,
		renderer: renderer,
		mailer:   m,
		metrics:  met,
	}
}

// Send performs one send attempt. The audit row is created with status
// pending before the provider is called, so a crash mid-send still leaves a
// record. A render failure leaves the row pending; a provider outcome always
// transitions it to sent or failed. No automatic retry: a retry is a fresh
// Send and a fresh log row.
func (s *Service) Send(ctx context.Context, params SendParams) (*SendResult, error) {
	if params.To == "" {
		return nil, &ValidationError{Field: "to"}
	}
	if params.Subject == "" {
		return nil, &ValidationError{Field: "subject"}
	}
	if params.TemplateName == "" {
		return nil, &ValidationError{Field: "templateName"}
	}

	start := time.Now()

	emailLogID, err := s.store.Create(repository.CreateParams{
		DocumentID:     params.DocumentID,
		RecipientID:    params.RecipientID,
		RecipientEmail: params.To,
		EmailType:      params.TemplateName,
		Metadata: model.Metadata{
			"subject":   params.Subject,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		// Fail fast: never send un-audited mail
		return nil, fmt.Errorf("failed to create email log: %w", err)
	}

	data := make(map[string]interface{}, len(params.TemplateData)+3)
	for k, v := range params.TemplateData {
		data[k] = v
	}
	data["emailId"] = emailLogID
	data["documentId"] = params.DocumentID
	data["recipientEmail"] = params.To

	html, err := s.renderer.Render(params.TemplateName, data, emailLogID)
	if err != nil {
		// The pending row stays behind as the audit trail for the aborted
		// attempt.
		return nil, err
	}

	plainText, _ := params.TemplateData["plainText"].(string)

	result, sendErr := s.mailer.Send(ctx, mailer.Message{
		To:        params.To,
		Subject:   params.Subject,
		HTML:      html,
		PlainText: plainText,
	})
	s.metrics.SendDuration.Observe(time.Since(start).Seconds())

	if sendErr != nil {
		s.metrics.SendFailures.Inc()
		if updateErr := s.store.UpdateStatus(emailLogID, model.StatusFailed, model.Metadata{
			"error":    sendErr.Error(),
			"failedAt": time.Now().UnixMilli(),
		}); updateErr != nil {
			// The provider outcome still governs the response
			logrus.Errorf("Failed to mark email log %s as failed: %v", emailLogID, updateErr)
		}
		return nil, &DeliveryError{Err: sendErr}
	}

	s.metrics.SendSuccesses.Inc()
	if updateErr := s.store.UpdateStatus(emailLogID, model.StatusSent, model.Metadata{
		"messageId": result.MessageID,
		"sentAt":    time.Now().UnixMilli(),
	}); updateErr != nil {
		logrus.Errorf("Failed to mark email log %s as sent: %v", emailLogID, updateErr)
	}

	logrus.Infof("Sent %s email to %s (log %s)", params.TemplateName, params.To, emailLogID)
	return &SendResult{MessageID: result.MessageID, EmailLogID: emailLogID}, nil
}

// ReminderParams describe a signing reminder to be sent later
type ReminderParams struct {
	To            string
	DocumentID    string
	RecipientID   string
	DocumentName  string
	RecipientName string
	SenderName    string
	SignLink      string
	DueDate       string
	ScheduledFor  time.Time
}

// ScheduleReminder records a signing reminder for later dispatch. The row is
// created with status scheduled; the cron loop picks it up once
// metadata.scheduledFor has passed.
func (s *Service) ScheduleReminder(params ReminderParams) (string, error) {
	if params.To == "" {
		return "", &ValidationError{Field: "to"}
	}
	if params.DocumentName == "" {
		return "", &ValidationError{Field: "documentName"}
	}
	if params.ScheduledFor.IsZero() {
		return "", &ValidationError{Field: "scheduledFor"}
	}

	id, err := s.store.Create(repository.CreateParams{
		DocumentID:     params.DocumentID,
		RecipientID:    params.RecipientID,
		RecipientEmail: params.To,
		EmailType:      model.TypeSigningReminder,
		Status:         model.StatusScheduled,
		Metadata: model.Metadata{
			"scheduledFor":  params.ScheduledFor.UnixMilli(),
			"documentName":  params.DocumentName,
			"recipientName": params.RecipientName,
			"senderName":    params.SenderName,
			"signLink":      params.SignLink,
			"dueDate":       params.DueDate,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to schedule reminder: %w", err)
	}

	s.metrics.RemindersScheduled.Inc()
	logrus.Infof("Scheduled signing reminder %s for %s at %s", id, params.To, params.ScheduledFor.Format(time.RFC3339))
	return id, nil
}

// DispatchDueReminders sends every scheduled reminder whose due time has
// passed. Each dispatch goes through the normal Send path (its own audit
// row); the scheduled row is then transitioned to sent with a pointer to the
// real send, or to failed with the error.
func (s *Service) DispatchDueReminders(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.PendingReminders(now)
	if err != nil {
		return 0, fmt.Errorf("failed to query due reminders: %w", err)
	}

	dispatched := 0
	for _, reminder := range due {
		select {
		case <-ctx.Done():
			return dispatched, ctx.Err()
		default:
		}

		documentName, _ := reminder.Metadata["documentName"].(string)
		result, sendErr := s.Send(ctx, SendParams{
			To:           reminder.RecipientEmail,
			Subject:      fmt.Sprintf("Reminder: Please sign %s", documentName),
			TemplateName: model.TypeSigningReminder,
			TemplateData: map[string]interface{}{
				"documentName":  documentName,
				"recipientName": reminder.Metadata["recipientName"],
				"senderName":    reminder.Metadata["senderName"],
				"signLink":      reminder.Metadata["signLink"],
				"dueDate":       reminder.Metadata["dueDate"],
			},
			DocumentID:  reminder.DocumentID,
			RecipientID: reminder.RecipientID,
		})
		if sendErr != nil {
			logrus.Errorf("Failed to dispatch reminder %s: %v", reminder.ID, sendErr)
			if updateErr := s.store.UpdateStatus(reminder.ID, model.StatusFailed, model.Metadata{
				"error":    sendErr.Error(),
				"failedAt": now.UnixMilli(),
			}); updateErr != nil {
				logrus.Errorf("Failed to mark reminder %s as failed: %v", reminder.ID, updateErr)
			}
			continue
		}

		if updateErr := s.store.UpdateStatus(reminder.ID, model.StatusSent, model.Metadata{
			"reminderEmailLogId": result.EmailLogID,
			"dispatchedAt":       now.UnixMilli(),
		}); updateErr != nil {
			logrus.Errorf("Failed to mark reminder %s as dispatched: %v", reminder.ID, updateErr)
		}

		s.metrics.RemindersSent.Inc()
		dispatched++
	}

	return dispatched, nil
}
