package handler

import "time"

// SendEmailRequest is the request body for POST /email/send
type SendEmailRequest struct {
	To           string                 `json:"to"`
	Subject      string                 `json:"subject"`
	TemplateName string                 `json:"templateName"`
	TemplateData map[string]interface{} `json:"templateData"`
	DocumentID   string                 `json:"documentId"`
	RecipientID  string                 `json:"recipientId"`
}

// SendEmailResponse is returned on a successful send
type SendEmailResponse struct {
	Success    bool   `json:"success"`
	MessageID  string `json:"messageId"`
	EmailLogID string `json:"emailLogId"`
}

// TrackClickRequest is the request body for POST /email/track
type TrackClickRequest struct {
	EmailID        string `json:"emailId"`
	LinkID         string `json:"linkId"`
	DocumentID     string `json:"documentId"`
	RecipientEmail string `json:"recipientEmail"`
}

// ScheduleReminderRequest is the request body for POST /email/reminders
type ScheduleReminderRequest struct {
	To            string    `json:"to"`
	DocumentID    string    `json:"documentId"`
	RecipientID   string    `json:"recipientId"`
	DocumentName  string    `json:"documentName"`
	RecipientName string    `json:"recipientName"`
	SenderName    string    `json:"senderName"`
	SignLink      string    `json:"signLink"`
	DueDate       string    `json:"dueDate"`
	ScheduledFor  time.Time `json:"scheduledFor"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Details   map[string]string `json:"details,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
