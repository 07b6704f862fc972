package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Email log statuses. Opened and clicked overwrite the coarse status field;
// per-event timestamps live in Metadata (openedAt, clickedAt).
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusScheduled = "scheduled"
	StatusOpened    = "opened"
	StatusClicked   = "clicked"
)

// Canonical email types, matching the notification template names.
const (
	TypeDocumentInvite    = "document-invite"
	TypeSigningReminder   = "signing-reminder"
	TypeSignatureComplete = "signature-complete"
)

// NormalizeEmailType maps the ad-hoc aliases used by some call sites onto the
// canonical template names. Unknown values pass through unchanged.
func NormalizeEmailType(emailType string) string {
	switch emailType {
	case "invite":
		return TypeDocumentInvite
	case "reminder":
		return TypeSigningReminder
	case "signed", "completed":
		return TypeSignatureComplete
	default:
		return emailType
	}
}

// Metadata is an open-ended key/value bag stored as a JSON column. Updates
// are merged additively by the repository, never replaced wholesale.
type Metadata map[string]interface{}

// Value implements driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}

	if len(b) == 0 {
		*m = Metadata{}
		return nil
	}
	return json.Unmarshal(b, m)
}

// Merge returns a copy of m with the patch applied on top. Keys present in
// both are overwritten by the patch; keys only in m are preserved.
func (m Metadata) Merge(patch Metadata) Metadata {
	merged := make(Metadata, len(m)+len(patch))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// EmailLog represents one email-send attempt and its lifecycle status.
// Exactly one row is created per attempt, before the outbound call is made.
type EmailLog struct {
	ID             string    `json:"id" gorm:"type:char(36);primaryKey"`
	DocumentID     string    `json:"document_id" gorm:"type:varchar(255);index"`
	RecipientID    string    `json:"recipient_id" gorm:"type:varchar(255);index"`
	RecipientEmail string    `json:"recipient_email" gorm:"type:varchar(255)"`
	EmailType      string    `json:"email_type" gorm:"type:varchar(50);not null;index"`
	Status         string    `json:"status" gorm:"type:varchar(50);not null"`
	SentAt         time.Time `json:"sent_at" gorm:"index"`
	Metadata       Metadata  `json:"metadata" gorm:"type:json"`
}

// TableName specifies the table name for EmailLog
func (EmailLog) TableName() string {
	return "email_logs"
}
