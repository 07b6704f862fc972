package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docually-mailer/internal/model"
)

// ErrNotFound is returned when an email log id is unknown
var ErrNotFound = errors.New("email log not found")

// Repository is the durable store for email logs
type Repository struct {
	db *gorm.DB
}

// New creates a new Repository
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateParams are the caller-supplied fields for a new email log
type CreateParams struct {
	DocumentID     string
	RecipientID    string
	RecipientEmail string
	EmailType      string
	Status         string
	Metadata       model.Metadata
}

// Create inserts a new email log and returns its id. Status defaults to
// pending and SentAt is the creation time, so a crash mid-send still leaves
// an auditable record.
func (r *Repository) Create(params CreateParams) (string, error) {
	status := params.Status
	if status == "" {
		status = model.StatusPending
	}
	metadata := params.Metadata
	if metadata == nil {
		metadata = model.Metadata{}
	}

	log := model.EmailLog{
		ID:             uuid.NewString(),
		DocumentID:     params.DocumentID,
		RecipientID:    params.RecipientID,
		RecipientEmail: params.RecipientEmail,
		EmailType:      model.NormalizeEmailType(params.EmailType),
		Status:         status,
		SentAt:         time.Now(),
		Metadata:       metadata,
	}

	if err := r.db.Create(&log).Error; err != nil {
		return "", fmt.Errorf("failed to create email log: %w", err)
	}
	return log.ID, nil
}

// UpdateStatus sets the status and merges the metadata patch into the
// existing metadata. The merge is computed against the latest row inside a
// transaction, so a patch never clobbers keys written by a concurrent
// update. Every transition stamps metadata.statusUpdatedAt.
func (r *Repository) UpdateStatus(id, status string, patch model.Metadata) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		query := tx
		// SELECT ... FOR UPDATE is a mysql-ism; sqlite (tests) serializes
		// writes on its own.
		if tx.Dialector.Name() == "mysql" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var log model.EmailLog
		if err := query.First(&log, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return fmt.Errorf("failed to load email log: %w", err)
		}

		merged := log.Metadata.Merge(patch)
		merged["statusUpdatedAt"] = time.Now().UnixMilli()

		updates := map[string]interface{}{
			"status":   status,
			"metadata": merged,
		}
		if err := tx.Model(&model.EmailLog{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update email log: %w", err)
		}
		return nil
	})
}

// GetByID returns a single email log
func (r *Repository) GetByID(id string) (*model.EmailLog, error) {
	var log model.EmailLog
	if err := r.db.First(&log, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch email log: %w", err)
	}
	return &log, nil
}

// GetByDocument returns all logs for a document, newest first
func (r *Repository) GetByDocument(documentID string) ([]model.EmailLog, error) {
	var logs []model.EmailLog
	err := r.db.Where("document_id = ?", documentID).Order("sent_at DESC").Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs by document: %w", err)
	}
	return logs, nil
}

// GetByRecipient returns all logs for a recipient, newest first
func (r *Repository) GetByRecipient(recipientID string) ([]model.EmailLog, error) {
	var logs []model.EmailLog
	err := r.db.Where("recipient_id = ?", recipientID).Order("sent_at DESC").Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs by recipient: %w", err)
	}
	return logs, nil
}

// List returns logs with pagination for the tracking dashboard, newest first
func (r *Repository) List(offset, limit int) ([]model.EmailLog, int64, error) {
	var total int64
	if err := r.db.Model(&model.EmailLog{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count email logs: %w", err)
	}

	var logs []model.EmailLog
	err := r.db.Order("sent_at DESC").Offset(offset).Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list email logs: %w", err)
	}
	return logs, total, nil
}

// PendingReminders returns scheduled signing reminders that are due, i.e.
// metadata.scheduledFor is before now (unix milliseconds).
func (r *Repository) PendingReminders(now time.Time) ([]model.EmailLog, error) {
	var candidates []model.EmailLog
	err := r.db.
		Where("email_type = ? AND status = ?", model.TypeSigningReminder, model.StatusScheduled).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scheduled reminders: %w", err)
	}

	// The due filter reads metadata.scheduledFor in Go rather than with a
	// JSON-path expression, keeping the query portable across dialects.
	cutoff := float64(now.UnixMilli())
	due := make([]model.EmailLog, 0, len(candidates))
	for _, log := range candidates {
		scheduledFor, ok := toFloat(log.Metadata["scheduledFor"])
		if ok && scheduledFor < cutoff {
			due = append(due, log)
		}
	}
	return due, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
