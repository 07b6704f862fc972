// Package tracking records recipient engagement events (opens, clicks)
// against email logs. Open tracking is best-effort and never fails the
// caller; click tracking surfaces store errors.
package tracking

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"docually-mailer/internal/metrics"
	"docually-mailer/internal/model"
)

// ErrMissingEmailID is returned by RecordClick when no email id was supplied
var ErrMissingEmailID = errors.New("missing email ID")

// EmailLogStore is the slice of the repository the tracking service needs
type EmailLogStore interface {
	UpdateStatus(id, status string, patch model.Metadata) error
}

// ClientInfo carries request attributes recorded alongside an event
type ClientInfo struct {
	UserAgent string
	IP        string
}

// Service records engagement events
type Service struct {
	store   EmailLogStore
	metrics *metrics.Metrics
}

// NewService creates a new tracking service
func NewService(store EmailLogStore, met *metrics.Metrics) *Service {
	return &Service{store: store, metrics: met}
}

// RecordOpen marks an email as opened. A missing or unknown id, or a store
// failure, is logged and swallowed: the pixel response must render no matter
// what.
func (s *Service) RecordOpen(emailID string, client ClientInfo) {
	if emailID == "" {
		return
	}

	err := s.store.UpdateStatus(emailID, model.StatusOpened, model.Metadata{
		"openedAt":  time.Now().UnixMilli(),
		"userAgent": client.UserAgent,
		"ip":        client.IP,
	})
	if err != nil {
		logrus.Errorf("Failed to record email open for %s: %v", emailID, err)
		return
	}

	s.metrics.OpensTracked.Inc()
	logrus.Debugf("Recorded open for email log %s", emailID)
}

// ClickParams describe a click event
type ClickParams struct {
	EmailID        string
	LinkID         string
	DocumentID     string
	RecipientEmail string
}

// RecordClick marks an email as clicked. Unlike opens, a store failure is
// returned to the caller: the direct tracking API has no inline image render
// to protect.
func (s *Service) RecordClick(params ClickParams, client ClientInfo) error {
	if params.EmailID == "" {
		return ErrMissingEmailID
	}

	patch := model.Metadata{
		"clickedAt": time.Now().UnixMilli(),
		"userAgent": client.UserAgent,
		"ip":        client.IP,
	}
	if params.LinkID != "" {
		patch["linkId"] = params.LinkID
	}
	if params.DocumentID != "" {
		patch["documentId"] = params.DocumentID
	}
	if params.RecipientEmail != "" {
		patch["recipientEmail"] = params.RecipientEmail
	}

	if err := s.store.UpdateStatus(params.EmailID, model.StatusClicked, patch); err != nil {
		return err
	}

	s.metrics.ClicksTracked.Inc()
	logrus.Debugf("Recorded click for email log %s (link %s)", params.EmailID, params.LinkID)
	return nil
}
