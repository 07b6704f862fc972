package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"docually-mailer/internal/config"
	"docually-mailer/internal/delivery"
	"docually-mailer/internal/handler"
	"docually-mailer/internal/mailer"
	"docually-mailer/internal/metrics"
	"docually-mailer/internal/model"
	"docually-mailer/internal/repository"
	"docually-mailer/internal/scheduler"
	"docually-mailer/internal/server"
	"docually-mailer/internal/template"
	"docually-mailer/internal/tracking"
)

var testMetrics = metrics.NewMetrics()

type fakeMailer struct {
	result *mailer.Result
	err    error
	sent   []mailer.Message
}

func (m *fakeMailer) Send(ctx context.Context, msg mailer.Message) (*mailer.Result, error) {
	m.sent = append(m.sent, msg)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *fakeMailer) Close() error { return nil }

type testStack struct {
	router *gin.Engine
	repo   *repository.Repository
	db     *gorm.DB
	mail   *fakeMailer
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.EmailLog{}))

	repo := repository.New(db)
	renderer, err := template.NewRenderer("http://localhost:8080")
	require.NoError(t, err)

	mail := &fakeMailer{result: &mailer.Result{MessageID: "m1"}}
	deliverySvc := delivery.NewService(repo, renderer, mail, testMetrics)
	trackingSvc := tracking.NewService(repo, testMetrics)
	sched := scheduler.NewScheduler(&config.SchedulerConfig{IntervalMinutes: 5}, deliverySvc)

	h := handler.NewHandlers(db, repo, deliverySvc, trackingSvc, sched, testMetrics, "https://app.docually.com")
	return &testStack{
		router: server.SetupRouter(h),
		repo:   repo,
		db:     db,
		mail:   mail,
	}
}

func (s *testStack) request(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func sendRequestBody() map[string]interface{} {
	return map[string]interface{}{
		"to":           "alice@example.com",
		"subject":      "Please sign",
		"templateName": "document-invite",
		"templateData": map[string]interface{}{
			"documentName": "Lease Agreement",
			"senderName":   "Bob",
			"signLink":     "https://app.docually.com/sign/abc",
		},
		"documentId":  "doc1",
		"recipientId": "rcpt1",
	}
}

func TestSendEmailEndpoint(t *testing.T) {
	stack := newTestStack(t)

	w := stack.request(t, http.MethodPost, "/email/send", sendRequestBody())
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "m1", body["messageId"])
	emailLogID, _ := body["emailLogId"].(string)
	require.NotEmpty(t, emailLogID)

	log, err := stack.repo.GetByID(emailLogID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, log.Status)

	require.Len(t, stack.mail.sent, 1)
	assert.Contains(t, stack.mail.sent[0].HTML, "/email/track?id="+emailLogID)
}

func TestSendEmailEndpointMissingFields(t *testing.T) {
	stack := newTestStack(t)

	w := stack.request(t, http.MethodPost, "/email/send", map[string]interface{}{
		"subject": "Please sign",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, stack.mail.sent)
}

func TestSendEmailEndpointUnknownTemplate(t *testing.T) {
	stack := newTestStack(t)

	body := sendRequestBody()
	body["templateName"] = "not-a-template"

	w := stack.request(t, http.MethodPost, "/email/send", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown template")
}

func TestSendEmailEndpointProviderFailure(t *testing.T) {
	stack := newTestStack(t)
	stack.mail.err = errors.New("ProviderDown")
	stack.mail.result = nil

	w := stack.request(t, http.MethodPost, "/email/send", sendRequestBody())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to send email")
}

func assertPixelResponse(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/gif", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
	assert.Equal(t, "0", w.Header().Get("Expires"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("GIF89a")))
	// Graphic Control Extension marking the palette color transparent
	assert.True(t, bytes.Contains(w.Body.Bytes(), []byte{0x21, 0xf9, 0x04, 0x01}))
	assert.Len(t, w.Body.Bytes(), 42)
}

func TestTrackOpenServesPixel(t *testing.T) {
	stack := newTestStack(t)

	id, err := stack.repo.Create(repository.CreateParams{
		RecipientEmail: "alice@example.com",
		EmailType:      model.TypeDocumentInvite,
	})
	require.NoError(t, err)

	w := stack.request(t, http.MethodGet, "/email/track?id="+id, nil)
	assertPixelResponse(t, w)

	log, err := stack.repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpened, log.Status)
	assert.Contains(t, log.Metadata, "openedAt")
}

func TestTrackOpenAlwaysServesPixel(t *testing.T) {
	stack := newTestStack(t)

	// Missing id
	assertPixelResponse(t, stack.request(t, http.MethodGet, "/email/track", nil))

	// Unknown id
	assertPixelResponse(t, stack.request(t, http.MethodGet, "/email/track?id=no-such-log", nil))
}

func TestTrackClickEndpoint(t *testing.T) {
	stack := newTestStack(t)

	id, err := stack.repo.Create(repository.CreateParams{
		RecipientEmail: "alice@example.com",
		EmailType:      model.TypeDocumentInvite,
	})
	require.NoError(t, err)

	w := stack.request(t, http.MethodPost, "/email/track", map[string]interface{}{
		"emailId": id,
		"linkId":  "link-1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Click tracked successfully")

	log, err := stack.repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClicked, log.Status)
	assert.Equal(t, "link-1", log.Metadata["linkId"])
}

func TestTrackClickEndpointMissingEmailID(t *testing.T) {
	stack := newTestStack(t)

	w := stack.request(t, http.MethodPost, "/email/track", map[string]interface{}{
		"linkId": "link-1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing email ID")
}

func TestTrackClickEndpointUnknownID(t *testing.T) {
	stack := newTestStack(t)

	w := stack.request(t, http.MethodPost, "/email/track", map[string]interface{}{
		"emailId": "no-such-log",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRedirectEndpoint(t *testing.T) {
	stack := newTestStack(t)

	id, err := stack.repo.Create(repository.CreateParams{
		RecipientEmail: "alice@example.com",
		EmailType:      model.TypeDocumentInvite,
	})
	require.NoError(t, err)

	target := "https://app.docually.com/sign/abc"
	w := stack.request(t, http.MethodGet,
		fmt.Sprintf("/email/redirect?url=%s&emailId=%s&linkId=link-1", "https%3A%2F%2Fapp.docually.com%2Fsign%2Fabc", id), nil)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, target, w.Header().Get("Location"))

	// Click tracking runs in the background
	require.Eventually(t, func() bool {
		log, err := stack.repo.GetByID(id)
		return err == nil && log.Status == model.StatusClicked
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedirectEndpointMissingURL(t *testing.T) {
	stack := newTestStack(t)

	w := stack.request(t, http.MethodGet, "/email/redirect", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://app.docually.com", w.Header().Get("Location"))
}

func TestRedirectEndpointCountsRedirects(t *testing.T) {
	stack := newTestStack(t)

	before := testutil.ToFloat64(testMetrics.Redirects)

	w := stack.request(t, http.MethodGet, "/email/redirect?url=https%3A%2F%2Fexample.com", nil)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(testMetrics.Redirects))

	// The home-page fallback is not a tracked link redirect
	w = stack.request(t, http.MethodGet, "/email/redirect", nil)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(testMetrics.Redirects))
}

func TestRedirectEndpointNormalizesScheme(t *testing.T) {
	stack := newTestStack(t)

	w := stack.request(t, http.MethodGet, "/email/redirect?url=example.com%2Fsign", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://example.com/sign", w.Header().Get("Location"))
}

func TestRedirectEndpointSurvivesTrackingFailure(t *testing.T) {
	stack := newTestStack(t)

	// Unknown email id makes the background click write fail; the recipient
	// still gets the redirect.
	w := stack.request(t, http.MethodGet,
		"/email/redirect?url=https%3A%2F%2Fexample.com&emailId=no-such-log", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Location"))
}

func TestGetLogsByDocument(t *testing.T) {
	stack := newTestStack(t)

	for i := 0; i < 2; i++ {
		_, err := stack.repo.Create(repository.CreateParams{
			DocumentID:     "doc1",
			RecipientEmail: "alice@example.com",
			EmailType:      model.TypeDocumentInvite,
		})
		require.NoError(t, err)
	}
	_, err := stack.repo.Create(repository.CreateParams{
		DocumentID:     "doc2",
		RecipientEmail: "bob@example.com",
		EmailType:      model.TypeDocumentInvite,
	})
	require.NoError(t, err)

	w := stack.request(t, http.MethodGet, "/email/logs?documentId=doc1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	data, ok := body["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 2)
}

func TestGetLogsPagination(t *testing.T) {
	stack := newTestStack(t)

	for i := 0; i < 5; i++ {
		_, err := stack.repo.Create(repository.CreateParams{
			RecipientEmail: fmt.Sprintf("user%d@example.com", i),
			EmailType:      model.TypeDocumentInvite,
		})
		require.NoError(t, err)
	}

	w := stack.request(t, http.MethodGet, "/email/logs?page=2&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	data, ok := body["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 2)

	pagination, ok := body["pagination"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 2, pagination["page"])
	assert.EqualValues(t, 2, pagination["limit"])
	assert.EqualValues(t, 5, pagination["total"])
}

func TestScheduleReminderEndpoint(t *testing.T) {
	stack := newTestStack(t)

	w := stack.request(t, http.MethodPost, "/email/reminders", map[string]interface{}{
		"to":           "alice@example.com",
		"documentId":   "doc1",
		"documentName": "Lease Agreement",
		"senderName":   "Bob",
		"signLink":     "https://app.docually.com/sign/abc",
		"scheduledFor": time.Now().Add(-time.Minute).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	reminderID, _ := body["reminderId"].(string)
	require.NotEmpty(t, reminderID)

	log, err := stack.repo.GetByID(reminderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, log.Status)
	assert.Equal(t, model.TypeSigningReminder, log.EmailType)

	// Manual dispatch sends it
	w = stack.request(t, http.MethodPost, "/scheduler/run-once", nil)
	require.Equal(t, http.StatusOK, w.Code)

	log, err = stack.repo.GetByID(reminderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, log.Status)
	assert.Contains(t, log.Metadata, "reminderEmailLogId")
	require.Len(t, stack.mail.sent, 1)
}

func TestScheduleReminderEndpointValidation(t *testing.T) {
	stack := newTestStack(t)

	w := stack.request(t, http.MethodPost, "/email/reminders", map[string]interface{}{
		"documentName": "Lease Agreement",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedulerStatusEndpoint(t *testing.T) {
	stack := newTestStack(t)

	w := stack.request(t, http.MethodGet, "/scheduler/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, false, body["running"])
}

func TestHealthCheckEndpoint(t *testing.T) {
	stack := newTestStack(t)

	w := stack.request(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
}
