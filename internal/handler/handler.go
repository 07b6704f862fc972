package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"docually-mailer/internal/delivery"
	"docually-mailer/internal/metrics"
	"docually-mailer/internal/model"
	"docually-mailer/internal/scheduler"
	"docually-mailer/internal/tracking"
)

// LogStore is the slice of the repository the HTTP layer reads from
type LogStore interface {
	GetByDocument(documentID string) ([]model.EmailLog, error)
	GetByRecipient(recipientID string) ([]model.EmailLog, error)
	List(offset, limit int) ([]model.EmailLog, int64, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	db        *gorm.DB
	store     LogStore
	delivery  *delivery.Service
	tracking  *tracking.Service
	scheduler *scheduler.Scheduler
	metrics   *metrics.Metrics
	homeURL   string
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *gorm.DB, store LogStore, svc *delivery.Service, trk *tracking.Service, sched *scheduler.Scheduler, met *metrics.Metrics, homeURL string) *Handlers {
	if homeURL == "" {
		homeURL = "/"
	}
	return &Handlers{
		db:        db,
		store:     store,
		delivery:  svc,
		tracking:  trk,
		scheduler: sched,
		metrics:   met,
		homeURL:   homeURL,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	email := router.Group("/email")
	{
		email.POST("/send", h.SendEmail)
		email.GET("/track", h.TrackOpen)
		email.POST("/track", h.TrackClick)
		email.GET("/redirect", h.Redirect)
		email.GET("/logs", h.GetLogs)
		email.POST("/reminders", h.ScheduleReminder)
	}

	sched := router.Group("/scheduler")
	{
		sched.POST("/run-once", h.RunSchedulerOnce)
		sched.GET("/status", h.GetSchedulerStatus)
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Details:   make(map[string]string),
	}

	if err := h.db.Raw("SELECT 1").Error; err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	if h.scheduler != nil && h.scheduler.IsRunning() {
		response.Details["scheduler"] = "running"
		response.Details["next_run"] = h.scheduler.GetNextRun().Format(time.RFC3339)
		response.Details["last_run"] = h.scheduler.GetLastRun().Format(time.RFC3339)
	} else {
		response.Details["scheduler"] = "stopped"
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
