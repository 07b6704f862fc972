package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docually-mailer/internal/delivery"
)

// ScheduleReminder handles POST /email/reminders
func (h *Handlers) ScheduleReminder(c *gin.Context) {
	var req ScheduleReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	id, err := h.delivery.ScheduleReminder(delivery.ReminderParams{
		To:            req.To,
		DocumentID:    req.DocumentID,
		RecipientID:   req.RecipientID,
		DocumentName:  req.DocumentName,
		RecipientName: req.RecipientName,
		SenderName:    req.SenderName,
		SignLink:      req.SignLink,
		DueDate:       req.DueDate,
		ScheduledFor:  req.ScheduledFor,
	})
	if err != nil {
		var validationErr *delivery.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to schedule reminder", Details: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"reminderId": id,
	})
}

// RunSchedulerOnce handles POST /scheduler/run-once
func (h *Handlers) RunSchedulerOnce(c *gin.Context) {
	if err := h.scheduler.RunOnce(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Dispatch cycle failed", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetSchedulerStatus handles GET /scheduler/status
func (h *Handlers) GetSchedulerStatus(c *gin.Context) {
	status := gin.H{
		"running": h.scheduler.IsRunning(),
	}
	if h.scheduler.IsRunning() {
		status["next_run"] = h.scheduler.GetNextRun()
		status["last_run"] = h.scheduler.GetLastRun()
	}
	c.JSON(http.StatusOK, status)
}
