package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docually-mailer/internal/delivery"
	"docually-mailer/internal/template"
)

// SendEmail handles POST /email/send
func (h *Handlers) SendEmail(c *gin.Context) {
	var req SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	result, err := h.delivery.Send(c.Request.Context(), delivery.SendParams{
		To:           req.To,
		Subject:      req.Subject,
		TemplateName: req.TemplateName,
		TemplateData: req.TemplateData,
		DocumentID:   req.DocumentID,
		RecipientID:  req.RecipientID,
	})
	if err != nil {
		var validationErr *delivery.ValidationError
		var deliveryErr *delivery.DeliveryError
		switch {
		case errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing required fields: to, subject, or templateName", Details: validationErr.Error()})
		case errors.Is(err, template.ErrUnknownTemplate):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unknown template: " + req.TemplateName})
		case errors.As(err, &deliveryErr):
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to send email", Details: deliveryErr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Details: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, SendEmailResponse{
		Success:    true,
		MessageID:  result.MessageID,
		EmailLogID: result.EmailLogID,
	})
}
