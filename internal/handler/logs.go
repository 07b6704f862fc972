package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetLogs handles GET /email/logs. With a documentId or recipientId filter it
// returns all matching logs newest-first; without one it returns a paginated
// listing for the tracking dashboard.
func (h *Handlers) GetLogs(c *gin.Context) {
	if documentID := c.Query("documentId"); documentID != "" {
		logs, err := h.store.GetByDocument(documentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch logs", Details: err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": logs})
		return
	}

	if recipientID := c.Query("recipientId"); recipientID != "" {
		logs, err := h.store.GetByRecipient(recipientID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch logs", Details: err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": logs})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	logs, total, err := h.store.List((page-1)*limit, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch logs", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}
