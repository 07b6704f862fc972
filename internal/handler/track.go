package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docually-mailer/internal/tracking"
)

// transparentPixel is a 1x1 GIF whose single color is marked transparent via
// the Graphic Control Extension, so it is invisible in the mail client.
var transparentPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21,
	0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
	0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x01, 0x44,
	0x00, 0x3b,
}

// TrackOpen handles GET /email/track. It always answers 200 with the pixel:
// a broken image in the recipient's mail client is never an acceptable
// failure mode, whatever happened to the tracking write.
func (h *Handlers) TrackOpen(c *gin.Context) {
	emailID := c.Query("id")

	h.tracking.RecordOpen(emailID, tracking.ClientInfo{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	})

	servePixel(c)
}

func servePixel(c *gin.Context) {
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, "image/gif", transparentPixel)
}

// TrackClick handles POST /email/track
func (h *Handlers) TrackClick(c *gin.Context) {
	var req TrackClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	err := h.tracking.RecordClick(tracking.ClickParams{
		EmailID:        req.EmailID,
		LinkID:         req.LinkID,
		DocumentID:     req.DocumentID,
		RecipientEmail: req.RecipientEmail,
	}, tracking.ClientInfo{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	})
	if err != nil {
		if errors.Is(err, tracking.ErrMissingEmailID) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing email ID"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Database error", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Click tracked successfully",
	})
}
