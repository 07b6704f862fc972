package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"docually-mailer/internal/tracking"
)

// clickTrackTimeout bounds how long the background click write may take
// before it is abandoned. The redirect itself never waits on it.
const clickTrackTimeout = 3 * time.Second

// Redirect handles GET /email/redirect. The recipient is always redirected:
// to the normalized target URL when present, to the home page otherwise.
// Click tracking is a best-effort side effect dispatched in the background.
func (h *Handlers) Redirect(c *gin.Context) {
	// Whatever goes wrong below, the recipient lands somewhere sensible
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Redirect handler panic: %v", r)
			if !c.Writer.Written() {
				c.Redirect(http.StatusTemporaryRedirect, h.homeURL)
			}
		}
	}()

	targetURL := c.Query("url")
	emailID := c.Query("emailId")
	linkID := c.Query("linkId")

	if targetURL == "" {
		c.Redirect(http.StatusTemporaryRedirect, h.homeURL)
		return
	}

	if emailID != "" {
		h.dispatchClick(tracking.ClickParams{
			EmailID: emailID,
			LinkID:  linkID,
		}, tracking.ClientInfo{
			UserAgent: c.Request.UserAgent(),
			IP:        c.ClientIP(),
		})
	}

	if !strings.HasPrefix(targetURL, "http://") && !strings.HasPrefix(targetURL, "https://") {
		targetURL = "https://" + targetURL
	}

	h.metrics.Redirects.Inc()
	c.Redirect(http.StatusTemporaryRedirect, targetURL)
}

// dispatchClick records the click in the background with a bounded wait.
// Failures and timeouts are logged server-side and swallowed.
func (h *Handlers) dispatchClick(params tracking.ClickParams, client tracking.ClientInfo) {
	done := make(chan error, 1)
	go func() {
		done <- h.tracking.RecordClick(params, client)
	}()

	go func() {
		select {
		case err := <-done:
			if err != nil {
				logrus.Errorf("Failed to track click from redirect for %s: %v", params.EmailID, err)
			}
		case <-time.After(clickTrackTimeout):
			logrus.Warnf("Click tracking for %s did not finish within %v", params.EmailID, clickTrackTimeout)
		}
	}()
}
