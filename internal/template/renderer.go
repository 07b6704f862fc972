// Package template renders notification emails from Liquid templates and
// wires open/click tracking into the produced HTML.
package template

import (
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/osteele/liquid"

	"docually-mailer/internal/model"
)

//go:embed templates/*.liquid
var templateFS embed.FS

// ErrUnknownTemplate is returned for an unrecognized template name
var ErrUnknownTemplate = errors.New("unknown email template")

var templateNames = []string{
	model.TypeDocumentInvite,
	model.TypeSigningReminder,
	model.TypeSignatureComplete,
}

// Renderer turns (templateName, data, emailID) into a self-contained HTML
// document. Rendering is pure: no I/O, no side effects.
type Renderer struct {
	engine    *liquid.Engine
	templates map[string]string
	baseURL   string
}

// NewRenderer parses the embedded templates. baseURL is the externally
// reachable base of this service, used for pixel and redirect URLs.
func NewRenderer(baseURL string) (*Renderer, error) {
	engine := liquid.NewEngine()
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	templates := make(map[string]string, len(templateNames))
	for _, name := range templateNames {
		raw, err := templateFS.ReadFile("templates/" + name + ".liquid")
		if err != nil {
			return nil, fmt.Errorf("failed to load template %s: %w", name, err)
		}
		templates[name] = string(raw)
	}

	return &Renderer{
		engine:    engine,
		templates: templates,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Render renders the named template. Unknown names fail with
// ErrUnknownTemplate. When emailID is empty the output is still valid HTML,
// just without the tracking pixel or tracked links.
func (r *Renderer) Render(templateName string, data map[string]interface{}, emailID string) (string, error) {
	source, ok := r.templates[model.NormalizeEmailType(templateName)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, templateName)
	}

	bindings := map[string]interface{}{
		"companyName": "Docually",
	}
	for k, v := range data {
		bindings[k] = v
	}
	bindings["emailId"] = emailID

	body, err := r.engine.ParseAndRenderString(source, bindings)
	if err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", templateName, err)
	}

	if emailID != "" {
		body = r.rewriteLinks(body, emailID)
	}

	recipient, _ := data["recipientEmail"].(string)
	return r.wrapDocument(body, emailID, recipient), nil
}

// rewriteLinks routes every href through the redirect endpoint, carrying the
// original URL, the email id, and a per-link id used to tell links apart.
func (r *Renderer) rewriteLinks(html, emailID string) string {
	var out strings.Builder
	linkNum := 0
	rest := html

	for {
		idx := strings.Index(rest, `href="`)
		if idx == -1 {
			out.WriteString(rest)
			break
		}
		start := idx + len(`href="`)
		end := strings.Index(rest[start:], `"`)
		if end == -1 {
			out.WriteString(rest)
			break
		}

		original := rest[start : start+end]
		out.WriteString(rest[:start])

		// Leave in-house tracking URLs and anchors alone
		if strings.Contains(original, "/email/redirect") || strings.Contains(original, "/email/track") || strings.HasPrefix(original, "#") {
			out.WriteString(original)
		} else {
			linkNum++
			out.WriteString(r.trackedLink(original, emailID, fmt.Sprintf("link-%d", linkNum)))
		}

		rest = rest[start+end:]
	}

	return out.String()
}

func (r *Renderer) trackedLink(original, emailID, linkID string) string {
	return fmt.Sprintf("%s/email/redirect?url=%s&emailId=%s&linkId=%s",
		r.baseURL, url.QueryEscape(original), url.QueryEscape(emailID), url.QueryEscape(linkID))
}

// PixelURL returns the open-tracking pixel URL for an email log id
func (r *Renderer) PixelURL(emailID string) string {
	return fmt.Sprintf("%s/email/track?id=%s", r.baseURL, url.QueryEscape(emailID))
}

// wrapDocument wraps the rendered body in the shared HTML shell: viewport
// meta, base styles, and the footer with the tracking pixel.
func (r *Renderer) wrapDocument(body, emailID, recipientEmail string) string {
	if recipientEmail == "" {
		recipientEmail = "you"
	}

	var pixel string
	if emailID != "" {
		pixel = fmt.Sprintf(`<img src="%s" alt="" width="1" height="1" />`, r.PixelURL(emailID))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>
      body {
        font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
        line-height: 1.5;
        color: #333;
      }
      .container {
        max-width: 600px;
        margin: 0 auto;
        padding: 20px;
      }
      a {
        color: #0070f3;
        text-decoration: none;
      }
      .footer {
        margin-top: 32px;
        font-size: 12px;
        color: #666;
      }
    </style>
  </head>
  <body>
    <div class="container">
      %s
      <div class="footer">
        <p>&copy; %d Docually. All rights reserved.</p>
        <p>This email was sent to %s.</p>
        %s
      </div>
    </div>
  </body>
</html>`, body, time.Now().Year(), recipientEmail, pixel)
}
