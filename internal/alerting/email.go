package alerting

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/upcb/cloudsec/internal/domain/alert"
)

// sendGridClient abstracts the SendGrid send call for testing
type sendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailSender delivers alerts as HTML email through SendGrid
type EmailSender struct {
	client    sendGridClient
	fromEmail string
	fromName  string
}

// NewEmailSender creates an email sender. An empty apiKey yields a
// sender that fails every Send without contacting the provider.
func NewEmailSender(apiKey, fromEmail string) *EmailSender {
	var client sendGridClient
	if apiKey != "" {
		client = sendgrid.NewSendClient(apiKey)
	}
	return &EmailSender{
		client:    client,
		fromEmail: fromEmail,
		fromName:  "CloudSec Alerts",
	}
}

// Name returns the channel identifier
func (e *EmailSender) Name() string {
	return ChannelEmail
}

// Send delivers the alert to the recipient address and reports the outcome
func (e *EmailSender) Send(ctx context.Context, a *alert.Alert, recipient string) SendResult {
	start := time.Now()

	if e.client == nil {
		return SendResult{
			Channel:      ChannelEmail,
			Success:      false,
			DeliveryTime: time.Since(start).Milliseconds(),
			Error:        "sendgrid API key not configured",
		}
	}
	if recipient == "" {
		return SendResult{
			Channel:      ChannelEmail,
			Success:      false,
			DeliveryTime: time.Since(start).Milliseconds(),
			Error:        "recipient email address is empty",
		}
	}

	from := mail.NewEmail(e.fromName, e.fromEmail)
	to := mail.NewEmail("", recipient)
	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(a.Severity), a.Title)
	message := mail.NewSingleEmail(from, subject, to, plainBody(a), htmlBody(a))

	resp, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		return SendResult{
			Channel:      ChannelEmail,
			Success:      false,
			DeliveryTime: time.Since(start).Milliseconds(),
			Error:        fmt.Sprintf("sendgrid send: %v", err),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{
			Channel:      ChannelEmail,
			Success:      false,
			DeliveryTime: time.Since(start).Milliseconds(),
			Error:        fmt.Sprintf("sendgrid returned status %d", resp.StatusCode),
		}
	}

	return SendResult{
		Channel:      ChannelEmail,
		Success:      true,
		DeliveryTime: time.Since(start).Milliseconds(),
	}
}

func plainBody(a *alert.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n\n", a.Title, a.Description)
	fmt.Fprintf(&b, "Severity: %s\n", a.Severity)
	if a.ResourceType != "" {
		fmt.Fprintf(&b, "Resource: %s (%s)\n", a.ResourceID, a.ResourceType)
	}
	if a.CloudProvider != "" {
		fmt.Fprintf(&b, "Provider: %s\n", a.CloudProvider)
	}
	if len(a.RecommendedActions) > 0 {
		b.WriteString("\nRecommended actions:\n")
		for _, action := range a.RecommendedActions {
			fmt.Fprintf(&b, "  - %s\n", action)
		}
	}
	return b.String()
}

func htmlBody(a *alert.Alert) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:sans-serif;max-width:600px">`)
	fmt.Fprintf(&b, `<div style="background:%s;color:#fff;padding:12px 16px;border-radius:4px 4px 0 0">`, severityColor(a.Severity))
	fmt.Fprintf(&b, `<strong>%s</strong> severity alert`, html.EscapeString(strings.ToUpper(a.Severity)))
	b.WriteString(`</div>`)
	b.WriteString(`<div style="border:1px solid #e5e7eb;border-top:none;padding:16px;border-radius:0 0 4px 4px">`)
	fmt.Fprintf(&b, `<h2 style="margin-top:0">%s</h2>`, html.EscapeString(a.Title))
	fmt.Fprintf(&b, `<p>%s</p>`, html.EscapeString(a.Description))

	b.WriteString(`<table style="border-collapse:collapse">`)
	writeRow := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, `<tr><td style="padding:4px 12px 4px 0;color:#6b7280">%s</td><td style="padding:4px 0">%s</td></tr>`,
			html.EscapeString(label), html.EscapeString(value))
	}
	writeRow("Resource type", a.ResourceType)
	writeRow("Resource ID", a.ResourceID)
	writeRow("Provider", a.CloudProvider)
	writeRow("Region", a.Region)
	b.WriteString(`</table>`)

	if len(a.RecommendedActions) > 0 {
		b.WriteString(`<h3>Recommended actions</h3><ul>`)
		for _, action := range a.RecommendedActions {
			fmt.Fprintf(&b, `<li>%s</li>`, html.EscapeString(action))
		}
		b.WriteString(`</ul>`)
	}
	b.WriteString(`</div></div>`)
	return b.String()
}
