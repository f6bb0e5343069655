package alerting

import (
	"context"
	"strings"

	"github.com/upcb/cloudsec/internal/domain/alert"
)

// Channel identifiers
const (
	ChannelEmail = "email"
	ChannelSlack = "slack"
)

// SendResult is the normalized outcome of one channel send attempt
type SendResult struct {
	Channel      string `json:"channel"`
	Success      bool   `json:"success"`
	DeliveryTime int64  `json:"deliveryTime"` // milliseconds
	Error        string `json:"error,omitempty"`
}

// Sender delivers one alert over a single notification channel.
// Implementations never return an error: every provider failure is
// reported through SendResult so the dispatcher can keep going.
type Sender interface {
	// Name returns the channel identifier
	Name() string

	// Send delivers the alert. The recipient address applies to
	// channels that address individual users (email); channels with a
	// fixed destination ignore it.
	Send(ctx context.Context, a *alert.Alert, recipient string) SendResult
}

// severityColor maps an alert severity to its display color
func severityColor(severity string) string {
	switch severity {
	case alert.SeverityCritical:
		return "#dc2626" // red
	case alert.SeverityHigh:
		return "#ea580c" // orange
	case alert.SeverityMedium:
		return "#f59e0b" // amber
	case alert.SeverityLow:
		return "#10b981" // green
	case alert.SeverityInfo:
		return "#3b82f6" // blue
	default:
		return "#6b7280" // gray
	}
}

// escapeSlack escapes the characters Slack treats as control sequences
func escapeSlack(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
