package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/upcb/cloudsec/internal/domain/alert"
)

// slackMessage is the incoming-webhook payload
type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields,omitempty"`
	Ts     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// SlackSender posts alerts to a Slack incoming webhook
type SlackSender struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackSender creates a Slack sender for the given webhook URL.
// channel overrides the webhook's default channel when non-empty.
func NewSlackSender(webhookURL, channel string) *SlackSender {
	return &SlackSender{
		webhookURL: webhookURL,
		channel:    channel,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the channel identifier
func (s *SlackSender) Name() string {
	return ChannelSlack
}

// Send posts the alert to the webhook and reports the outcome
func (s *SlackSender) Send(ctx context.Context, a *alert.Alert, _ string) SendResult {
	start := time.Now()

	if s.webhookURL == "" {
		return SendResult{
			Channel:      ChannelSlack,
			Success:      false,
			DeliveryTime: time.Since(start).Milliseconds(),
			Error:        "slack webhook URL not configured",
		}
	}

	payload, err := json.Marshal(s.buildMessage(a))
	if err != nil {
		return SendResult{
			Channel:      ChannelSlack,
			Success:      false,
			DeliveryTime: time.Since(start).Milliseconds(),
			Error:        fmt.Sprintf("marshal slack payload: %v", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return SendResult{
			Channel:      ChannelSlack,
			Success:      false,
			DeliveryTime: time.Since(start).Milliseconds(),
			Error:        fmt.Sprintf("build slack request: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return SendResult{
			Channel:      ChannelSlack,
			Success:      false,
			DeliveryTime: time.Since(start).Milliseconds(),
			Error:        fmt.Sprintf("post slack webhook: %v", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{
			Channel:      ChannelSlack,
			Success:      false,
			DeliveryTime: time.Since(start).Milliseconds(),
			Error:        fmt.Sprintf("slack webhook returned status %d", resp.StatusCode),
		}
	}

	return SendResult{
		Channel:      ChannelSlack,
		Success:      true,
		DeliveryTime: time.Since(start).Milliseconds(),
	}
}

func (s *SlackSender) buildMessage(a *alert.Alert) slackMessage {
	fields := []slackField{
		{Title: "Severity", Value: strings.ToUpper(a.Severity), Short: true},
		{Title: "Status", Value: a.Status, Short: true},
	}
	if a.ResourceType != "" {
		fields = append(fields, slackField{Title: "Resource Type", Value: escapeSlack(a.ResourceType), Short: true})
	}
	if a.ResourceID != "" {
		fields = append(fields, slackField{Title: "Resource ID", Value: escapeSlack(a.ResourceID), Short: true})
	}
	if a.CloudProvider != "" {
		fields = append(fields, slackField{Title: "Provider", Value: strings.ToUpper(a.CloudProvider), Short: true})
	}
	if a.Region != "" {
		fields = append(fields, slackField{Title: "Region", Value: escapeSlack(a.Region), Short: true})
	}

	var ts int64
	if !a.CreatedAt.IsZero() {
		ts = a.CreatedAt.Unix()
	}

	return slackMessage{
		Channel: s.channel,
		Text:    fmt.Sprintf(":rotating_light: New %s severity alert", a.Severity),
		Attachments: []slackAttachment{
			{
				Color:  severityColor(a.Severity),
				Title:  escapeSlack(a.Title),
				Text:   escapeSlack(a.Description),
				Fields: fields,
				Ts:     ts,
			},
		},
	}
}
