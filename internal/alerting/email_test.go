package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/upcb/cloudsec/internal/domain/alert"
)

type fakeSendGrid struct {
	status int
	err    error
	sent   []*mail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func testAlert() *alert.Alert {
	return &alert.Alert{
		ID:                 "a-1",
		UserID:             "u-1",
		Title:              "Security group allows 0.0.0.0/0",
		Description:        "Ingress rule open to the world on port 22",
		Severity:           alert.SeverityHigh,
		Status:             alert.StatusOpen,
		ResourceType:       "security_group",
		ResourceID:         "sg-0abc123",
		CloudProvider:      alert.ProviderAWS,
		RecommendedActions: []string{"Restrict the ingress CIDR"},
		CreatedAt:          time.Now(),
	}
}

func TestEmailSendSuccess(t *testing.T) {
	fake := &fakeSendGrid{status: 202}
	s := &EmailSender{client: fake, fromEmail: "alerts@upcb.io", fromName: "CloudSec Alerts"}

	res := s.Send(context.Background(), testAlert(), "user@example.com")

	if !res.Success {
		t.Fatalf("Send failed: %s", res.Error)
	}
	if res.Channel != ChannelEmail {
		t.Errorf("channel = %q", res.Channel)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(fake.sent))
	}

	msg := fake.sent[0]
	if msg.Subject != "[HIGH] Security group allows 0.0.0.0/0" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if msg.From.Address != "alerts@upcb.io" {
		t.Errorf("from = %q", msg.From.Address)
	}
	if len(msg.Personalizations) == 0 || msg.Personalizations[0].To[0].Address != "user@example.com" {
		t.Error("recipient not set")
	}
}

func TestEmailSendProviderError(t *testing.T) {
	fake := &fakeSendGrid{err: errors.New("connection refused")}
	s := &EmailSender{client: fake, fromEmail: "alerts@upcb.io"}

	res := s.Send(context.Background(), testAlert(), "user@example.com")

	if res.Success {
		t.Fatal("expected failure on provider error")
	}
	if !strings.Contains(res.Error, "connection refused") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestEmailSendNon2xxStatus(t *testing.T) {
	fake := &fakeSendGrid{status: 401}
	s := &EmailSender{client: fake, fromEmail: "alerts@upcb.io"}

	res := s.Send(context.Background(), testAlert(), "user@example.com")

	if res.Success {
		t.Fatal("expected failure on 401 response")
	}
	if !strings.Contains(res.Error, "401") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestEmailSendWithoutAPIKey(t *testing.T) {
	s := NewEmailSender("", "alerts@upcb.io")

	res := s.Send(context.Background(), testAlert(), "user@example.com")

	if res.Success {
		t.Fatal("expected failure without API key")
	}
	if !strings.Contains(res.Error, "not configured") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestEmailSendWithoutRecipient(t *testing.T) {
	fake := &fakeSendGrid{status: 202}
	s := &EmailSender{client: fake, fromEmail: "alerts@upcb.io"}

	res := s.Send(context.Background(), testAlert(), "")

	if res.Success {
		t.Fatal("expected failure without recipient")
	}
	if len(fake.sent) != 0 {
		t.Error("provider was called despite missing recipient")
	}
}

func TestHTMLBodyEscapesAlertText(t *testing.T) {
	a := testAlert()
	a.Title = `<script>alert("xss")</script>`
	a.Description = "a < b & b > c"

	body := htmlBody(a)

	if strings.Contains(body, "<script>") {
		t.Error("title not HTML-escaped")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("expected escaped script tag")
	}
	if !strings.Contains(body, "a &lt; b &amp; b &gt; c") {
		t.Error("description not HTML-escaped")
	}
}

func TestHTMLBodyCarriesSeverityColor(t *testing.T) {
	tests := []struct {
		severity string
		color    string
	}{
		{alert.SeverityCritical, "#dc2626"},
		{alert.SeverityHigh, "#ea580c"},
		{alert.SeverityMedium, "#f59e0b"},
		{alert.SeverityLow, "#10b981"},
		{alert.SeverityInfo, "#3b82f6"},
		{"bogus", "#6b7280"},
	}

	for _, tt := range tests {
		a := testAlert()
		a.Severity = tt.severity
		if body := htmlBody(a); !strings.Contains(body, tt.color) {
			t.Errorf("severity %q: color %s missing from body", tt.severity, tt.color)
		}
	}
}
