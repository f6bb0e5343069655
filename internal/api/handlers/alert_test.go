package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/upcb/cloudsec/internal/alerting"
	"github.com/upcb/cloudsec/internal/api/handlers"
	"github.com/upcb/cloudsec/internal/api/middleware"
	"github.com/upcb/cloudsec/internal/auth"
	"github.com/upcb/cloudsec/internal/domain/alert"
	"github.com/upcb/cloudsec/internal/pkg/validator"
	"github.com/upcb/cloudsec/internal/repository/memory"
	"github.com/upcb/cloudsec/internal/services"
	"github.com/upcb/cloudsec/internal/testutil"
)

type alertFixture struct {
	router http.Handler
	repo   *memory.AlertRepository
	queue  *testutil.MockQueue
}

// identity fakes the auth middleware for handler tests
func identity(userID, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithIdentity(r.Context(), userID, "user@example.com", role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newAlertFixture(userID string) *alertFixture {
	repo := memory.NewAlertRepository()
	pub := alerting.NewPublisher("", testutil.NewTestLogger())
	q := &testutil.MockQueue{}
	svc := services.NewAlertService(repo, pub, q, testutil.NewTestLogger())
	h := handlers.NewAlertHandler(svc, validator.New(), testutil.NewTestLogger())

	r := chi.NewRouter()
	r.Use(identity(userID, auth.RoleUser))
	r.Post("/alerts", h.Create)
	r.Get("/alerts", h.List)
	r.Get("/alerts/{id}", h.Get)
	r.Post("/alerts/{id}/acknowledge", h.Acknowledge)

	return &alertFixture{router: r, repo: repo, queue: q}
}

func (f *alertFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAlertEndpoint(t *testing.T) {
	f := newAlertFixture("u-1")

	rec := f.do(t, http.MethodPost, "/alerts", map[string]interface{}{
		"title":          "IAM user without MFA",
		"description":    "User deploy-bot has no MFA device",
		"severity":       "high",
		"resource_type":  "iam_user",
		"resource_id":    "deploy-bot",
		"cloud_provider": "aws",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Data.ID == "" {
		t.Fatalf("response = %s", rec.Body.String())
	}

	stored, err := f.repo.GetByID(context.Background(), resp.Data.ID)
	if err != nil {
		t.Fatalf("alert not stored: %v", err)
	}
	if stored.UserID != "u-1" {
		t.Errorf("owner = %q, want u-1", stored.UserID)
	}
	if jobs := f.queue.Enqueued(); len(jobs) != 1 || jobs[0].Priority != 2 {
		t.Errorf("enqueued = %+v", jobs)
	}
}

func TestCreateAlertValidation(t *testing.T) {
	f := newAlertFixture("u-1")

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing title", map[string]interface{}{"description": "d", "severity": "high"}},
		{"bad severity", map[string]interface{}{"title": "t", "description": "d", "severity": "urgent"}},
		{"bad provider", map[string]interface{}{"title": "t", "description": "d", "severity": "low", "cloud_provider": "ibm"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/alerts", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetAlertEndpoint(t *testing.T) {
	f := newAlertFixture("u-1")
	f.repo.Create(context.Background(), testutil.NewAlert("a-1", "u-1", alert.SeverityHigh))
	f.repo.Create(context.Background(), testutil.NewAlert("a-2", "u-9", alert.SeverityHigh))

	if rec := f.do(t, http.MethodGet, "/alerts/a-1", nil); rec.Code != http.StatusOK {
		t.Errorf("own alert status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/alerts/a-2", nil); rec.Code != http.StatusNotFound {
		t.Errorf("foreign alert status = %d, want 404", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/alerts/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing alert status = %d, want 404", rec.Code)
	}
}

func TestListAlertsEndpoint(t *testing.T) {
	f := newAlertFixture("u-1")
	f.repo.Create(context.Background(), testutil.NewAlert("a-1", "u-1", alert.SeverityHigh))
	f.repo.Create(context.Background(), testutil.NewAlert("a-2", "u-1", alert.SeverityLow))
	f.repo.Create(context.Background(), testutil.NewAlert("a-3", "u-9", alert.SeverityHigh))

	rec := f.do(t, http.MethodGet, "/alerts?severity=high", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Data struct {
			Alerts []alert.Alert `json:"alerts"`
			Total  int64         `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Total != 1 || len(resp.Data.Alerts) != 1 || resp.Data.Alerts[0].ID != "a-1" {
		t.Errorf("response = %s", rec.Body.String())
	}
}

func TestAcknowledgeAlertEndpoint(t *testing.T) {
	f := newAlertFixture("u-1")
	f.repo.Create(context.Background(), testutil.NewAlert("a-1", "u-1", alert.SeverityHigh))

	rec := f.do(t, http.MethodPost, "/alerts/a-1/acknowledge", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	stored, _ := f.repo.GetByID(context.Background(), "a-1")
	if stored.Status != alert.StatusAcknowledged || stored.AcknowledgedBy != "u-1" {
		t.Errorf("stored = %+v", stored)
	}
}
