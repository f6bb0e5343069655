package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/upcb/cloudsec/internal/alerting"
	"github.com/upcb/cloudsec/internal/domain/alert"
	apperrors "github.com/upcb/cloudsec/internal/pkg/errors"
	"github.com/upcb/cloudsec/internal/queue"
	"github.com/upcb/cloudsec/internal/repository/memory"
	"github.com/upcb/cloudsec/internal/services"
	"github.com/upcb/cloudsec/internal/testutil"
)

func newService() (alert.Service, *memory.AlertRepository, *alerting.Publisher, *testutil.MockQueue) {
	repo := memory.NewAlertRepository()
	pub := alerting.NewPublisher("", testutil.NewTestLogger())
	q := &testutil.MockQueue{}
	svc := services.NewAlertService(repo, pub, q, testutil.NewTestLogger())
	return svc, repo, pub, q
}

func TestCreateAssignsDefaults(t *testing.T) {
	svc, repo, _, _ := newService()

	a := &alert.Alert{
		UserID:      "u-1",
		Title:       "Unencrypted EBS volume",
		Description: "Volume vol-1 has no encryption at rest",
		Severity:    alert.SeverityMedium,
	}
	id, err := svc.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("Create returned %v", err)
	}
	if id == "" {
		t.Fatal("Create returned empty id")
	}

	stored, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("stored alert not found: %v", err)
	}
	if stored.Status != alert.StatusOpen {
		t.Errorf("status = %q, want open", stored.Status)
	}
	if stored.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestCreateRejectsInvalidSeverity(t *testing.T) {
	svc, _, _, q := newService()

	_, err := svc.Create(context.Background(), &alert.Alert{
		UserID:   "u-1",
		Title:    "x",
		Severity: "urgent",
	})

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeBadRequest {
		t.Fatalf("err = %v, want BAD_REQUEST", err)
	}
	if len(q.Enqueued()) != 0 {
		t.Error("invalid alert was enqueued")
	}
}

func TestCreatePublishesToSubscribers(t *testing.T) {
	svc, _, pub, _ := newService()

	var got []*alert.Alert
	defer pub.Subscribe("u-1", func(a *alert.Alert) { got = append(got, a) })()

	id, err := svc.Create(context.Background(), &alert.Alert{
		UserID:      "u-1",
		Title:       "Root account login",
		Description: "Console login with root credentials",
		Severity:    alert.SeverityCritical,
	})
	if err != nil {
		t.Fatalf("Create returned %v", err)
	}

	if len(got) != 1 || got[0].ID != id {
		t.Errorf("subscriber got %+v, want alert %s", got, id)
	}
}

func TestCreateEnqueuesWithSeverityPriority(t *testing.T) {
	svc, _, _, q := newService()

	id, err := svc.Create(context.Background(), &alert.Alert{
		UserID:      "u-1",
		Title:       "Root account login",
		Description: "Console login with root credentials",
		Severity:    alert.SeverityCritical,
	})
	if err != nil {
		t.Fatalf("Create returned %v", err)
	}

	jobs := q.Enqueued()
	if len(jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jobs))
	}
	j := jobs[0]
	if j.AlertID != id || j.UserID != "u-1" {
		t.Errorf("job = %+v", j)
	}
	if j.Priority != 1 {
		t.Errorf("critical priority = %d, want 1", j.Priority)
	}
	if j.ID == "" {
		t.Error("job has no id")
	}
}

func TestCreateSurvivesEnqueueFailure(t *testing.T) {
	svc, repo, _, q := newService()
	q.EnqueueFn = func(context.Context, *queue.Job) error {
		return errors.New("redis unavailable")
	}

	id, err := svc.Create(context.Background(), &alert.Alert{
		UserID:      "u-1",
		Title:       "Root account login",
		Description: "Console login with root credentials",
		Severity:    alert.SeverityHigh,
	})
	if err != nil {
		t.Fatalf("Create failed on enqueue error: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), id); err != nil {
		t.Errorf("alert not persisted despite enqueue failure: %v", err)
	}
}

func TestGetByIDHidesOtherUsersAlerts(t *testing.T) {
	svc, _, _, _ := newService()

	id, err := svc.Create(context.Background(), &alert.Alert{
		UserID:      "u-1",
		Title:       "Open RDP port",
		Description: "Port 3389 exposed",
		Severity:    alert.SeverityHigh,
	})
	if err != nil {
		t.Fatalf("Create returned %v", err)
	}

	if _, err := svc.GetByID(context.Background(), "u-1", id); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}

	_, err = svc.GetByID(context.Background(), "u-2", id)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeNotFound {
		t.Errorf("foreign lookup err = %v, want NOT_FOUND", err)
	}
}

func TestListValidatesFilters(t *testing.T) {
	svc, _, _, _ := newService()

	_, _, err := svc.List(context.Background(), "u-1", alert.Filter{Severity: "urgent"}, 10, 0)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeBadRequest {
		t.Errorf("err = %v, want BAD_REQUEST", err)
	}
}

func TestAcknowledge(t *testing.T) {
	svc, _, _, _ := newService()

	id, err := svc.Create(context.Background(), &alert.Alert{
		UserID:      "u-1",
		Title:       "Public snapshot",
		Description: "RDS snapshot shared publicly",
		Severity:    alert.SeverityHigh,
	})
	if err != nil {
		t.Fatalf("Create returned %v", err)
	}

	a, err := svc.Acknowledge(context.Background(), "u-1", id)
	if err != nil {
		t.Fatalf("Acknowledge returned %v", err)
	}
	if a.Status != alert.StatusAcknowledged {
		t.Errorf("status = %q, want acknowledged", a.Status)
	}
	if a.AcknowledgedBy != "u-1" || a.AcknowledgedAt == nil {
		t.Errorf("acknowledgement fields not set: %+v", a)
	}

	// acknowledging again is a no-op
	again, err := svc.Acknowledge(context.Background(), "u-1", id)
	if err != nil {
		t.Fatalf("second Acknowledge returned %v", err)
	}
	if again.Status != alert.StatusAcknowledged {
		t.Errorf("status = %q after repeat, want acknowledged", again.Status)
	}
}

func TestAcknowledgeRejectsResolvedAlert(t *testing.T) {
	repo := memory.NewAlertRepository()
	pub := alerting.NewPublisher("", testutil.NewTestLogger())
	svc := services.NewAlertService(repo, pub, &testutil.MockQueue{}, testutil.NewTestLogger())

	a := testutil.NewAlert("a-1", "u-1", alert.SeverityLow)
	a.Status = alert.StatusResolved
	repo.Create(context.Background(), a)

	_, err := svc.Acknowledge(context.Background(), "u-1", "a-1")
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeBadRequest {
		t.Errorf("err = %v, want BAD_REQUEST", err)
	}
}
