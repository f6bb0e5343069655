package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/upcb/cloudsec/internal/domain/alert"
	apperrors "github.com/upcb/cloudsec/internal/pkg/errors"
)

func seed(t *testing.T, repo *AlertRepository, n int, userID, severity string) {
	t.Helper()
	base := time.Now()
	for i := 0; i < n; i++ {
		err := repo.Create(context.Background(), &alert.Alert{
			ID:        fmt.Sprintf("%s-%s-%d", userID, severity, i),
			UserID:    userID,
			Title:     "finding",
			Severity:  severity,
			Status:    alert.StatusOpen,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewAlertRepository()

	_, err := repo.GetByID(context.Background(), "missing")
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeNotFound {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestListByUserFiltersAndScopes(t *testing.T) {
	repo := NewAlertRepository()
	seed(t, repo, 3, "u-1", alert.SeverityHigh)
	seed(t, repo, 2, "u-1", alert.SeverityLow)
	seed(t, repo, 4, "u-2", alert.SeverityHigh)

	alerts, total, err := repo.ListByUser(context.Background(), "u-1", alert.Filter{}, 100, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if total != 5 || len(alerts) != 5 {
		t.Errorf("total = %d, len = %d, want 5", total, len(alerts))
	}

	alerts, total, err = repo.ListByUser(context.Background(), "u-1", alert.Filter{Severity: alert.SeverityHigh}, 100, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if total != 3 {
		t.Errorf("filtered total = %d, want 3", total)
	}
	for _, a := range alerts {
		if a.Severity != alert.SeverityHigh || a.UserID != "u-1" {
			t.Errorf("unexpected alert %+v", a)
		}
	}
}

func TestListByUserNewestFirstAndPaginated(t *testing.T) {
	repo := NewAlertRepository()
	seed(t, repo, 5, "u-1", alert.SeverityMedium)

	page, total, err := repo.ListByUser(context.Background(), "u-1", alert.Filter{}, 2, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("total = %d, page = %d", total, len(page))
	}
	if !page[0].CreatedAt.After(page[1].CreatedAt) {
		t.Error("results not newest first")
	}

	next, _, err := repo.ListByUser(context.Background(), "u-1", alert.Filter{}, 2, 2)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(next) != 2 || next[0].ID == page[0].ID {
		t.Errorf("pagination overlap: %v vs %v", next[0].ID, page[0].ID)
	}

	empty, _, err := repo.ListByUser(context.Background(), "u-1", alert.Filter{}, 2, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("out-of-range page returned %d alerts", len(empty))
	}
}

func TestUpdateMissingAlert(t *testing.T) {
	repo := NewAlertRepository()

	err := repo.Update(context.Background(), &alert.Alert{ID: "missing"})
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeNotFound {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestStoredAlertsAreCopies(t *testing.T) {
	repo := NewAlertRepository()
	a := &alert.Alert{ID: "a-1", UserID: "u-1", Title: "original", Severity: alert.SeverityLow, CreatedAt: time.Now()}
	repo.Create(context.Background(), a)

	a.Title = "mutated"

	stored, err := repo.GetByID(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Title != "original" {
		t.Error("repository shares memory with caller")
	}
}
