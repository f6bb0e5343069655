package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/upcb/cloudsec/internal/api/middleware"
	"github.com/upcb/cloudsec/internal/auth"
)

const testSecret = "test-secret"

func protectedHandler(t *testing.T, wantUserID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := middleware.UserIDFromContext(r.Context()); got != wantUserID {
			t.Errorf("user id in context = %q, want %q", got, wantUserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthAcceptsValidToken(t *testing.T) {
	token, err := auth.MintToken("u-1", "user@example.com", auth.RoleUser, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware.Auth(testSecret)(protectedHandler(t, "u-1")).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthRejectsBadRequests(t *testing.T) {
	expired, _ := auth.MintToken("u-1", "user@example.com", auth.RoleUser, testSecret, -time.Minute)
	wrongKey, _ := auth.MintToken("u-1", "user@example.com", auth.RoleUser, "other-secret", time.Minute)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong signing key", "Bearer " + wrongKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			called := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
			middleware.Auth(testSecret)(next).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if called {
				t.Error("handler reached with invalid credentials")
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	adminReq := httptest.NewRequest(http.MethodGet, "/", nil)
	adminReq = adminReq.WithContext(middleware.WithIdentity(adminReq.Context(), "u-1", "a@example.com", auth.RoleAdmin))
	rec := httptest.NewRecorder()
	middleware.AdminOnly(next).ServeHTTP(rec, adminReq)
	if rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}

	userReq := httptest.NewRequest(http.MethodGet, "/", nil)
	userReq = userReq.WithContext(middleware.WithIdentity(userReq.Context(), "u-2", "u@example.com", auth.RoleUser))
	rec = httptest.NewRecorder()
	middleware.AdminOnly(next).ServeHTTP(rec, userReq)
	if rec.Code != http.StatusForbidden {
		t.Errorf("user status = %d, want 403", rec.Code)
	}
}
