package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upcb/cloudsec/internal/auth"
	apperrors "github.com/upcb/cloudsec/internal/pkg/errors"
	"github.com/upcb/cloudsec/internal/pkg/utils"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	emailKey  contextKey = "email"
	roleKey   contextKey = "role"
)

// Auth returns a middleware that validates the Bearer token and puts
// the caller identity on the request context
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				utils.WriteError(w, apperrors.Unauthorized("missing authorization header"))
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				utils.WriteError(w, apperrors.Unauthorized("invalid authorization header format"))
				return
			}

			claims, err := auth.ParseClaims(parts[1], jwtSecret)
			if err != nil {
				utils.WriteError(w, apperrors.Unauthorized("invalid or expired token"))
				return
			}

			ctx := WithIdentity(r.Context(), claims.UserID, claims.Email, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly requires the caller to carry the admin role. It must run
// after Auth.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RoleFromContext(r.Context()) != auth.RoleAdmin {
			utils.WriteError(w, apperrors.Forbidden("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a context carrying the authenticated identity
func WithIdentity(ctx context.Context, userID, email, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, emailKey, email)
	return context.WithValue(ctx, roleKey, role)
}

// UserIDFromContext returns the authenticated user ID, if any
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// EmailFromContext returns the authenticated user's email, if any
func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}

// RoleFromContext returns the authenticated user's role, if any
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}
