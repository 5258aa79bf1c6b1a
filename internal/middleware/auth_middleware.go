package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/clockout/clockout/internal/models"
	"github.com/clockout/clockout/internal/service"
	"github.com/sirupsen/logrus"
)

type contextKey string

const tenantContextKey contextKey = "tenant"

type AuthMiddleware struct {
	auth   *service.AuthService
	logger *logrus.Logger
}

func NewAuthMiddleware(auth *service.AuthService, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		auth:   auth,
		logger: logger,
	}
}

// RequireTenant authenticates the bearer token and stores the tenant it
// authorizes in the request context. Downstream handlers must scope every
// mutation to that tenant, never to a slug from the request body.
func (m *AuthMiddleware) RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization header format")
			return
		}

		tenant, err := m.auth.Authenticate(parts[1])
		if err != nil {
			m.logger.WithError(err).Debug("Token verification failed")
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				m.respondError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token expired, log in again")
			case errors.Is(err, service.ErrUnknownTenant):
				m.respondError(w, http.StatusForbidden, "FORBIDDEN", "Token does not belong to a known tenant")
			default:
				m.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid access token")
			}
			return
		}

		ctx := context.WithValue(r.Context(), tenantContextKey, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantFromContext returns the tenant RequireTenant stored for this
// request.
func TenantFromContext(ctx context.Context) (models.Tenant, bool) {
	tenant, ok := ctx.Value(tenantContextKey).(models.Tenant)
	return tenant, ok
}

func (m *AuthMiddleware) respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
