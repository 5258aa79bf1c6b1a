package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/clockout/clockout/internal/middleware"
	"github.com/clockout/clockout/internal/service"
	"github.com/sirupsen/logrus"
)

// AdminHandlers serves login, token refresh and the authenticated
// set-time endpoint.
type AdminHandlers struct {
	auth   *service.AuthService
	timers *service.TimerService
	logger *logrus.Logger
}

func NewAdminHandlers(auth *service.AuthService, timers *service.TimerService, logger *logrus.Logger) *AdminHandlers {
	return &AdminHandlers{
		auth:   auth,
		timers: timers,
		logger: logger,
	}
}

type LoginRequest struct {
	Slug     string `json:"slug"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type SetTimeRequest struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

type SetTimeResponse struct {
	Message string `json:"message"`
}

func (h *AdminHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	pair, err := h.auth.Login(r.Context(), middleware.ClientIP(r), req.Slug, req.Password)
	if err != nil {
		h.respondAuthError(w, err, "Wrong slug or password")
		return
	}

	respondWithJSON(w, http.StatusOK, pair)
}

func (h *AdminHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.RefreshToken == "" {
		respondWithError(w, http.StatusBadRequest, "MISSING_TOKEN", "Refresh token is required")
		return
	}

	accessToken, expiresIn, err := h.auth.Refresh(r.Context(), middleware.ClientIP(r), req.RefreshToken)
	if err != nil {
		// A well-signed refresh token naming an unknown tenant is a
		// forbidden token, not a bad slug.
		if errors.Is(err, service.ErrUnknownTenant) {
			respondWithError(w, http.StatusForbidden, "FORBIDDEN", "Token does not belong to a known tenant")
			return
		}
		h.respondAuthError(w, err, "Invalid refresh token")
		return
	}

	respondWithJSON(w, http.StatusOK, RefreshResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
	})
}

// SetTime updates the clock-out target for the tenant the access token
// authorizes. The tenant comes from the token, never from the body.
func (h *AdminHandlers) SetTime(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authenticated tenant")
		return
	}

	var req SetTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if err := h.timers.SetTarget(r.Context(), tenant, req.Hour, req.Minute); err != nil {
		if errors.Is(err, service.ErrInvalidTime) {
			respondWithError(w, http.StatusBadRequest, "INVALID_TIME", "Hour must be 0-23 and minute 0-59")
			return
		}
		h.logger.WithError(err).Error("Failed to update timer setting")
		respondWithError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to update timer setting")
		return
	}

	respondWithJSON(w, http.StatusOK, SetTimeResponse{
		Message: fmt.Sprintf("Clock-out time for %s set to %02d:%02d", tenant, req.Hour, req.Minute),
	})
}

func (h *AdminHandlers) respondAuthError(w http.ResponseWriter, err error, forbiddenMessage string) {
	var rateLimited *service.RateLimitError
	switch {
	case errors.As(err, &rateLimited):
		seconds := int(math.Ceil(rateLimited.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		respondWithError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many attempts, try again later")
	case errors.Is(err, service.ErrUnknownTenant):
		respondWithError(w, http.StatusBadRequest, "INVALID_SLUG", "Unknown slug")
	case errors.Is(err, service.ErrBadCredentials):
		respondWithError(w, http.StatusForbidden, "FORBIDDEN", forbiddenMessage)
	case errors.Is(err, service.ErrTokenExpired):
		respondWithError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token expired, log in again")
	case errors.Is(err, service.ErrTokenInvalid):
		respondWithError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token")
	default:
		h.logger.WithError(err).Error("Auth request failed")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
