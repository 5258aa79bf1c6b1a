package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clockout/clockout/internal/config"
	"github.com/clockout/clockout/internal/handlers"
	"github.com/clockout/clockout/internal/middleware"
	"github.com/clockout/clockout/internal/models"
	"github.com/clockout/clockout/internal/ratelimit"
	"github.com/clockout/clockout/internal/repository"
	"github.com/clockout/clockout/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router *mux.Router
	tokens *service.TokenService
}

func newFixture(t *testing.T, accessExpiry time.Duration) *fixture {
	t.Helper()

	logger, _ := test.NewNullLogger()

	jwtCfg := &config.JWTConfig{
		AccessSecret:  "test-access-secret-0123456789abcdef",
		RefreshSecret: "test-refresh-secret-0123456789abcdef",
		AccessExpiry:  accessExpiry,
		RefreshExpiry: 7 * 24 * time.Hour,
	}
	tokens, err := service.NewTokenService(jwtCfg, logger)
	require.NoError(t, err)

	registry := service.NewCredentialRegistry(&config.AdminConfig{
		Passwords: map[models.Tenant]string{
			models.TenantSE:  "se-password",
			models.TenantMin: "min-password",
		},
	})
	rateCfg := &config.RateLimitConfig{
		LoginLimit:    10,
		LoginWindow:   time.Minute,
		RefreshLimit:  30,
		RefreshWindow: time.Minute,
		BlockDuration: time.Hour,
	}
	auth := service.NewAuthService(registry, tokens,
		ratelimit.NewMemoryLimiter(logger), ratelimit.NewMemoryFailureCounter(), rateCfg, logger)
	timers := service.NewTimerService(repository.NewMemoryStore(), logger)

	clockHandlers := handlers.NewClockHandlers(timers, "https://clockout.example", logger)
	adminHandlers := handlers.NewAdminHandlers(auth, timers, logger)
	authMiddleware := middleware.NewAuthMiddleware(auth, logger)

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/clock-out", clockHandlers.GetDefault).Methods("GET")
	api.HandleFunc("/clock-out/{slug}", clockHandlers.GetBySlug).Methods("GET")
	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/login", adminHandlers.Login).Methods("POST")
	admin.HandleFunc("/refresh", adminHandlers.Refresh).Methods("POST")
	admin.Handle("/set-time", authMiddleware.RequireTenant(http.HandlerFunc(adminHandlers.SetTime))).Methods("POST")
	router.HandleFunc("/share/{slug}", clockHandlers.Share).Methods("GET")

	return &fixture{router: router, tokens: tokens}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "1.2.3.4:5678"
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(into))
}

func (f *fixture) login(t *testing.T, slug, password string) models.TokenPair {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/admin/login",
		handlers.LoginRequest{Slug: slug, Password: password}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair models.TokenPair
	decode(t, rec, &pair)
	return pair
}

func TestClockOutDefaults(t *testing.T) {
	f := newFixture(t, 15*time.Minute)

	t.Run("default tenant", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/clock-out", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp handlers.ClockOutResponse
		decode(t, rec, &resp)
		require.Equal(t, "18:00", resp.TargetTime)
	})

	t.Run("named tenant", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/clock-out/tutoring", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp handlers.ClockOutResponse
		decode(t, rec, &resp)
		require.Equal(t, "18:00", resp.TargetTime)
	})

	t.Run("unknown slug", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/clock-out/nobody", nil, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	f := newFixture(t, 15*time.Minute)

	t.Run("success returns token pair", func(t *testing.T) {
		pair := f.login(t, "min", "min-password")
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Equal(t, "bearer", pair.TokenType)
	})

	t.Run("unknown slug is a bad request", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/admin/login",
			handlers.LoginRequest{Slug: "nobody", Password: "pw"}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong password is forbidden", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/admin/login",
			handlers.LoginRequest{Slug: "min", Password: "wrong"}, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestLoginRateLimitedWithRetryAfter(t *testing.T) {
	f := newFixture(t, 15*time.Minute)

	for i := 0; i < 10; i++ {
		f.do(t, http.MethodPost, "/api/admin/login",
			handlers.LoginRequest{Slug: "min", Password: "wrong"}, nil)
	}

	rec := f.do(t, http.MethodPost, "/api/admin/login",
		handlers.LoginRequest{Slug: "min", Password: "min-password"}, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "3600", rec.Header().Get("Retry-After"))
}

func TestRefreshEndpoint(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	pair := f.login(t, "se", "se-password")

	t.Run("mints a new access token", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/admin/refresh",
			handlers.RefreshRequest{RefreshToken: pair.RefreshToken}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp handlers.RefreshResponse
		decode(t, rec, &resp)
		require.NotEmpty(t, resp.AccessToken)
	})

	t.Run("missing token is a bad request", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/admin/refresh", handlers.RefreshRequest{}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("access token is rejected", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/admin/refresh",
			handlers.RefreshRequest{RefreshToken: pair.AccessToken}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSetTimeEndToEnd(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	pair := f.login(t, "min", "min-password")

	rec := f.do(t, http.MethodPost, "/api/admin/set-time",
		handlers.SetTimeRequest{Hour: 9, Minute: 30}, bearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.SetTimeResponse
	decode(t, rec, &resp)
	require.Contains(t, resp.Message, "09:30")

	// The update lands on the token's tenant only.
	get := f.do(t, http.MethodGet, "/api/clock-out/min", nil, nil)
	var clock handlers.ClockOutResponse
	decode(t, get, &clock)
	require.Equal(t, "09:30", clock.TargetTime)

	get = f.do(t, http.MethodGet, "/api/clock-out/se", nil, nil)
	decode(t, get, &clock)
	require.Equal(t, "18:00", clock.TargetTime, "other tenants must be untouched")
}

func TestSetTimeValidation(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	pair := f.login(t, "min", "min-password")

	for _, req := range []handlers.SetTimeRequest{
		{Hour: 24, Minute: 0},
		{Hour: 9, Minute: 60},
	} {
		rec := f.do(t, http.MethodPost, "/api/admin/set-time", req, bearer(pair.AccessToken))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestSetTimeAuthFailures(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		f := newFixture(t, 15*time.Minute)
		rec := f.do(t, http.MethodPost, "/api/admin/set-time",
			handlers.SetTimeRequest{Hour: 9, Minute: 30}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		f := newFixture(t, 15*time.Minute)
		rec := f.do(t, http.MethodPost, "/api/admin/set-time",
			handlers.SetTimeRequest{Hour: 9, Minute: 30},
			http.Header{"Authorization": []string{"Token abc"}})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token is unauthorized, not forbidden", func(t *testing.T) {
		f := newFixture(t, -time.Minute)
		pair := f.login(t, "min", "min-password")

		rec := f.do(t, http.MethodPost, "/api/admin/set-time",
			handlers.SetTimeRequest{Hour: 9, Minute: 30}, bearer(pair.AccessToken))
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp handlers.ErrorResponse
		decode(t, rec, &resp)
		require.Equal(t, "TOKEN_EXPIRED", resp.Error.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newFixture(t, 15*time.Minute)
		rec := f.do(t, http.MethodPost, "/api/admin/set-time",
			handlers.SetTimeRequest{Hour: 9, Minute: 30}, bearer("garbage"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestShareRedirect(t *testing.T) {
	f := newFixture(t, 15*time.Minute)

	rec := f.do(t, http.MethodGet, "/share/min", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://clockout.example/min", rec.Header().Get("Location"))

	rec = f.do(t, http.MethodGet, "/share/nobody", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorEnvelopeShape(t *testing.T) {
	f := newFixture(t, 15*time.Minute)

	rec := f.do(t, http.MethodPost, "/api/admin/login",
		handlers.LoginRequest{Slug: "min", Password: "wrong"}, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp handlers.ErrorResponse
	decode(t, rec, &resp)
	require.Equal(t, "FORBIDDEN", resp.Error.Code)
	require.NotEmpty(t, resp.Error.Message)
}

func TestSecondsLeftMatchesTarget(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	pair := f.login(t, "min", "min-password")

	now := time.Now()
	target := now.Add(2 * time.Hour)
	rec := f.do(t, http.MethodPost, "/api/admin/set-time",
		handlers.SetTimeRequest{Hour: target.Hour(), Minute: target.Minute()}, bearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)

	get := f.do(t, http.MethodGet, "/api/clock-out/min", nil, nil)
	var clock handlers.ClockOutResponse
	decode(t, get, &clock)
	require.Equal(t, fmt.Sprintf("%02d:%02d", target.Hour(), target.Minute()), clock.TargetTime)

	// The countdown is anchored to today's target, so compute the
	// expectation the same way and allow slack for test execution.
	expected := time.Date(now.Year(), now.Month(), now.Day(),
		target.Hour(), target.Minute(), 0, 0, now.Location()).Sub(now).Seconds()
	require.InDelta(t, expected, float64(clock.SecondsLeft), 5)
}
