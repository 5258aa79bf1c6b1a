package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/clockout/clockout/internal/models"
	"github.com/clockout/clockout/internal/repository"
	"github.com/clockout/clockout/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ClockHandlers serves the public countdown endpoints and the share
// redirect.
type ClockHandlers struct {
	timers      *service.TimerService
	frontendURL string
	logger      *logrus.Logger
}

func NewClockHandlers(timers *service.TimerService, frontendURL string, logger *logrus.Logger) *ClockHandlers {
	return &ClockHandlers{
		timers:      timers,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

type ClockOutResponse struct {
	SecondsLeft int64  `json:"seconds_left"`
	TargetTime  string `json:"target_time"`
}

// GetDefault serves the unscoped endpoint for the default tenant.
func (h *ClockHandlers) GetDefault(w http.ResponseWriter, r *http.Request) {
	h.serveClockOut(w, r, models.DefaultTenant)
}

// GetBySlug serves the countdown for a named tenant; unknown slugs 404.
func (h *ClockHandlers) GetBySlug(w http.ResponseWriter, r *http.Request) {
	tenant, known := models.ParseTenant(mux.Vars(r)["slug"])
	if !known {
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Unknown timer")
		return
	}
	h.serveClockOut(w, r, tenant)
}

func (h *ClockHandlers) serveClockOut(w http.ResponseWriter, r *http.Request, tenant models.Tenant) {
	setting, err := h.timers.Get(r.Context(), tenant)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Unknown timer")
			return
		}
		h.logger.WithError(err).Error("Failed to load timer setting")
		respondWithError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load timer setting")
		return
	}

	respondWithJSON(w, http.StatusOK, ClockOutResponse{
		SecondsLeft: setting.SecondsLeft(time.Now()),
		TargetTime:  setting.TargetTime(),
	})
}

// Share redirects to the frontend page for a tenant's timer.
func (h *ClockHandlers) Share(w http.ResponseWriter, r *http.Request) {
	tenant, known := models.ParseTenant(mux.Vars(r)["slug"])
	if !known || h.frontendURL == "" {
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Unknown timer")
		return
	}

	target := strings.TrimRight(h.frontendURL, "/") + "/" + tenant.String()
	http.Redirect(w, r, target, http.StatusFound)
}
