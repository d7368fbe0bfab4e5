package availability

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ravenhq/raven-platform/pkg/logging"
)

// BookedLister supplies the appointments that block slots. Implemented by the
// appointments repository.
type BookedLister interface {
	ListBookedIntervals(ctx context.Context, businessID string, fromDate, toDate string) ([]BookedInterval, error)
}

// Handler exposes the availability settings and slot computation over HTTP.
type Handler struct {
	repo       *Repository
	booked     BookedLister
	logger     *logging.Logger
	windowDays int
}

// NewHandler wires the availability endpoints. windowDays is how far ahead the
// slots endpoint looks by default.
func NewHandler(repo *Repository, booked BookedLister, windowDays int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if windowDays <= 0 {
		windowDays = 5
	}
	return &Handler{repo: repo, booked: booked, logger: logger, windowDays: windowDays}
}

// Routes mounts the handler under /business/{businessID}/availability.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/business/{businessID}/availability", h.getSettings)
	r.Put("/business/{businessID}/availability", h.putSettings)
	r.Get("/business/{businessID}/availability/slots", h.getSlots)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")

	settings, err := h.repo.Get(r.Context(), businessID)
	if err != nil {
		h.logger.Error("load availability failed", "business_id", businessID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if settings == nil {
		http.Error(w, "availability not configured", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type putSettingsRequest struct {
	WeeklySchedule         WeeklySchedule `json:"weekly_schedule"`
	DefaultDurationMinutes int            `json:"default_duration_minutes"`
	BufferMinutes          int            `json:"buffer_minutes"`
	Timezone               string         `json:"timezone"`
	// Pointers so an absent field keeps the default: 24h reminders on,
	// 1h reminders opt-in.
	Reminder24hEnabled *bool `json:"reminder_24h_enabled"`
	Reminder1hEnabled  *bool `json:"reminder_1h_enabled"`
}

func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")

	var req putSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if msg := validateSettings(&req); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if req.Timezone == "" {
		req.Timezone = DefaultTimezone
	}
	reminder24h := true
	if req.Reminder24hEnabled != nil {
		reminder24h = *req.Reminder24hEnabled
	}
	reminder1h := false
	if req.Reminder1hEnabled != nil {
		reminder1h = *req.Reminder1hEnabled
	}

	settings, err := h.repo.Upsert(r.Context(), businessID, &Settings{
		WeeklySchedule:         req.WeeklySchedule,
		DefaultDurationMinutes: req.DefaultDurationMinutes,
		BufferMinutes:          req.BufferMinutes,
		Timezone:               req.Timezone,
		Reminder24hEnabled:     reminder24h,
		Reminder1hEnabled:      reminder1h,
	})
	if err != nil {
		h.logger.Error("save availability failed", "business_id", businessID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) getSlots(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	ctx := r.Context()

	days := h.windowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 31 {
			http.Error(w, "days must be between 1 and 31", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	settings, err := h.repo.Get(ctx, businessID)
	if err != nil {
		h.logger.Error("load availability failed", "business_id", businessID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if settings == nil {
		writeJSON(w, http.StatusOK, map[string]any{"slots": []Slot{}})
		return
	}

	now := time.Now().In(ResolveLocation(settings.Timezone))
	var booked []BookedInterval
	if h.booked != nil {
		fromDate := now.Format("2006-01-02")
		toDate := now.AddDate(0, 0, days).Format("2006-01-02")
		booked, err = h.booked.ListBookedIntervals(ctx, businessID, fromDate, toDate)
		if err != nil {
			h.logger.Error("load booked intervals failed", "business_id", businessID, "error", err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
	}

	slots := ComputeSlots(settings, now, days, booked, 0)
	if slots == nil {
		slots = []Slot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// validateSettings returns an error message, or "" when the payload is valid.
func validateSettings(req *putSettingsRequest) string {
	if req.DefaultDurationMinutes < 15 || req.DefaultDurationMinutes > 480 {
		return "default_duration_minutes must be between 15 and 480"
	}
	if req.BufferMinutes < 0 || req.BufferMinutes > 120 {
		return "buffer_minutes must be between 0 and 120"
	}
	if len(req.WeeklySchedule) == 0 {
		return "weekly_schedule is required"
	}
	valid := make(map[string]bool, len(WeekdayNames))
	for _, name := range WeekdayNames {
		valid[name] = true
	}
	for day, schedule := range req.WeeklySchedule {
		if !valid[day] {
			return "unknown weekday " + strconv.Quote(day)
		}
		for _, window := range schedule.Slots {
			start, err := parseClock(window.Start)
			if err != nil {
				return "invalid start time for " + day
			}
			end, err := parseClock(window.End)
			if err != nil {
				return "invalid end time for " + day
			}
			if start >= end {
				return "start must be before end for " + day
			}
		}
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return "unknown timezone " + strconv.Quote(req.Timezone)
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
