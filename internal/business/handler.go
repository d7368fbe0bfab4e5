package business

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ravenhq/raven-platform/internal/availability"
	"github.com/ravenhq/raven-platform/pkg/logging"
)

// AvailabilityStore loads the schedule the online evaluator runs against.
type AvailabilityStore interface {
	Get(ctx context.Context, businessID string) (*availability.Settings, error)
}

// Handler serves the public widget bootstrap endpoint.
type Handler struct {
	repo     *Repository
	schedule AvailabilityStore
	cache    *WidgetCache
	logger   *logging.Logger
	now      func() time.Time
}

// NewHandler wires the widget endpoints. cache may be nil in tests.
func NewHandler(repo *Repository, schedule AvailabilityStore, cache *WidgetCache, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, schedule: schedule, cache: cache, logger: logger, now: time.Now}
}

// Routes mounts the public widget endpoint.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/chat/business/{businessID}/public", h.getPublicInfo)
}

func (h *Handler) getPublicInfo(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	ctx := r.Context()

	if h.cache != nil {
		cached, err := h.cache.Get(ctx, businessID)
		if err != nil {
			h.logger.Error("widget cache read failed", "business_id", businessID, "error", err)
		} else if cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	biz, err := h.repo.GetBusiness(ctx, businessID)
	if err != nil {
		h.logger.Error("load business failed", "business_id", businessID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if biz == nil {
		http.Error(w, "business not found", http.StatusNotFound)
		return
	}

	cfg, err := h.repo.GetConfig(ctx, businessID)
	if err != nil {
		h.logger.Error("load config failed", "business_id", businessID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	info := h.buildWidgetInfo(ctx, biz, cfg)

	if h.cache != nil {
		if err := h.cache.Set(ctx, info); err != nil {
			h.logger.Error("widget cache write failed", "business_id", businessID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, info)
}

// buildWidgetInfo assembles the public payload, running the online evaluator
// against the schedule and manual away flag.
func (h *Handler) buildWidgetInfo(ctx context.Context, biz *Business, cfg *Config) *WidgetInfo {
	info := &WidgetInfo{
		BusinessID:       biz.ID,
		Name:             biz.Name,
		Language:         biz.Language,
		WelcomeMessage:   DefaultWelcomeFR,
		WelcomeMessageEN: DefaultWelcomeEN,
		AwayMessage:      DefaultAwayFR,
		AwayMessageEN:    DefaultAwayEN,
		WidgetSettings:   DefaultWidgetSettings,
		IsOnline:         true,
	}

	manualAway := false
	if cfg != nil {
		manualAway = cfg.ManualAway
		if cfg.WelcomeMessage != "" {
			info.WelcomeMessage = cfg.WelcomeMessage
		}
		if cfg.WelcomeMessageEN != "" {
			info.WelcomeMessageEN = cfg.WelcomeMessageEN
		}
		if cfg.AwayMessage != "" {
			info.AwayMessage = cfg.AwayMessage
		}
		if cfg.AwayMessageEN != "" {
			info.AwayMessageEN = cfg.AwayMessageEN
		}
		if cfg.WidgetSettings != nil {
			info.WidgetSettings = *cfg.WidgetSettings
		}
		info.LeadCapture = cfg.LeadCapture
	}

	settings, err := h.schedule.Get(ctx, biz.ID)
	if err != nil {
		// Evaluator degrades to online rather than hiding the widget.
		h.logger.Error("load availability failed", "business_id", biz.ID, "error", err)
		settings = nil
	}
	info.IsOnline = availability.IsOnline(settings, manualAway, h.now())
	return info
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
