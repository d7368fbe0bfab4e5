package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ravenhq/raven-platform/internal/appointments"
	"github.com/ravenhq/raven-platform/internal/availability"
	"github.com/ravenhq/raven-platform/internal/business"
	"github.com/ravenhq/raven-platform/internal/chat"
	"github.com/ravenhq/raven-platform/internal/conversations"
	httpmiddleware "github.com/ravenhq/raven-platform/internal/http/middleware"
	"github.com/ravenhq/raven-platform/internal/webchat"
	"github.com/ravenhq/raven-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger               *logging.Logger
	ChatHandler          *chat.Handler
	BusinessHandler      *business.Handler
	ConversationsHandler *conversations.Handler
	AvailabilityHandler  *availability.Handler
	AppointmentsHandler  *appointments.Handler
	WebchatHandler       *webchat.Handler
	MetricsHandler       http.Handler
	DashboardAuthSecret  string
	CORSAllowedOrigins   []string
	WidgetRateLimit      float64
	WidgetRateBurst      int
}

// New creates a Chi router with all routes configured. Widget routes are
// public (the chat widget runs on arbitrary customer sites); dashboard routes
// sit behind JWT auth.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public widget API.
	r.Route("/api", func(api chi.Router) {
		if cfg.WidgetRateLimit > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.WidgetRateLimit, cfg.WidgetRateBurst))
		}
		if cfg.ChatHandler != nil {
			cfg.ChatHandler.Routes(api)
		}
		if cfg.BusinessHandler != nil {
			cfg.BusinessHandler.Routes(api)
		}
		if cfg.ConversationsHandler != nil {
			cfg.ConversationsHandler.Routes(api)
		}
	})

	if cfg.WebchatHandler != nil {
		r.Get("/chat/ws", cfg.WebchatHandler.HandleWebSocket)
		r.Get("/chat/widget.js", cfg.WebchatHandler.HandleWidgetJS)
	}

	// Dashboard API.
	r.Route("/api/dashboard", func(dash chi.Router) {
		dash.Use(httpmiddleware.DashboardJWT(cfg.DashboardAuthSecret))
		dash.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			id, _ := httpmiddleware.BusinessIDFromContext(r.Context())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"business_id":"` + id + `"}`))
		})
		if cfg.AvailabilityHandler != nil {
			cfg.AvailabilityHandler.Routes(dash)
		}
		if cfg.AppointmentsHandler != nil {
			cfg.AppointmentsHandler.Routes(dash)
		}
		if cfg.ConversationsHandler != nil {
			cfg.ConversationsHandler.DashboardRoutes(dash)
		}
		if cfg.WebchatHandler != nil {
			dash.Post("/webchat/agent-message", cfg.WebchatHandler.HandleAgentMessage)
		}
	})

	return r
}
