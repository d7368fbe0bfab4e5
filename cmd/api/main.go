package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ravenhq/raven-platform/internal/api/router"
	"github.com/ravenhq/raven-platform/internal/appointments"
	"github.com/ravenhq/raven-platform/internal/availability"
	"github.com/ravenhq/raven-platform/internal/business"
	"github.com/ravenhq/raven-platform/internal/chat"
	appconfig "github.com/ravenhq/raven-platform/internal/config"
	"github.com/ravenhq/raven-platform/internal/conversations"
	"github.com/ravenhq/raven-platform/internal/notify"
	"github.com/ravenhq/raven-platform/internal/observability/metrics"
	"github.com/ravenhq/raven-platform/internal/reminder"
	"github.com/ravenhq/raven-platform/internal/webchat"
	"github.com/ravenhq/raven-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting raven-platform API server", "env", cfg.Env, "port", cfg.Port)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	if cfg.GeminiAPIKey == "" {
		logger.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}
	llm, err := chat.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}

	// Repositories.
	businessRepo := business.NewRepository(pool)
	conversationRepo := conversations.NewRepository(pool)
	availabilityRepo := availability.NewRepository(pool)
	appointmentRepo := appointments.NewRepository(pool)

	// Notifications.
	emailSender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)
	var email notify.EmailSender
	if emailSender != nil {
		email = emailSender
	} else {
		logger.Warn("sendgrid not configured, emails will be logged only")
		email = notify.NewStubEmailSender(logger)
	}
	sms := notify.SMSSender(notify.NewStubSMSSender(logger))
	notifier := notify.NewService(email, sms, logger)

	chatMetrics := metrics.NewChatMetrics(nil)

	// Chat orchestrator.
	chatService := chat.NewService(chat.ServiceConfig{
		Businesses:     businessRepo,
		Conversations:  conversationRepo,
		Availability:   availabilityRepo,
		Appointments:   appointmentRepo,
		LLM:            llm,
		Notifier:       notifier,
		Metrics:        chatMetrics,
		Logger:         logger,
		SlotWindowDays: cfg.SlotWindowDays,
		MaxChatSlots:   cfg.MaxChatSlots,
	})

	// Handlers.
	widgetCache := business.NewWidgetCache(redisClient, cfg.WidgetCacheTTL)
	chatHandler := chat.NewHandler(chatService, logger)
	businessHandler := business.NewHandler(businessRepo, availabilityRepo, widgetCache, logger)
	conversationsHandler := conversations.NewHandler(conversationRepo, notifier, businessRepo, logger)
	availabilityHandler := availability.NewHandler(availabilityRepo, appointmentRepo, cfg.SlotWindowDays, logger)
	appointmentsHandler := appointments.NewHandler(appointmentRepo, notifier, businessRepo, logger)

	// Widget JS is optional; serve an empty file when the asset is absent.
	widgetJS, err := os.ReadFile("web/widget.js")
	if err != nil {
		logger.Warn("widget.js not found, serving empty asset")
	}
	webchatHandler := webchat.NewHandler(chatService, conversationRepo, widgetJS, logger)

	r := router.New(&router.Config{
		Logger:               logger,
		ChatHandler:          chatHandler,
		BusinessHandler:      businessHandler,
		ConversationsHandler: conversationsHandler,
		AvailabilityHandler:  availabilityHandler,
		AppointmentsHandler:  appointmentsHandler,
		WebchatHandler:       webchatHandler,
		MetricsHandler:       promhttp.Handler(),
		DashboardAuthSecret:  cfg.DashboardJWTSecret,
		CORSAllowedOrigins:   strings.Split(cfg.CORSAllowedOrigins, ","),
		WidgetRateLimit:      5,
		WidgetRateBurst:      20,
	})

	// In-process reminder scheduler; run cmd/reminder-worker instead when
	// deploying the API with multiple replicas.
	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	if cfg.ReminderEnabled {
		scheduler := reminder.NewScheduler(appointmentRepo, availabilityRepo, businessRepo, notifier, logger).
			WithInterval(cfg.ReminderInterval).
			WithMetrics(chatMetrics)
		go scheduler.Run(schedulerCtx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
