package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/ravenhq/raven-platform/internal/appointments"
	"github.com/ravenhq/raven-platform/internal/availability"
	"github.com/ravenhq/raven-platform/internal/business"
	appconfig "github.com/ravenhq/raven-platform/internal/config"
	"github.com/ravenhq/raven-platform/internal/notify"
	"github.com/ravenhq/raven-platform/internal/observability/metrics"
	"github.com/ravenhq/raven-platform/internal/reminder"
	"github.com/ravenhq/raven-platform/pkg/logging"
)

// Standalone reminder worker. Deploy exactly one instance; the API's
// in-process scheduler should be disabled (ENABLE_REMINDER_SCHEDULER=false)
// when this runs.
func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting raven-platform reminder worker", "interval", cfg.ReminderInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

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
	notifier := notify.NewService(email, notify.NewStubSMSSender(logger), logger)

	scheduler := reminder.NewScheduler(
		appointments.NewRepository(pool),
		availability.NewRepository(pool),
		business.NewRepository(pool),
		notifier,
		logger,
	).WithInterval(cfg.ReminderInterval).
		WithMetrics(metrics.NewChatMetrics(nil))

	scheduler.Run(ctx)
	logger.Info("reminder worker stopped")
}
