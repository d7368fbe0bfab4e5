package reminder

import (
	"context"
	"time"

	"github.com/ravenhq/raven-platform/internal/appointments"
	"github.com/ravenhq/raven-platform/internal/availability"
	"github.com/ravenhq/raven-platform/internal/notify"
	"github.com/ravenhq/raven-platform/pkg/logging"
)

type appointmentStore interface {
	ListDueForReminder(ctx context.Context, fromDate, toDate, reminderColumn string) ([]appointments.Appointment, error)
	MarkReminderSent(ctx context.Context, id, reminderColumn string) error
}

type scheduleStore interface {
	Get(ctx context.Context, businessID string) (*availability.Settings, error)
}

type businessLookup interface {
	NameAndLanguage(ctx context.Context, businessID string) (name, language string, err error)
}

type reminderSender interface {
	SendReminder(ctx context.Context, n notify.AppointmentNotification, kind notify.ReminderKind) error
}

type metricsRecorder interface {
	ObserveReminderSent(kind string)
}

// Scheduler sweeps upcoming appointments and sends 24-hour and 1-hour
// reminders. Each reminder is sent at most once per appointment.
type Scheduler struct {
	store      appointmentStore
	schedules  scheduleStore
	businesses businessLookup
	sender     reminderSender
	metrics    metricsRecorder
	logger     *logging.Logger
	interval   time.Duration
	now        func() time.Time
}

func NewScheduler(store appointmentStore, schedules scheduleStore, businesses businessLookup, sender reminderSender, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		store:      store,
		schedules:  schedules,
		businesses: businesses,
		sender:     sender,
		logger:     logger,
		interval:   15 * time.Minute,
		now:        time.Now,
	}
}

func (s *Scheduler) WithInterval(d time.Duration) *Scheduler {
	if d > 0 {
		s.interval = d
	}
	return s
}

func (s *Scheduler) WithMetrics(m metricsRecorder) *Scheduler {
	s.metrics = m
	return s
}

func (s *Scheduler) WithNow(now func() time.Time) *Scheduler {
	if now != nil {
		s.now = now
	}
	return s
}

// Run sweeps immediately, then on every tick until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs both reminder passes once.
func (s *Scheduler) Sweep(ctx context.Context) {
	// 24h reminders fire when the appointment starts in 23 to 25 hours;
	// 1h reminders when it starts in 45 to 75 minutes. The wide windows
	// tolerate a missed tick without skipping anyone.
	s.sweepKind(ctx, notify.Reminder24h, "reminder_24h_sent",
		func(until time.Duration) bool { return until >= 23*time.Hour && until < 25*time.Hour })
	s.sweepKind(ctx, notify.Reminder1h, "reminder_1h_sent",
		func(until time.Duration) bool { return until >= 45*time.Minute && until <= 75*time.Minute })
}

func (s *Scheduler) sweepKind(ctx context.Context, kind notify.ReminderKind, column string, due func(time.Duration) bool) {
	if s.store == nil || s.sender == nil {
		return
	}

	now := s.now()
	// Candidate dates span yesterday..+2 days so timezone offsets can't
	// push an appointment outside the queried range.
	fromDate := now.AddDate(0, 0, -1).Format("2006-01-02")
	toDate := now.AddDate(0, 0, 2).Format("2006-01-02")

	appts, err := s.store.ListDueForReminder(ctx, fromDate, toDate, column)
	if err != nil {
		s.logger.Error("reminder sweep failed", "kind", kind, "error", err)
		return
	}

	prefs := map[string]businessPrefs{}
	for _, appt := range appts {
		p, ok := prefs[appt.BusinessID]
		if !ok {
			p = s.loadPrefs(ctx, appt.BusinessID, kind)
			prefs[appt.BusinessID] = p
		}
		if !p.enabled {
			continue
		}

		startsAt, err := appt.StartsAt(p.loc)
		if err != nil {
			s.logger.Warn("skipping appointment with bad date/time",
				"appointment_id", appt.ID, "error", err)
			continue
		}
		if !due(startsAt.Sub(now)) {
			continue
		}

		s.dispatch(ctx, appt, kind, column)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, appt appointments.Appointment, kind notify.ReminderKind, column string) {
	name, language := appt.BusinessID, ""
	if s.businesses != nil {
		n, l, err := s.businesses.NameAndLanguage(ctx, appt.BusinessID)
		if err != nil {
			s.logger.Error("load business for reminder failed",
				"business_id", appt.BusinessID, "error", err)
			return
		}
		name, language = n, l
	}

	n := notify.AppointmentNotification{
		AppointmentID:   appt.ID,
		BusinessID:      appt.BusinessID,
		BusinessName:    name,
		CustomerName:    appt.CustomerName,
		CustomerEmail:   appt.CustomerEmail,
		CustomerPhone:   appt.CustomerPhone,
		Date:            appt.Date,
		Time:            appt.Time,
		DurationMinutes: appt.DurationMinutes,
		ServiceType:     appt.ServiceType,
		Notes:           appt.Notes,
		Language:        language,
	}
	if err := s.sender.SendReminder(ctx, n, kind); err != nil {
		s.logger.Error("send reminder failed",
			"appointment_id", appt.ID, "kind", kind, "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveReminderSent(string(kind))
	}
	if err := s.store.MarkReminderSent(ctx, appt.ID, column); err != nil {
		s.logger.Error("mark reminder sent failed",
			"appointment_id", appt.ID, "kind", kind, "error", err)
	}
}

// businessPrefs is the per-business state one sweep needs, loaded once per
// business per pass.
type businessPrefs struct {
	loc     *time.Location
	enabled bool
}

func (s *Scheduler) loadPrefs(ctx context.Context, businessID string, kind notify.ReminderKind) businessPrefs {
	var settings *availability.Settings
	if s.schedules != nil {
		st, err := s.schedules.Get(ctx, businessID)
		if err != nil {
			s.logger.Warn("load availability settings for reminder failed",
				"business_id", businessID, "error", err)
		} else {
			settings = st
		}
	}

	tz := availability.DefaultTimezone
	if settings != nil && settings.Timezone != "" {
		tz = settings.Timezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return businessPrefs{loc: loc, enabled: reminderOptedIn(settings, kind)}
}

// reminderOptedIn applies the per-business reminder settings. Businesses that
// never saved availability settings still get 24h reminders; 1h reminders are
// opt-in everywhere.
func reminderOptedIn(settings *availability.Settings, kind notify.ReminderKind) bool {
	if settings == nil {
		return kind == notify.Reminder24h
	}
	if kind == notify.Reminder1h {
		return settings.Reminder1hEnabled
	}
	return settings.Reminder24hEnabled
}
