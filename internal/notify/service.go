package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ravenhq/raven-platform/internal/conversations"
	"github.com/ravenhq/raven-platform/pkg/logging"
)

// Service sends appointment and transcript notifications to customers.
// Email and SMS senders may each be nil; the service sends on whichever
// channels are configured.
type Service struct {
	email  EmailSender
	sms    SMSSender
	logger *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, sms SMSSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, sms: sms, logger: logger}
}

var frenchWeekdays = map[time.Weekday]string{
	time.Monday:    "lundi",
	time.Tuesday:   "mardi",
	time.Wednesday: "mercredi",
	time.Thursday:  "jeudi",
	time.Friday:    "vendredi",
	time.Saturday:  "samedi",
	time.Sunday:    "dimanche",
}

var frenchMonths = map[time.Month]string{
	time.January:   "janvier",
	time.February:  "février",
	time.March:     "mars",
	time.April:     "avril",
	time.May:       "mai",
	time.June:      "juin",
	time.July:      "juillet",
	time.August:    "août",
	time.September: "septembre",
	time.October:   "octobre",
	time.November:  "novembre",
	time.December:  "décembre",
}

// formatWhen renders "2024-02-05" + "09:00" as a human date in the customer's
// language. Falls back to the raw strings when the date doesn't parse.
func formatWhen(date, clock, language string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date + " " + clock
	}
	if language == "en" {
		return fmt.Sprintf("%s %02d %s at %s", d.Weekday(), d.Day(), d.Month(), clock)
	}
	return fmt.Sprintf("%s %02d %s à %s", frenchWeekdays[d.Weekday()], d.Day(), frenchMonths[d.Month()], clock)
}

// SendAppointmentConfirmation emails (and texts, when a phone is known) the
// customer that their appointment is booked.
func (s *Service) SendAppointmentConfirmation(ctx context.Context, n AppointmentNotification) error {
	when := formatWhen(n.Date, n.Time, n.Language)

	var subject, body, smsBody string
	if n.Language == "en" {
		subject = fmt.Sprintf("Appointment confirmed - %s", n.BusinessName)
		body = fmt.Sprintf(`Hello %s,

Your appointment with %s is confirmed.

When: %s
Duration: %d minutes%s

See you soon!
%s`, n.CustomerName, n.BusinessName, when, n.DurationMinutes, serviceLine(n.ServiceType, "en"), n.BusinessName)
		smsBody = fmt.Sprintf("%s: your appointment is confirmed for %s.", n.BusinessName, when)
	} else {
		subject = fmt.Sprintf("Rendez-vous confirmé - %s", n.BusinessName)
		body = fmt.Sprintf(`Bonjour %s,

Votre rendez-vous avec %s est confirmé.

Quand : %s
Durée : %d minutes%s

À bientôt !
%s`, n.CustomerName, n.BusinessName, when, n.DurationMinutes, serviceLine(n.ServiceType, "fr"), n.BusinessName)
		smsBody = fmt.Sprintf("%s : votre rendez-vous est confirmé pour %s.", n.BusinessName, when)
	}

	return s.dispatch(ctx, n, subject, body, smsBody, "confirmation")
}

// SendAppointmentCancellation tells the customer their appointment was
// cancelled.
func (s *Service) SendAppointmentCancellation(ctx context.Context, n AppointmentNotification) error {
	when := formatWhen(n.Date, n.Time, n.Language)

	var subject, body, smsBody string
	if n.Language == "en" {
		subject = fmt.Sprintf("Appointment cancelled - %s", n.BusinessName)
		body = fmt.Sprintf(`Hello %s,

Your appointment with %s scheduled for %s has been cancelled.

Feel free to book a new time whenever suits you.

%s`, n.CustomerName, n.BusinessName, when, n.BusinessName)
		smsBody = fmt.Sprintf("%s: your appointment for %s has been cancelled.", n.BusinessName, when)
	} else {
		subject = fmt.Sprintf("Rendez-vous annulé - %s", n.BusinessName)
		body = fmt.Sprintf(`Bonjour %s,

Votre rendez-vous avec %s prévu pour %s a été annulé.

N'hésitez pas à réserver un nouveau créneau quand cela vous convient.

%s`, n.CustomerName, n.BusinessName, when, n.BusinessName)
		smsBody = fmt.Sprintf("%s : votre rendez-vous du %s a été annulé.", n.BusinessName, when)
	}

	return s.dispatch(ctx, n, subject, body, smsBody, "cancellation")
}

// SendReminder nudges the customer 24 hours or 1 hour before their visit.
func (s *Service) SendReminder(ctx context.Context, n AppointmentNotification, kind ReminderKind) error {
	when := formatWhen(n.Date, n.Time, n.Language)

	var subject, body, smsBody string
	if n.Language == "en" {
		lead := "tomorrow"
		if kind == Reminder1h {
			lead = "in about an hour"
		}
		subject = fmt.Sprintf("Reminder: your appointment %s - %s", lead, n.BusinessName)
		body = fmt.Sprintf(`Hello %s,

A quick reminder: your appointment with %s is %s.

When: %s%s

See you soon!
%s`, n.CustomerName, n.BusinessName, lead, when, serviceLine(n.ServiceType, "en"), n.BusinessName)
		smsBody = fmt.Sprintf("%s: reminder, your appointment is %s (%s).", n.BusinessName, lead, when)
	} else {
		lead := "demain"
		if kind == Reminder1h {
			lead = "dans environ une heure"
		}
		subject = fmt.Sprintf("Rappel : votre rendez-vous %s - %s", lead, n.BusinessName)
		body = fmt.Sprintf(`Bonjour %s,

Petit rappel : votre rendez-vous avec %s est %s.

Quand : %s%s

À bientôt !
%s`, n.CustomerName, n.BusinessName, lead, when, serviceLine(n.ServiceType, "fr"), n.BusinessName)
		smsBody = fmt.Sprintf("%s : rappel, votre rendez-vous est %s (%s).", n.BusinessName, lead, when)
	}

	return s.dispatch(ctx, n, subject, body, smsBody, string(kind)+" reminder")
}

func serviceLine(serviceType, language string) string {
	if serviceType == "" {
		return ""
	}
	if language == "en" {
		return fmt.Sprintf("\nService: %s", serviceType)
	}
	return fmt.Sprintf("\nService : %s", serviceType)
}

// dispatch sends on every configured channel and reports how many failed.
func (s *Service) dispatch(ctx context.Context, n AppointmentNotification, subject, body, smsBody, kind string) error {
	var errs []error

	if s.email != nil && n.CustomerEmail != "" {
		msg := EmailMessage{
			To:      n.CustomerEmail,
			ToName:  n.CustomerName,
			Subject: subject,
			Body:    body,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: email failed", "kind", kind, "appointment_id", n.AppointmentID, "error", err)
			errs = append(errs, err)
		} else {
			s.logger.Info("notify: email sent", "kind", kind, "appointment_id", n.AppointmentID, "to", n.CustomerEmail)
		}
	}

	if s.sms != nil && n.CustomerPhone != "" {
		if err := s.sms.SendSMS(ctx, n.CustomerPhone, smsBody); err != nil {
			s.logger.Error("notify: SMS failed", "kind", kind, "appointment_id", n.AppointmentID, "error", err)
			errs = append(errs, err)
		} else {
			s.logger.Info("notify: SMS sent", "kind", kind, "appointment_id", n.AppointmentID, "to", n.CustomerPhone)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}

// SendTranscript emails a conversation transcript to the visitor.
func (s *Service) SendTranscript(ctx context.Context, toEmail, businessName string, messages []conversations.Message, language string) error {
	if s.email == nil {
		return fmt.Errorf("notify: email sender not configured")
	}

	var subject, header, youLabel string
	if language == "en" {
		subject = fmt.Sprintf("Your conversation with %s", businessName)
		header = fmt.Sprintf("Here is a copy of your conversation with %s:", businessName)
		youLabel = "You"
	} else {
		subject = fmt.Sprintf("Votre conversation avec %s", businessName)
		header = fmt.Sprintf("Voici une copie de votre conversation avec %s :", businessName)
		youLabel = "Vous"
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for _, m := range messages {
		label := businessName
		if m.Role == conversations.RoleUser {
			label = youLabel
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.CreatedAt.Format("15:04"), label, m.Content)
	}
	b.WriteString("\n")
	b.WriteString(businessName)

	msg := EmailMessage{To: toEmail, Subject: subject, Body: b.String()}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send transcript: %w", err)
	}
	return nil
}
