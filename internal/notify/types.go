package notify

// AppointmentNotification carries everything needed to notify a customer
// about an appointment by email and, when a phone number is known, SMS.
type AppointmentNotification struct {
	AppointmentID   string
	BusinessID      string
	BusinessName    string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Date            string // YYYY-MM-DD
	Time            string // HH:MM
	DurationMinutes int
	ServiceType     string
	Notes           string
	Language        string // "fr" or "en"
}

// ReminderKind distinguishes the two reminder windows.
type ReminderKind string

const (
	Reminder24h ReminderKind = "24h"
	Reminder1h  ReminderKind = "1h"
)
