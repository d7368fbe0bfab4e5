package appointments

import (
	"fmt"
	"time"
)

// Appointment statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusNoShow    = "no_show"
)

// validTransitions maps a status to the statuses it may move to.
var validTransitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted, StatusNoShow},
}

// CanTransition reports whether an appointment may move from one status to
// another. Terminal statuses (cancelled, completed, no_show) allow no moves.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Appointment is a booked visit.
type Appointment struct {
	ID              string     `json:"id"`
	BusinessID      string     `json:"business_id"`
	ConversationID  string     `json:"conversation_id,omitempty"`
	CustomerName    string     `json:"customer_name"`
	CustomerEmail   string     `json:"customer_email"`
	CustomerPhone   string     `json:"customer_phone,omitempty"`
	Date            string     `json:"appointment_date"` // YYYY-MM-DD
	Time            string     `json:"appointment_time"` // HH:MM
	DurationMinutes int        `json:"duration_minutes"`
	ServiceType     string     `json:"service_type,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Status          string     `json:"status"`
	Reminder24hSent bool       `json:"reminder_24h_sent"`
	Reminder1hSent  bool       `json:"reminder_1h_sent"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// StartsAt combines the date and time columns into a concrete instant in the
// given location. The time column may carry seconds.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if ts, err := time.ParseInLocation(layout, a.Date+" "+a.Time, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("appointments: bad date/time %q %q", a.Date, a.Time)
}

// CreateParams are the fields accepted when booking an appointment.
type CreateParams struct {
	BusinessID      string
	ConversationID  string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Date            string
	Time            string
	DurationMinutes int
	ServiceType     string
	Notes           string
}
