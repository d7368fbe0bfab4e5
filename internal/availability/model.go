package availability

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimezone is used when a business has no valid IANA timezone configured.
const DefaultTimezone = "Africa/Douala"

// Weekday names as stored in the weekly schedule, English lowercase.
var WeekdayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// TimeRange is a window within a day, both ends in HH:MM.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DaySchedule describes one weekday of the recurring schedule.
type DaySchedule struct {
	Enabled bool        `json:"enabled"`
	Slots   []TimeRange `json:"slots"`
}

// WeeklySchedule maps weekday name ("monday".."sunday") to its schedule.
type WeeklySchedule map[string]DaySchedule

// Settings is the per-business availability configuration.
type Settings struct {
	ID                     string         `json:"id"`
	BusinessID             string         `json:"business_id"`
	WeeklySchedule         WeeklySchedule `json:"weekly_schedule"`
	DefaultDurationMinutes int            `json:"default_duration_minutes"`
	BufferMinutes          int            `json:"buffer_minutes"`
	Timezone               string         `json:"timezone"`
	Reminder24hEnabled     bool           `json:"reminder_24h_enabled"`
	Reminder1hEnabled      bool           `json:"reminder_1h_enabled"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// Slot is a bookable interval, derived fresh on every request and never persisted.
type Slot struct {
	Date            string `json:"date"` // YYYY-MM-DD
	Time            string `json:"time"` // HH:MM
	DurationMinutes int    `json:"duration_minutes"`
	DisplayDate     string `json:"display_date"` // e.g. "Monday 04 February"
}

// BookedInterval is the part of an appointment the calculator needs.
type BookedInterval struct {
	Date            string // YYYY-MM-DD
	Time            string // HH:MM or HH:MM:SS
	DurationMinutes int
}

// parseClock converts HH:MM or HH:MM:SS to minutes since midnight.
func parseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	var h, m int
	if len(s) >= 8 {
		var sec int
		if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
			return 0, fmt.Errorf("availability: bad clock value %q: %w", s, err)
		}
	} else {
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("availability: bad clock value %q: %w", s, err)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("availability: clock value %q out of range", s)
	}
	return h*60 + m, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
