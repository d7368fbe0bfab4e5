package availability

import (
	"strings"
	"time"
)

// IsOnline reports whether a business appears available for chat right now.
//
// A manual away flag always wins. Otherwise the configured timezone (falling
// back to DefaultTimezone, then UTC) resolves local "now"; the business is
// offline when today's schedule is disabled, or when today has ranges and the
// local clock falls inside none of them. A weekday absent from the schedule
// places no constraint.
func IsOnline(settings *Settings, manualAway bool, now time.Time) bool {
	if manualAway {
		return false
	}
	if settings == nil {
		return true
	}

	local := now.In(ResolveLocation(settings.Timezone))
	dayName := strings.ToLower(local.Weekday().String())

	schedule, ok := settings.WeeklySchedule[dayName]
	if !ok {
		return true
	}
	if !schedule.Enabled {
		return false
	}
	if len(schedule.Slots) == 0 {
		return true
	}

	clock := local.Format("15:04")
	for _, window := range schedule.Slots {
		start := window.Start
		if start == "" {
			start = "00:00"
		}
		end := window.End
		if end == "" {
			end = "23:59"
		}
		if start <= clock && clock <= end {
			return true
		}
	}
	return false
}

// ResolveLocation loads an IANA timezone, falling back to DefaultTimezone and
// then UTC when the name is empty or unknown.
func ResolveLocation(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}
