package availability

import (
	"strings"
	"time"
)

// ComputeSlots expands the weekly schedule into concrete open slots for the
// window [start, start+days), removing anything that collides with an existing
// booking. Results are chronological. maxSlots caps the output; pass 0 for
// unlimited.
//
// Malformed schedule entries are skipped rather than failing the whole
// computation: a business with one bad range still gets slots from the rest.
func ComputeSlots(settings *Settings, start time.Time, days int, booked []BookedInterval, maxSlots int) []Slot {
	if settings == nil || len(settings.WeeklySchedule) == 0 {
		return nil
	}

	duration := settings.DefaultDurationMinutes
	if duration <= 0 {
		return nil
	}
	buffer := settings.BufferMinutes
	if buffer < 0 {
		buffer = 0
	}

	// Index bookings by date so the per-slot overlap scan stays small.
	bookedByDate := make(map[string][][2]int, len(booked))
	for _, b := range booked {
		from, err := parseClock(b.Time)
		if err != nil || b.DurationMinutes <= 0 {
			continue
		}
		bookedByDate[b.Date] = append(bookedByDate[b.Date], [2]int{from, from + b.DurationMinutes})
	}

	var slots []Slot
	for offset := 0; offset < days; offset++ {
		day := start.AddDate(0, 0, offset)
		dayName := strings.ToLower(day.Weekday().String())

		schedule, ok := settings.WeeklySchedule[dayName]
		if !ok || !schedule.Enabled {
			continue
		}

		date := day.Format("2006-01-02")
		display := day.Format("Monday 02 January")

		for _, window := range schedule.Slots {
			from, err := parseClock(window.Start)
			if err != nil {
				continue
			}
			to, err := parseClock(window.End)
			if err != nil {
				continue
			}

			for cursor := from; cursor+duration <= to; cursor += duration + buffer {
				if overlapsAny(bookedByDate[date], cursor, cursor+duration) {
					continue
				}
				slots = append(slots, Slot{
					Date:            date,
					Time:            formatClock(cursor),
					DurationMinutes: duration,
					DisplayDate:     display,
				})
				if maxSlots > 0 && len(slots) >= maxSlots {
					return slots
				}
			}
		}
	}
	return slots
}

// overlapsAny reports whether [from, to) intersects any booked interval.
// Half-open test: touching endpoints do not count as overlap.
func overlapsAny(intervals [][2]int, from, to int) bool {
	for _, iv := range intervals {
		if from < iv[1] && to > iv[0] {
			return true
		}
	}
	return false
}
