package availability

import (
	"testing"
	"time"
)

func onlineSettings(schedule WeeklySchedule, tz string) *Settings {
	return &Settings{BusinessID: "biz-1", WeeklySchedule: schedule, Timezone: tz}
}

func TestIsOnline(t *testing.T) {
	// Monday 10:00 UTC.
	now := time.Date(2024, 2, 5, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		settings   *Settings
		manualAway bool
		want       bool
	}{
		{
			name:     "nil settings defaults online",
			settings: nil,
			want:     true,
		},
		{
			name: "inside a window",
			settings: onlineSettings(WeeklySchedule{
				"monday": {Enabled: true, Slots: []TimeRange{{Start: "09:00", End: "12:00"}}},
			}, "UTC"),
			want: true,
		},
		{
			name: "outside every window",
			settings: onlineSettings(WeeklySchedule{
				"monday": {Enabled: true, Slots: []TimeRange{{Start: "14:00", End: "18:00"}}},
			}, "UTC"),
			want: false,
		},
		{
			name: "day disabled",
			settings: onlineSettings(WeeklySchedule{
				"monday": {Enabled: false, Slots: []TimeRange{{Start: "09:00", End: "18:00"}}},
			}, "UTC"),
			want: false,
		},
		{
			name: "day absent places no constraint",
			settings: onlineSettings(WeeklySchedule{
				"tuesday": {Enabled: true, Slots: []TimeRange{{Start: "09:00", End: "18:00"}}},
			}, "UTC"),
			want: true,
		},
		{
			name: "enabled day without ranges is open all day",
			settings: onlineSettings(WeeklySchedule{
				"monday": {Enabled: true},
			}, "UTC"),
			want: true,
		},
		{
			name: "empty bounds default to whole day",
			settings: onlineSettings(WeeklySchedule{
				"monday": {Enabled: true, Slots: []TimeRange{{Start: "", End: ""}}},
			}, "UTC"),
			want: true,
		},
		{
			name: "manual away wins over open schedule",
			settings: onlineSettings(WeeklySchedule{
				"monday": {Enabled: true, Slots: []TimeRange{{Start: "09:00", End: "12:00"}}},
			}, "UTC"),
			manualAway: true,
			want:       false,
		},
		{
			name: "window boundaries are inclusive",
			settings: onlineSettings(WeeklySchedule{
				"monday": {Enabled: true, Slots: []TimeRange{{Start: "10:00", End: "10:00"}}},
			}, "UTC"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOnline(tt.settings, tt.manualAway, now); got != tt.want {
				t.Errorf("IsOnline() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsOnlineUsesConfiguredTimezone(t *testing.T) {
	// 10:00 UTC is 11:00 in Africa/Douala (UTC+1, no DST).
	now := time.Date(2024, 2, 5, 10, 0, 0, 0, time.UTC)
	settings := onlineSettings(WeeklySchedule{
		"monday": {Enabled: true, Slots: []TimeRange{{Start: "10:30", End: "11:30"}}},
	}, "Africa/Douala")

	if !IsOnline(settings, false, now) {
		t.Error("expected online: 10:00 UTC is 11:00 local, inside 10:30-11:30")
	}
}

func TestIsOnlineBadTimezoneFallsBack(t *testing.T) {
	// With an unknown zone the evaluator falls back to the default zone
	// (UTC+1): 08:30 UTC is 09:30 local.
	now := time.Date(2024, 2, 5, 8, 30, 0, 0, time.UTC)
	settings := onlineSettings(WeeklySchedule{
		"monday": {Enabled: true, Slots: []TimeRange{{Start: "09:00", End: "10:00"}}},
	}, "Not/AZone")

	if !IsOnline(settings, false, now) {
		t.Error("expected online under fallback timezone")
	}
}
