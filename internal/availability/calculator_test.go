package availability

import (
	"testing"
	"time"
)

// 2024-02-05 is a Monday.
var monday = time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

func weekdaySettings(duration, buffer int, schedule WeeklySchedule) *Settings {
	return &Settings{
		BusinessID:             "biz-1",
		WeeklySchedule:         schedule,
		DefaultDurationMinutes: duration,
		BufferMinutes:          buffer,
		Timezone:               "UTC",
	}
}

func TestComputeSlotsWalksRanges(t *testing.T) {
	settings := weekdaySettings(60, 15, WeeklySchedule{
		"monday": {Enabled: true, Slots: []TimeRange{{Start: "09:00", End: "12:00"}}},
	})

	slots := ComputeSlots(settings, monday, 1, nil, 0)

	want := []string{"09:00", "10:15"}
	if len(slots) != len(want) {
		t.Fatalf("got %d slots, want %d: %+v", len(slots), len(want), slots)
	}
	for i, w := range want {
		if slots[i].Time != w {
			t.Errorf("slot %d time = %q, want %q", i, slots[i].Time, w)
		}
		if slots[i].Date != "2024-02-05" {
			t.Errorf("slot %d date = %q", i, slots[i].Date)
		}
		if slots[i].DisplayDate != "Monday 05 February" {
			t.Errorf("slot %d display = %q", i, slots[i].DisplayDate)
		}
	}
}

func TestComputeSlotsSkipsBooked(t *testing.T) {
	settings := weekdaySettings(60, 0, WeeklySchedule{
		"monday": {Enabled: true, Slots: []TimeRange{{Start: "09:00", End: "12:00"}}},
	})
	booked := []BookedInterval{{Date: "2024-02-05", Time: "10:00", DurationMinutes: 60}}

	slots := ComputeSlots(settings, monday, 1, booked, 0)

	want := []string{"09:00", "11:00"}
	if len(slots) != len(want) {
		t.Fatalf("got %d slots, want %d: %+v", len(slots), len(want), slots)
	}
	for i, w := range want {
		if slots[i].Time != w {
			t.Errorf("slot %d time = %q, want %q", i, slots[i].Time, w)
		}
	}
}

func TestComputeSlotsToleratesSecondsInBookedTime(t *testing.T) {
	settings := weekdaySettings(60, 0, WeeklySchedule{
		"monday": {Enabled: true, Slots: []TimeRange{{Start: "09:00", End: "11:00"}}},
	})
	booked := []BookedInterval{{Date: "2024-02-05", Time: "09:00:00", DurationMinutes: 60}}

	slots := ComputeSlots(settings, monday, 1, booked, 0)

	if len(slots) != 1 || slots[0].Time != "10:00" {
		t.Fatalf("got %+v, want single 10:00 slot", slots)
	}
}

func TestComputeSlotsDisabledDayIsEmpty(t *testing.T) {
	settings := weekdaySettings(60, 0, WeeklySchedule{
		"monday": {Enabled: false, Slots: []TimeRange{{Start: "09:00", End: "17:00"}}},
	})

	if slots := ComputeSlots(settings, monday, 1, nil, 0); len(slots) != 0 {
		t.Fatalf("disabled day produced slots: %+v", slots)
	}
}

func TestComputeSlotsSkipsMalformedRanges(t *testing.T) {
	settings := weekdaySettings(30, 0, WeeklySchedule{
		"monday": {Enabled: true, Slots: []TimeRange{
			{Start: "9h", End: "12:00"},    // unparsable start
			{Start: "14:00", End: "15:00"}, // valid
			{Start: "16:00", End: "13:00"}, // inverted, walks nowhere
		}},
	})

	slots := ComputeSlots(settings, monday, 1, nil, 0)

	want := []string{"14:00", "14:30"}
	if len(slots) != len(want) {
		t.Fatalf("got %+v, want times %v", slots, want)
	}
	for i, w := range want {
		if slots[i].Time != w {
			t.Errorf("slot %d time = %q, want %q", i, slots[i].Time, w)
		}
	}
}

func TestComputeSlotsCapsOutput(t *testing.T) {
	settings := weekdaySettings(30, 0, WeeklySchedule{
		"monday":  {Enabled: true, Slots: []TimeRange{{Start: "09:00", End: "17:00"}}},
		"tuesday": {Enabled: true, Slots: []TimeRange{{Start: "09:00", End: "17:00"}}},
	})

	slots := ComputeSlots(settings, monday, 2, nil, 10)

	if len(slots) != 10 {
		t.Fatalf("got %d slots, want 10", len(slots))
	}
}

func TestComputeSlotsNilSettings(t *testing.T) {
	if slots := ComputeSlots(nil, monday, 5, nil, 0); slots != nil {
		t.Fatalf("nil settings produced slots: %+v", slots)
	}
}

// No two generated slots may overlap each other, and none may overlap a
// booked interval on the same date.
func TestComputeSlotsNoOverlapProperty(t *testing.T) {
	settings := weekdaySettings(45, 10, WeeklySchedule{
		"monday":    {Enabled: true, Slots: []TimeRange{{Start: "08:00", End: "12:30"}, {Start: "14:00", End: "18:00"}}},
		"tuesday":   {Enabled: true, Slots: []TimeRange{{Start: "10:00", End: "16:00"}}},
		"wednesday": {Enabled: false},
	})
	booked := []BookedInterval{
		{Date: "2024-02-05", Time: "09:30", DurationMinutes: 45},
		{Date: "2024-02-06", Time: "11:00:00", DurationMinutes: 30},
	}

	slots := ComputeSlots(settings, monday, 3, booked, 0)
	if len(slots) == 0 {
		t.Fatal("expected some slots")
	}

	toInterval := func(date, clock string, dur int) (string, int, int) {
		from, err := parseClock(clock)
		if err != nil {
			t.Fatalf("bad clock %q: %v", clock, err)
		}
		return date, from, from + dur
	}

	for i, a := range slots {
		aDate, aFrom, aTo := toInterval(a.Date, a.Time, a.DurationMinutes)
		for _, b := range slots[i+1:] {
			bDate, bFrom, bTo := toInterval(b.Date, b.Time, b.DurationMinutes)
			if aDate == bDate && aFrom < bTo && aTo > bFrom {
				t.Errorf("slots overlap: %+v and %+v", a, b)
			}
		}
		for _, bk := range booked {
			bDate, bFrom, bTo := toInterval(bk.Date, bk.Time, bk.DurationMinutes)
			if aDate == bDate && aFrom < bTo && aTo > bFrom {
				t.Errorf("slot %+v overlaps booking %+v", a, bk)
			}
		}
		if a.Date == "2024-02-07" {
			t.Errorf("slot generated on disabled wednesday: %+v", a)
		}
	}
}
