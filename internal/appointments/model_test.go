package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusNoShow, false},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCompleted, StatusConfirmed, false},
		{StatusNoShow, StatusConfirmed, false},
		{"bogus", StatusConfirmed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStartsAt(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Douala")
	require.NoError(t, err)

	a := Appointment{Date: "2024-02-05", Time: "09:30"}
	ts, err := a.StartsAt(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 5, 9, 30, 0, 0, loc), ts)

	a.Time = "09:30:00"
	ts, err = a.StartsAt(loc)
	require.NoError(t, err)
	assert.Equal(t, 9, ts.Hour())
	assert.Equal(t, 30, ts.Minute())

	a.Time = "later"
	_, err = a.StartsAt(loc)
	assert.Error(t, err)
}
