package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var apptColumns = []string{
	"id", "business_id", "conversation_id", "customer_name", "customer_email",
	"customer_phone", "appointment_date", "appointment_time", "duration_minutes",
	"service_type", "notes", "status",
	"reminder_24h_sent", "reminder_1h_sent", "confirmed_at", "cancelled_at",
	"created_at", "updated_at",
}

func apptRow(id, status string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(apptColumns).AddRow(
		id, "biz-1", "conv-1", "Alice Ngono", "alice@example.com",
		"690123456", "2024-02-05", "09:00", 60,
		"haircut", "", status,
		false, false, nil, nil,
		now, now,
	)
}

func TestCreateAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "biz-1", "conv-1", "Alice Ngono", "alice@example.com",
			"690123456", "2024-02-05", "09:00", 60, "haircut", "").
		WillReturnRows(apptRow("appt-1", StatusPending))

	repo := NewRepository(mock)
	appt, err := repo.Create(context.Background(), CreateParams{
		BusinessID:      "biz-1",
		ConversationID:  "conv-1",
		CustomerName:    "Alice Ngono",
		CustomerEmail:   "alice@example.com",
		CustomerPhone:   "690123456",
		Date:            "2024-02-05",
		Time:            "09:00",
		DurationMinutes: 60,
		ServiceType:     "haircut",
	})
	require.NoError(t, err)
	require.NotNil(t, appt)
	assert.Equal(t, StatusPending, appt.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppointmentDefaultsDuration(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "biz-1", "", "Alice Ngono", "alice@example.com",
			"", "2024-02-05", "09:00", 60, "", "").
		WillReturnRows(apptRow("appt-1", StatusPending))

	repo := NewRepository(mock)
	appt, err := repo.Create(context.Background(), CreateParams{
		BusinessID:    "biz-1",
		CustomerName:  "Alice Ngono",
		CustomerEmail: "alice@example.com",
		Date:          "2024-02-05",
		Time:          "09:00",
	})
	require.NoError(t, err)
	require.NotNil(t, appt)
}

func TestCreateAppointmentConstraintViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	repo := NewRepository(mock)
	appt, err := repo.Create(context.Background(), CreateParams{
		BusinessID:      "biz-1",
		CustomerName:    "Alice Ngono",
		CustomerEmail:   "alice@example.com",
		Date:            "2024-02-05",
		Time:            "09:00",
		DurationMinutes: 60,
	})
	require.NoError(t, err, "constraint violations are not errors")
	assert.Nil(t, appt, "violated constraint yields no appointment")
}

func TestGetAppointmentMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT").WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(apptColumns))

	repo := NewRepository(mock)
	appt, err := repo.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, appt)
}

func TestListBookedIntervals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	rows := pgxmock.NewRows(apptColumns).
		AddRow("a1", "biz-1", "", "Alice Ngono", "alice@example.com", "",
			"2024-02-05", "09:00", 60, "", "", StatusPending,
			false, false, nil, nil, now, now).
		AddRow("a2", "biz-1", "", "Bob Essomba", "bob@example.com", "",
			"2024-02-06", "10:15", 45, "", "", StatusConfirmed,
			false, false, nil, nil, now, now)

	mock.ExpectQuery("SELECT").
		WithArgs("biz-1", "2024-02-05", "2024-02-09", []string{StatusPending, StatusConfirmed}).
		WillReturnRows(rows)

	repo := NewRepository(mock)
	intervals, err := repo.ListBookedIntervals(context.Background(), "biz-1", "2024-02-05", "2024-02-09")
	require.NoError(t, err)
	require.Len(t, intervals, 2)
	assert.Equal(t, "09:00", intervals[0].Time)
	assert.Equal(t, 45, intervals[1].DurationMinutes)
}

func TestUpdateStatusConfirms(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT").WithArgs("appt-1").
		WillReturnRows(apptRow("appt-1", StatusPending))
	confirmedAt := time.Now()
	mock.ExpectQuery("UPDATE appointments SET status").
		WithArgs("appt-1", StatusConfirmed).
		WillReturnRows(pgxmock.NewRows(apptColumns).AddRow(
			"appt-1", "biz-1", "conv-1", "Alice Ngono", "alice@example.com",
			"690123456", "2024-02-05", "09:00", 60,
			"haircut", "", StatusConfirmed,
			false, false, &confirmedAt, nil,
			confirmedAt, confirmedAt,
		))

	repo := NewRepository(mock)
	appt, err := repo.UpdateStatus(context.Background(), "appt-1", StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, appt.Status)
	require.NotNil(t, appt.ConfirmedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT").WithArgs("appt-1").
		WillReturnRows(apptRow("appt-1", StatusCancelled))

	repo := NewRepository(mock)
	_, err = repo.UpdateStatus(context.Background(), "appt-1", StatusConfirmed)
	assert.Error(t, err, "cancelled appointments stay cancelled")
}

func TestMarkReminderSent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE appointments SET reminder_24h_sent").
		WithArgs("appt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewRepository(mock)
	require.NoError(t, repo.MarkReminderSent(context.Background(), "appt-1", "reminder_24h_sent"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReminderSentRejectsUnknownColumn(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	assert.Error(t, repo.MarkReminderSent(context.Background(), "appt-1", "reminder_2h_sent"))
}
