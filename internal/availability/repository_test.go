package availability

import (
	"context"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

const scheduleJSON = `{"monday":{"enabled":true,"slots":[{"start":"09:00","end":"12:00"}]}}`

func TestRepositoryGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewRepository(mock)
	now := time.Now()

	mock.ExpectQuery("SELECT id, business_id, weekly_schedule").
		WithArgs("biz-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "business_id", "weekly_schedule", "default_duration_minutes",
			"buffer_minutes", "timezone", "reminder_24h_enabled", "reminder_1h_enabled",
			"created_at", "updated_at",
		}).AddRow("av-1", "biz-1", []byte(scheduleJSON), 45, 10, "Africa/Douala", true, false, now, now))

	settings, err := repo.Get(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if settings == nil {
		t.Fatal("expected settings, got nil")
	}
	if settings.DefaultDurationMinutes != 45 || settings.BufferMinutes != 10 {
		t.Errorf("unexpected durations: %+v", settings)
	}
	if !settings.Reminder24hEnabled || settings.Reminder1hEnabled {
		t.Errorf("unexpected reminder flags: %+v", settings)
	}
	day, ok := settings.WeeklySchedule["monday"]
	if !ok || !day.Enabled || len(day.Slots) != 1 || day.Slots[0].Start != "09:00" {
		t.Errorf("schedule not decoded: %+v", settings.WeeklySchedule)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryGetMissingReturnsNil(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewRepository(mock)

	mock.ExpectQuery("SELECT id, business_id, weekly_schedule").
		WithArgs("biz-missing").
		WillReturnError(pgx.ErrNoRows)

	settings, err := repo.Get(context.Background(), "biz-missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if settings != nil {
		t.Fatalf("expected nil settings for unconfigured business, got %+v", settings)
	}
}

func TestRepositoryUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewRepository(mock)
	now := time.Now()

	in := &Settings{
		WeeklySchedule: WeeklySchedule{
			"monday": {Enabled: true, Slots: []TimeRange{{Start: "09:00", End: "12:00"}}},
		},
		DefaultDurationMinutes: 60,
		BufferMinutes:          0,
		Timezone:               "UTC",
		Reminder24hEnabled:     true,
		Reminder1hEnabled:      true,
	}

	mock.ExpectQuery("INSERT INTO business_availability").
		WithArgs(pgxmock.AnyArg(), "biz-1", pgxmock.AnyArg(), 60, 0, "UTC", true, true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("av-1", now, now))

	out, err := repo.Upsert(context.Background(), "biz-1", in)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if out.ID != "av-1" || out.BusinessID != "biz-1" {
		t.Errorf("unexpected identity: %+v", out)
	}
	if !out.CreatedAt.Equal(now) || !out.UpdatedAt.Equal(now) {
		t.Errorf("timestamps not taken from the database: %+v", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
