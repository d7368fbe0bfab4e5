package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Querier is the pgx query surface the repository needs. Both pgxpool.Pool
// and pgxmock satisfy it, so tests can run without a live database.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists availability settings.
type Repository struct {
	db Querier
}

// NewRepository initializes a repo backed by a pgx pool (or mock).
func NewRepository(db Querier) *Repository {
	if db == nil {
		panic("availability: db required")
	}
	return &Repository{db: db}
}

// Get loads the availability settings for a business. Returns (nil, nil) when
// the business has never configured availability.
func (r *Repository) Get(ctx context.Context, businessID string) (*Settings, error) {
	const query = `
		SELECT id, business_id, weekly_schedule, default_duration_minutes, buffer_minutes, timezone,
		       reminder_24h_enabled, reminder_1h_enabled, created_at, updated_at
		FROM business_availability WHERE business_id = $1`

	var (
		s       Settings
		rawJSON []byte
	)
	err := r.db.QueryRow(ctx, query, businessID).Scan(
		&s.ID, &s.BusinessID, &rawJSON, &s.DefaultDurationMinutes,
		&s.BufferMinutes, &s.Timezone, &s.Reminder24hEnabled, &s.Reminder1hEnabled,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("availability: load settings: %w", err)
	}
	if err := json.Unmarshal(rawJSON, &s.WeeklySchedule); err != nil {
		return nil, fmt.Errorf("availability: decode weekly schedule: %w", err)
	}
	return &s, nil
}

// Upsert creates or replaces the availability settings for a business.
func (r *Repository) Upsert(ctx context.Context, businessID string, s *Settings) (*Settings, error) {
	rawJSON, err := json.Marshal(s.WeeklySchedule)
	if err != nil {
		return nil, fmt.Errorf("availability: encode weekly schedule: %w", err)
	}

	const query = `
		INSERT INTO business_availability (id, business_id, weekly_schedule, default_duration_minutes, buffer_minutes, timezone, reminder_24h_enabled, reminder_1h_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (business_id) DO UPDATE SET
			weekly_schedule = EXCLUDED.weekly_schedule,
			default_duration_minutes = EXCLUDED.default_duration_minutes,
			buffer_minutes = EXCLUDED.buffer_minutes,
			timezone = EXCLUDED.timezone,
			reminder_24h_enabled = EXCLUDED.reminder_24h_enabled,
			reminder_1h_enabled = EXCLUDED.reminder_1h_enabled,
			updated_at = now()
		RETURNING id, created_at, updated_at`

	out := *s
	out.BusinessID = businessID
	var createdAt, updatedAt time.Time
	if err := r.db.QueryRow(ctx, query,
		uuid.NewString(), businessID, rawJSON,
		s.DefaultDurationMinutes, s.BufferMinutes, s.Timezone,
		s.Reminder24hEnabled, s.Reminder1hEnabled,
	).Scan(&out.ID, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("availability: upsert settings: %w", err)
	}
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return &out, nil
}
