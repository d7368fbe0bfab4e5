package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ravenhq/raven-platform/internal/availability"
)

// Querier is the pgx surface the repository needs. Both pgxpool.Pool and
// pgxmock satisfy it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists appointments.
type Repository struct {
	db Querier
}

// NewRepository initializes a repo backed by a pgx pool (or mock).
func NewRepository(db Querier) *Repository {
	if db == nil {
		panic("appointments: db required")
	}
	return &Repository{db: db}
}

const appointmentColumns = `
	id, business_id, COALESCE(conversation_id, ''), customer_name, customer_email,
	COALESCE(customer_phone, ''), appointment_date, appointment_time, duration_minutes,
	COALESCE(service_type, ''), COALESCE(notes, ''), status,
	reminder_24h_sent, reminder_1h_sent, confirmed_at, cancelled_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.BusinessID, &a.ConversationID, &a.CustomerName, &a.CustomerEmail,
		&a.CustomerPhone, &a.Date, &a.Time, &a.DurationMinutes,
		&a.ServiceType, &a.Notes, &a.Status,
		&a.Reminder24hSent, &a.Reminder1hSent, &a.ConfirmedAt, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create books an appointment with status pending. A database constraint
// violation (duplicate slot, missing business) returns (nil, nil) rather than
// an error: the orchestrator treats that as "slot no longer available".
func (r *Repository) Create(ctx context.Context, p CreateParams) (*Appointment, error) {
	if p.DurationMinutes <= 0 {
		p.DurationMinutes = 60
	}
	const query = `
		INSERT INTO appointments (id, business_id, conversation_id, customer_name, customer_email,
			customer_phone, appointment_date, appointment_time, duration_minutes,
			service_type, notes, status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), 'pending')
		RETURNING ` + appointmentColumns

	appt, err := scanAppointment(r.db.QueryRow(ctx, query,
		uuid.NewString(), p.BusinessID, p.ConversationID, p.CustomerName, p.CustomerEmail,
		p.CustomerPhone, p.Date, p.Time, p.DurationMinutes, p.ServiceType, p.Notes,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
			return nil, nil
		}
		return nil, fmt.Errorf("appointments: create: %w", err)
	}
	return appt, nil
}

// Get loads an appointment. Returns (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: load: %w", err)
	}
	return appt, nil
}

// ListForRange returns a business's appointments within [fromDate, toDate]
// inclusive, optionally filtered by status.
func (r *Repository) ListForRange(ctx context.Context, businessID, fromDate, toDate string, statuses []string) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE business_id = $1 AND appointment_date >= $2 AND appointment_date <= $3`
	args := []any{businessID, fromDate, toDate}
	if len(statuses) > 0 {
		query += ` AND status = ANY($4)`
		args = append(args, statuses)
	}
	query += ` ORDER BY appointment_date, appointment_time`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate: %w", err)
	}
	return out, nil
}

// ListBookedIntervals returns the intervals that block new bookings: pending
// and confirmed appointments in the date range. Feeds the slot calculator.
func (r *Repository) ListBookedIntervals(ctx context.Context, businessID, fromDate, toDate string) ([]availability.BookedInterval, error) {
	appts, err := r.ListForRange(ctx, businessID, fromDate, toDate, []string{StatusPending, StatusConfirmed})
	if err != nil {
		return nil, err
	}
	intervals := make([]availability.BookedInterval, len(appts))
	for i, a := range appts {
		intervals[i] = availability.BookedInterval{
			Date:            a.Date,
			Time:            a.Time,
			DurationMinutes: a.DurationMinutes,
		}
	}
	return intervals, nil
}

// UpdateStatus moves an appointment through its lifecycle, stamping
// confirmed_at/cancelled_at on the matching transitions. Returns the updated
// appointment, or an error when the transition is not allowed.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string) (*Appointment, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("appointments: appointment %s not found", id)
	}
	if !CanTransition(current.Status, status) {
		return nil, fmt.Errorf("appointments: cannot move %s from %s to %s", id, current.Status, status)
	}

	query := `UPDATE appointments SET status = $2, updated_at = now()`
	switch status {
	case StatusConfirmed:
		query += `, confirmed_at = now()`
	case StatusCancelled:
		query += `, cancelled_at = now()`
	}
	query += ` WHERE id = $1 RETURNING ` + appointmentColumns

	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id, status))
	if err != nil {
		return nil, fmt.Errorf("appointments: update status: %w", err)
	}
	return appt, nil
}

// ListDueForReminder returns pending/confirmed appointments in the date range
// that have not yet received the given reminder. The caller narrows by exact
// start time.
func (r *Repository) ListDueForReminder(ctx context.Context, fromDate, toDate, reminderColumn string) ([]Appointment, error) {
	var flag string
	switch reminderColumn {
	case "reminder_24h_sent", "reminder_1h_sent":
		flag = reminderColumn
	default:
		return nil, fmt.Errorf("appointments: unknown reminder column %q", reminderColumn)
	}

	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE appointment_date >= $1 AND appointment_date <= $2
		  AND status IN ('pending', 'confirmed')
		  AND ` + flag + ` = false
		ORDER BY appointment_date, appointment_time`

	rows, err := r.db.Query(ctx, query, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("appointments: list due for reminder: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate: %w", err)
	}
	return out, nil
}

// MarkReminderSent flips one of the reminder flags so the scheduler never
// sends the same reminder twice.
func (r *Repository) MarkReminderSent(ctx context.Context, id, reminderColumn string) error {
	var flag string
	switch reminderColumn {
	case "reminder_24h_sent", "reminder_1h_sent":
		flag = reminderColumn
	default:
		return fmt.Errorf("appointments: unknown reminder column %q", reminderColumn)
	}

	query := `UPDATE appointments SET ` + flag + ` = true, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("appointments: mark reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointments: appointment %s not found", id)
	}
	return nil
}
