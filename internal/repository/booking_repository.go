package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/havenbridge/booking-api/internal/models"
)

// BookingTx is the unit of work behind a booking submission. Every method
// runs on the same database transaction, so the advisory lock taken by
// LockStaff covers the whole read-validate-write sequence.
type BookingTx interface {
	LockStaff(ctx context.Context, staffID string) error
	FindByIdempotencyKey(ctx context.Context, staffID, key string, retention time.Duration) (*models.Appointment, error)
	ListRules(ctx context.Context, staffID string) ([]models.AvailabilityRule, error)
	BusyIntervals(ctx context.Context, staffID string, from, to time.Time) ([]models.BusyInterval, error)
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	InsertIdempotency(ctx context.Context, rec *models.IdempotencyRecord) error
	Commit() error
	Rollback() error
}

// BookingRepository opens booking transactions and prunes idempotency state.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Begin opens a submission transaction.
func (r *BookingRepository) Begin(ctx context.Context) (BookingTx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	return &bookingTx{tx: tx}, nil
}

// DeleteExpiredIdempotency prunes records older than the retention window.
func (r *BookingRepository) DeleteExpiredIdempotency(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM booking_idempotency WHERE created_at < $1`, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune idempotency records: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

type bookingTx struct {
	tx *sqlx.Tx
}

// LockStaff serializes submissions per staff member. The advisory lock is
// transaction-scoped and released automatically on commit or rollback.
func (t *bookingTx) LockStaff(ctx context.Context, staffID string) error {
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, staffID); err != nil {
		return fmt.Errorf("acquire staff lock: %w", err)
	}
	return nil
}

// FindByIdempotencyKey returns the appointment previously created under the
// given key within the retention window, or nil when no record exists.
func (t *bookingTx) FindByIdempotencyKey(ctx context.Context, staffID, key string, retention time.Duration) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments
	WHERE id = (SELECT appointment_id FROM booking_idempotency
		WHERE staff_id = $1 AND idempotency_key = $2 AND created_at > $3)`, appointmentColumns)
	cutoff := time.Now().Add(-retention)
	var appt models.Appointment
	if err := t.tx.GetContext(ctx, &appt, query, staffID, key, cutoff); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}
	return &appt, nil
}

// ListRules loads the staff member's weekly rules under the transaction.
func (t *bookingTx) ListRules(ctx context.Context, staffID string) ([]models.AvailabilityRule, error) {
	var rules []models.AvailabilityRule
	query := `SELECT id, staff_id, day_of_week, start_time, end_time, timezone, created_at, updated_at
	FROM availability_rules WHERE staff_id = $1 ORDER BY day_of_week, start_time`
	if err := t.tx.SelectContext(ctx, &rules, query, staffID); err != nil {
		return nil, fmt.Errorf("list rules in tx: %w", err)
	}
	return rules, nil
}

// BusyIntervals mirrors AppointmentRepository.BusyIntervals but reads under
// the submission transaction, after the advisory lock is held.
func (t *bookingTx) BusyIntervals(ctx context.Context, staffID string, from, to time.Time) ([]models.BusyInterval, error) {
	const query = `SELECT a.id AS appointment_id,
		a.scheduled_start - (t.buffer_before_minutes * INTERVAL '1 minute') AS block_start,
		a.scheduled_end + (t.buffer_after_minutes * INTERVAL '1 minute') AS block_end
	FROM appointments a
	JOIN appointment_types t ON t.id = a.appointment_type_id
	WHERE a.staff_id = $1
	  AND a.status IN ('pending', 'confirmed')
	  AND a.scheduled_start - (t.buffer_before_minutes * INTERVAL '1 minute') < $3
	  AND a.scheduled_end + (t.buffer_after_minutes * INTERVAL '1 minute') > $2
	ORDER BY block_start ASC`
	var busy []models.BusyInterval
	if err := t.tx.SelectContext(ctx, &busy, query, staffID, from, to); err != nil {
		return nil, fmt.Errorf("list busy intervals in tx: %w", err)
	}
	return busy, nil
}

// CreateAppointment inserts the appointment row.
func (t *bookingTx) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	query := `INSERT INTO appointments (id, staff_id, appointment_type_id, scheduled_start, scheduled_end, status, client_timezone, meeting_mode, client_name, client_email, client_phone, client_notes, idempotency_key, expires_at, created_at, updated_at)
	VALUES (:id, :staff_id, :appointment_type_id, :scheduled_start, :scheduled_end, :status, :client_timezone, :meeting_mode, :client_name, :client_email, :client_phone, :client_notes, :idempotency_key, :expires_at, :created_at, :updated_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, appt); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// InsertIdempotency records the key so later retries replay the result.
func (t *bookingTx) InsertIdempotency(ctx context.Context, rec *models.IdempotencyRecord) error {
	query := `INSERT INTO booking_idempotency (staff_id, idempotency_key, appointment_id, created_at)
	VALUES (:staff_id, :idempotency_key, :appointment_id, :created_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	return nil
}

func (t *bookingTx) Commit() error {
	return t.tx.Commit()
}

func (t *bookingTx) Rollback() error {
	return t.tx.Rollback()
}
