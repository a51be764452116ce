package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/havenbridge/booking-api/internal/models"
)

// AppointmentRepository provides read and lifecycle persistence for
// appointments. Booking submission writes go through BookingRepository.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `id, staff_id, appointment_type_id, scheduled_start, scheduled_end, status, client_timezone, meeting_mode, client_name, client_email, client_phone, client_notes, idempotency_key, expires_at, created_at, updated_at`

// List returns appointments with optional filtering and pagination.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	base := "FROM appointments WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StaffID != "" {
		conditions = append(conditions, fmt.Sprintf("staff_id = $%d", len(args)+1))
		args = append(args, filter.StaffID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_start >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_start < $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"scheduled_start": true,
		"status":          true,
		"created_at":      true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "scheduled_start"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", appointmentColumns, base, sortBy, order, size, offset)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	return appointments, total, nil
}

// FindByID loads an appointment by id.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments WHERE id = $1", appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// BusyIntervals returns pending/confirmed appointments for the staff member
// whose buffer-extended interval intersects [from, to). Buffers come from
// each appointment's own type.
func (r *AppointmentRepository) BusyIntervals(ctx context.Context, staffID string, from, to time.Time) ([]models.BusyInterval, error) {
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
	if err := r.db.SelectContext(ctx, &busy, query, staffID, from, to); err != nil {
		return nil, fmt.Errorf("list busy intervals: %w", err)
	}
	return busy, nil
}

// UpdateStatus transitions an appointment and clears any pending expiry.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE appointments SET status = $2, expires_at = NULL, updated_at = NOW() WHERE id = $1`, id, status); err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	return nil
}

// ExpirePending transitions stale pending appointments to expired and
// returns the affected rows for event publication.
func (r *AppointmentRepository) ExpirePending(ctx context.Context, now time.Time) ([]models.Appointment, error) {
	query := fmt.Sprintf(`UPDATE appointments SET status = 'expired', updated_at = $1 WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at <= $1 RETURNING %s`, appointmentColumns)
	var expired []models.Appointment
	if err := r.db.SelectContext(ctx, &expired, query, now); err != nil {
		return nil, fmt.Errorf("expire pending appointments: %w", err)
	}
	return expired, nil
}
