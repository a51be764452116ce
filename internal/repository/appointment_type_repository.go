package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/havenbridge/booking-api/internal/models"
)

// AppointmentTypeRepository provides persistence for appointment types.
type AppointmentTypeRepository struct {
	db *sqlx.DB
}

// NewAppointmentTypeRepository creates a new appointment type repository.
func NewAppointmentTypeRepository(db *sqlx.DB) *AppointmentTypeRepository {
	return &AppointmentTypeRepository{db: db}
}

const appointmentTypeColumns = `id, staff_id, name, duration_minutes, buffer_before_minutes, buffer_after_minutes, meeting_modes, auto_approve, active, created_at, updated_at`

// ListByStaff returns types owned by a staff member, optionally only active ones.
func (r *AppointmentTypeRepository) ListByStaff(ctx context.Context, staffID string, activeOnly bool) ([]models.AppointmentType, error) {
	query := fmt.Sprintf("SELECT %s FROM appointment_types WHERE staff_id = $1", appointmentTypeColumns)
	if activeOnly {
		query += " AND active = TRUE"
	}
	query += " ORDER BY name ASC"

	var types []models.AppointmentType
	if err := r.db.SelectContext(ctx, &types, query, staffID); err != nil {
		return nil, fmt.Errorf("list appointment types: %w", err)
	}
	return types, nil
}

// FindByID loads an appointment type by id.
func (r *AppointmentTypeRepository) FindByID(ctx context.Context, id string) (*models.AppointmentType, error) {
	query := fmt.Sprintf("SELECT %s FROM appointment_types WHERE id = $1", appointmentTypeColumns)
	var at models.AppointmentType
	if err := r.db.GetContext(ctx, &at, query, id); err != nil {
		return nil, err
	}
	return &at, nil
}

// Create stores a new appointment type.
func (r *AppointmentTypeRepository) Create(ctx context.Context, at *models.AppointmentType) error {
	if at.ID == "" {
		at.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if at.CreatedAt.IsZero() {
		at.CreatedAt = now
	}
	at.UpdatedAt = now

	const query = `INSERT INTO appointment_types (id, staff_id, name, duration_minutes, buffer_before_minutes, buffer_after_minutes, meeting_modes, auto_approve, active, created_at, updated_at) VALUES (:id, :staff_id, :name, :duration_minutes, :buffer_before_minutes, :buffer_after_minutes, :meeting_modes, :auto_approve, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, at); err != nil {
		return fmt.Errorf("create appointment type: %w", err)
	}
	return nil
}

// Update modifies an appointment type.
func (r *AppointmentTypeRepository) Update(ctx context.Context, at *models.AppointmentType) error {
	at.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointment_types SET name = :name, duration_minutes = :duration_minutes, buffer_before_minutes = :buffer_before_minutes, buffer_after_minutes = :buffer_after_minutes, meeting_modes = :meeting_modes, auto_approve = :auto_approve, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, at); err != nil {
		return fmt.Errorf("update appointment type: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a type; existing appointments keep referencing it.
func (r *AppointmentTypeRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE appointment_types SET active = FALSE, updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deactivate appointment type: %w", err)
	}
	return nil
}
