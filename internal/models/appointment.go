package models

import "time"

// AppointmentStatus represents the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no_show"
	AppointmentExpired   AppointmentStatus = "expired"
)

// Valid reports whether the status is a supported value.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted,
		AppointmentCancelled, AppointmentNoShow, AppointmentExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentCompleted, AppointmentCancelled, AppointmentNoShow, AppointmentExpired:
		return true
	default:
		return false
	}
}

// CanTransitionTo enforces the lifecycle: pending moves to confirmed,
// cancelled or expired; confirmed moves to completed, cancelled or no_show.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentPending:
		return next == AppointmentConfirmed || next == AppointmentCancelled || next == AppointmentExpired
	case AppointmentConfirmed:
		return next == AppointmentCompleted || next == AppointmentCancelled || next == AppointmentNoShow
	default:
		return false
	}
}

// Appointment is a booked (or requested) meeting between a client and a
// staff member. ScheduledEnd is always start plus the type's duration at
// booking time.
type Appointment struct {
	ID                string            `db:"id" json:"id"`
	StaffID           string            `db:"staff_id" json:"staff_id"`
	AppointmentTypeID string            `db:"appointment_type_id" json:"appointment_type_id"`
	ScheduledStart    time.Time         `db:"scheduled_start" json:"scheduled_start"`
	ScheduledEnd      time.Time         `db:"scheduled_end" json:"scheduled_end"`
	Status            AppointmentStatus `db:"status" json:"status"`
	ClientTimezone    string            `db:"client_timezone" json:"client_timezone"`
	MeetingMode       MeetingMode       `db:"meeting_mode" json:"meeting_mode"`
	ClientName        string            `db:"client_name" json:"client_name"`
	ClientEmail       string            `db:"client_email" json:"client_email"`
	ClientPhone       string            `db:"client_phone" json:"client_phone"`
	ClientNotes       *string           `db:"client_notes" json:"client_notes,omitempty"`
	IdempotencyKey    *string           `db:"idempotency_key" json:"-"`
	ExpiresAt         *time.Time        `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentFilter describes query params for listing appointments.
type AppointmentFilter struct {
	StaffID   string
	Status    *AppointmentStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// BusyInterval is an existing appointment widened by its own type's buffers,
// as consumed by the availability resolver. Block start/end already include
// the buffers.
type BusyInterval struct {
	AppointmentID string    `db:"appointment_id"`
	BlockStart    time.Time `db:"block_start"`
	BlockEnd      time.Time `db:"block_end"`
}
