package models

import (
	"time"

	"github.com/lib/pq"
)

// MeetingMode identifies how an appointment is held.
type MeetingMode string

const (
	MeetingModeZoom       MeetingMode = "zoom"
	MeetingModeGoogleMeet MeetingMode = "google_meet"
	MeetingModePhone      MeetingMode = "phone"
	MeetingModeInPerson   MeetingMode = "in_person"
)

// Valid reports whether the mode is a supported value.
func (m MeetingMode) Valid() bool {
	switch m {
	case MeetingModeZoom, MeetingModeGoogleMeet, MeetingModePhone, MeetingModeInPerson:
		return true
	default:
		return false
	}
}

// AppointmentType describes a bookable appointment offering owned by a staff
// member. Types are deactivated rather than deleted while appointments still
// reference them.
type AppointmentType struct {
	ID                  string         `db:"id" json:"id"`
	StaffID             string         `db:"staff_id" json:"staff_id"`
	Name                string         `db:"name" json:"name"`
	DurationMinutes     int            `db:"duration_minutes" json:"duration_minutes"`
	BufferBeforeMinutes int            `db:"buffer_before_minutes" json:"buffer_before_minutes"`
	BufferAfterMinutes  int            `db:"buffer_after_minutes" json:"buffer_after_minutes"`
	MeetingModes        pq.StringArray `db:"meeting_modes" json:"meeting_modes"`
	AutoApprove         bool           `db:"auto_approve" json:"auto_approve"`
	Active              bool           `db:"active" json:"active"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// Duration returns the appointment length as a time.Duration.
func (t *AppointmentType) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// AllowsMode reports whether the type supports the given meeting mode.
func (t *AppointmentType) AllowsMode(mode MeetingMode) bool {
	for _, m := range t.MeetingModes {
		if MeetingMode(m) == mode {
			return true
		}
	}
	return false
}
