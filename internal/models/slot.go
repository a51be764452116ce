package models

import "time"

// TimeSlot is a discrete bookable window. Slots are computed on demand and
// never persisted; two slots with equal bounds are interchangeable.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IdempotencyRecord stores the outcome of a booking submission keyed by
// (staff_id, idempotency_key) so retried submissions replay the original
// appointment instead of creating a duplicate.
type IdempotencyRecord struct {
	StaffID        string    `db:"staff_id"`
	IdempotencyKey string    `db:"idempotency_key"`
	AppointmentID  string    `db:"appointment_id"`
	CreatedAt      time.Time `db:"created_at"`
}
