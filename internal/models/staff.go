package models

import "time"

// StaffRole represents the available roles for staff accounts.
type StaffRole string

const (
	RoleAdmin       StaffRole = "ADMIN"
	RoleCoordinator StaffRole = "COORDINATOR"
)

// Staff represents an agency staff member who accepts appointments.
// The timezone anchors that member's weekly availability rules.
type Staff struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         StaffRole  `db:"role" json:"role"`
	Timezone     string     `db:"timezone" json:"timezone"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
