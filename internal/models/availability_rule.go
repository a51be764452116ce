package models

import (
	"fmt"
	"time"
)

// AvailabilityRule defines a recurring weekly window during which a staff
// member accepts bookings. Day numbering is ISO-style with Monday = 0. Start
// and end are wall-clock HH:MM strings interpreted in the rule's timezone; a
// staff member has at most one rule per weekday.
type AvailabilityRule struct {
	ID        string    `db:"id" json:"id"`
	StaffID   string    `db:"staff_id" json:"staff_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Timezone  string    `db:"timezone" json:"timezone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WeekdayIndex converts a time.Weekday to the Monday-based index used by
// availability rules.
func WeekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// ParseWallClock splits an HH:MM string into hour and minute components.
func ParseWallClock(raw string) (hour, minute int, err error) {
	if _, err := time.Parse("15:04", raw); err != nil {
		return 0, 0, fmt.Errorf("invalid wall-clock time %q: %w", raw, err)
	}
	if _, err := fmt.Sscanf(raw, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid wall-clock time %q: %w", raw, err)
	}
	return hour, minute, nil
}
