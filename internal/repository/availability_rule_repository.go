package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/havenbridge/booking-api/internal/models"
)

// AvailabilityRuleRepository provides persistence for weekly availability rules.
type AvailabilityRuleRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRuleRepository creates a new availability rule repository.
func NewAvailabilityRuleRepository(db *sqlx.DB) *AvailabilityRuleRepository {
	return &AvailabilityRuleRepository{db: db}
}

// ListByStaff returns the staff member's rule set ordered by weekday.
func (r *AvailabilityRuleRepository) ListByStaff(ctx context.Context, staffID string) ([]models.AvailabilityRule, error) {
	const query = `SELECT id, staff_id, day_of_week, start_time, end_time, timezone, created_at, updated_at FROM availability_rules WHERE staff_id = $1 ORDER BY day_of_week ASC`
	var rules []models.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, staffID); err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	return rules, nil
}

// ReplaceForStaff swaps the staff member's entire rule set in one
// transaction. Saving replaces, it never merges.
func (r *AvailabilityRuleRepository) ReplaceForStaff(ctx context.Context, staffID string, rules []models.AvailabilityRule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace availability rules: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM availability_rules WHERE staff_id = $1`, staffID); err != nil {
		return fmt.Errorf("clear availability rules: %w", err)
	}

	now := time.Now().UTC()
	for i := range rules {
		rule := rules[i]
		rule.StaffID = staffID
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		rule.CreatedAt = now
		rule.UpdatedAt = now

		if _, err = tx.NamedExecContext(ctx, `INSERT INTO availability_rules (id, staff_id, day_of_week, start_time, end_time, timezone, created_at, updated_at) VALUES (:id, :staff_id, :day_of_week, :start_time, :end_time, :timezone, :created_at, :updated_at)`, &rule); err != nil {
			return fmt.Errorf("insert availability rule: %w", err)
		}
		rules[i] = rule
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace availability rules: %w", err)
	}
	return nil
}
