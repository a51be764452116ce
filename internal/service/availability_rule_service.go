package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/havenbridge/booking-api/internal/models"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
)

type availabilityRuleRepository interface {
	ListByStaff(ctx context.Context, staffID string) ([]models.AvailabilityRule, error)
	ReplaceForStaff(ctx context.Context, staffID string, rules []models.AvailabilityRule) error
}

// RuleInput is one weekly window in a replace request.
type RuleInput struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Timezone  string `json:"timezone" validate:"required,max=64"`
}

// ReplaceRulesRequest replaces a staff member's full weekly rule set.
// Weekdays absent from the request end up with no availability.
type ReplaceRulesRequest struct {
	Rules []RuleInput `json:"rules" validate:"dive"`
}

// AvailabilityRuleService manages weekly availability rules.
type AvailabilityRuleService struct {
	repo      availabilityRuleRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityRuleService instantiates AvailabilityRuleService.
func NewAvailabilityRuleService(repo availabilityRuleRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *AvailabilityRuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityRuleService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns the staff member's rules ordered by weekday.
func (s *AvailabilityRuleService) List(ctx context.Context, staffID string) ([]models.AvailabilityRule, error) {
	rules, err := s.repo.ListByStaff(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability rules")
	}
	return rules, nil
}

// Replace validates and swaps the staff member's complete rule set in one
// transaction.
func (s *AvailabilityRuleService) Replace(ctx context.Context, staffID string, req ReplaceRulesRequest) ([]models.AvailabilityRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rules payload")
	}

	now := time.Now()
	seen := make(map[int]bool, len(req.Rules))
	rules := make([]models.AvailabilityRule, 0, len(req.Rules))
	for _, in := range req.Rules {
		if seen[in.DayOfWeek] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate rule for weekday %d", in.DayOfWeek))
		}
		seen[in.DayOfWeek] = true

		sh, sm, err := models.ParseWallClock(in.StartTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_time")
		}
		eh, em, err := models.ParseWallClock(in.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_time")
		}
		if eh*60+em < sh*60+sm {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end_time precedes start_time")
		}
		if _, err := time.LoadLocation(in.Timezone); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timezone %q", in.Timezone))
		}

		rules = append(rules, models.AvailabilityRule{
			ID:        uuid.NewString(),
			StaffID:   staffID,
			DayOfWeek: in.DayOfWeek,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
			Timezone:  in.Timezone,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.repo.ReplaceForStaff(ctx, staffID, rules); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace availability rules")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "slots:"+staffID+":*"); err != nil {
			s.logger.Warn("failed to invalidate slot cache", zap.String("staff_id", staffID), zap.Error(err))
		}
	}

	return rules, nil
}
