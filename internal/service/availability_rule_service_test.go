package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenbridge/booking-api/internal/models"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
)

type stubRuleRepo struct {
	rules    []models.AvailabilityRule
	replaced []models.AvailabilityRule
}

func (s *stubRuleRepo) ListByStaff(_ context.Context, _ string) ([]models.AvailabilityRule, error) {
	return s.rules, nil
}

func (s *stubRuleRepo) ReplaceForStaff(_ context.Context, _ string, rules []models.AvailabilityRule) error {
	s.replaced = rules
	return nil
}

func TestRuleReplaceStoresFullSet(t *testing.T) {
	repo := &stubRuleRepo{}
	cache := &captureInvalidator{}
	svc := NewAvailabilityRuleService(repo, cache, nil, nil)

	rules, err := svc.Replace(context.Background(), testStaffID, ReplaceRulesRequest{
		Rules: []RuleInput{
			{DayOfWeek: 0, StartTime: "09:00", EndTime: "17:00", Timezone: "America/Los_Angeles"},
			{DayOfWeek: 2, StartTime: "13:00", EndTime: "18:00", Timezone: "America/Los_Angeles"},
		},
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Len(t, repo.replaced, 2)
	assert.Equal(t, testStaffID, repo.replaced[0].StaffID)
	assert.NotEmpty(t, repo.replaced[0].ID)
	require.Len(t, cache.patterns, 1, "replacing rules must invalidate cached slots")
}

func TestRuleReplaceEmptySetClearsAvailability(t *testing.T) {
	repo := &stubRuleRepo{rules: []models.AvailabilityRule{mondayRule("09:00", "17:00")}}
	svc := NewAvailabilityRuleService(repo, nil, nil, nil)

	rules, err := svc.Replace(context.Background(), testStaffID, ReplaceRulesRequest{})
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.Empty(t, repo.replaced)
}

func TestRuleReplaceRejectsDuplicateWeekday(t *testing.T) {
	svc := NewAvailabilityRuleService(&stubRuleRepo{}, nil, nil, nil)

	_, err := svc.Replace(context.Background(), testStaffID, ReplaceRulesRequest{
		Rules: []RuleInput{
			{DayOfWeek: 0, StartTime: "09:00", EndTime: "12:00", Timezone: "UTC"},
			{DayOfWeek: 0, StartTime: "13:00", EndTime: "17:00", Timezone: "UTC"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRuleReplaceRejectsReversedWindow(t *testing.T) {
	svc := NewAvailabilityRuleService(&stubRuleRepo{}, nil, nil, nil)

	_, err := svc.Replace(context.Background(), testStaffID, ReplaceRulesRequest{
		Rules: []RuleInput{
			{DayOfWeek: 0, StartTime: "17:00", EndTime: "09:00", Timezone: "UTC"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRuleReplaceRejectsBadWallClock(t *testing.T) {
	svc := NewAvailabilityRuleService(&stubRuleRepo{}, nil, nil, nil)

	_, err := svc.Replace(context.Background(), testStaffID, ReplaceRulesRequest{
		Rules: []RuleInput{
			{DayOfWeek: 0, StartTime: "9am", EndTime: "17:00", Timezone: "UTC"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRuleReplaceRejectsUnknownTimezone(t *testing.T) {
	svc := NewAvailabilityRuleService(&stubRuleRepo{}, nil, nil, nil)

	_, err := svc.Replace(context.Background(), testStaffID, ReplaceRulesRequest{
		Rules: []RuleInput{
			{DayOfWeek: 0, StartTime: "09:00", EndTime: "17:00", Timezone: "Mars/Olympus"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
