package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/havenbridge/booking-api/internal/models"
	"github.com/havenbridge/booking-api/pkg/config"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
)

const (
	testStaffID = "0b6277c4-52ee-4e3b-a195-92e372f44626"
	testTypeID  = "8f14a9d2-9c04-45de-9f3c-6a5f0c9b1d20"
)

type stubRuleReader struct {
	rules []models.AvailabilityRule
}

func (s *stubRuleReader) ListByStaff(_ context.Context, _ string) ([]models.AvailabilityRule, error) {
	return s.rules, nil
}

type stubTypeReader struct {
	types map[string]*models.AppointmentType
}

func (s *stubTypeReader) FindByID(_ context.Context, id string) (*models.AppointmentType, error) {
	if t, ok := s.types[id]; ok {
		return t, nil
	}
	return nil, appErrors.ErrNotFound
}

type stubBusyReader struct {
	busy []models.BusyInterval
}

func (s *stubBusyReader) BusyIntervals(_ context.Context, _ string, _, _ time.Time) ([]models.BusyInterval, error) {
	return s.busy, nil
}

type availabilityFixture struct {
	rules *stubRuleReader
	types *stubTypeReader
	busy  *stubBusyReader
	svc   *AvailabilityService
}

func newAvailabilityFixture(t *testing.T, now time.Time) *availabilityFixture {
	t.Helper()
	f := &availabilityFixture{
		rules: &stubRuleReader{},
		types: &stubTypeReader{types: map[string]*models.AppointmentType{}},
		busy:  &stubBusyReader{},
	}
	cfg := config.BookingConfig{
		HorizonDays:     60,
		DefaultTimezone: "UTC",
	}
	f.svc = NewAvailabilityService(f.rules, f.types, f.busy, nil, nil, cfg, nil, nil)
	f.svc.now = func() time.Time { return now }
	return f
}

func (f *availabilityFixture) addType(t *models.AppointmentType) {
	f.types.types[t.ID] = t
}

func consultType(durationMinutes int) *models.AppointmentType {
	return &models.AppointmentType{
		ID:              testTypeID,
		StaffID:         testStaffID,
		Name:            "Intake Consultation",
		DurationMinutes: durationMinutes,
		MeetingModes:    []string{"zoom", "phone"},
		Active:          true,
	}
}

func mondayRule(start, end string) models.AvailabilityRule {
	return models.AvailabilityRule{
		ID:        "rule-mon",
		StaffID:   testStaffID,
		DayOfWeek: 0,
		StartTime: start,
		EndTime:   end,
		Timezone:  "America/Los_Angeles",
	}
}

func laTime(t *testing.T, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	require.NoError(t, err)
	return ts
}

func TestAvailabilityResolveFullDay(t *testing.T) {
	now := laTime(t, "2025-05-20 08:00")
	f := newAvailabilityFixture(t, now)
	f.addType(consultType(30))
	f.rules.rules = []models.AvailabilityRule{mondayRule("09:00", "17:00")}

	resp, err := f.svc.Resolve(context.Background(), AvailabilityRequest{
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		DateFrom:          "2025-06-02",
		Timezone:          "America/Los_Angeles",
	})
	require.NoError(t, err)

	slots := resp.Slots
	require.Len(t, slots, 16)
	assert.True(t, slots[0].Start.Equal(laTime(t, "2025-06-02 09:00")))
	assert.True(t, slots[15].Start.Equal(laTime(t, "2025-06-02 16:30")))
	assert.True(t, slots[15].End.Equal(laTime(t, "2025-06-02 17:00")))

	assert.Equal(t, testTypeID, resp.AppointmentType.ID)
	assert.Equal(t, "Intake Consultation", resp.AppointmentType.Name)
	assert.Equal(t, 30, resp.AppointmentType.DurationMinutes)
	assert.Equal(t, []string{"zoom", "phone"}, resp.AppointmentType.MeetingModes)
}

func TestAvailabilityResolveExcludesBookedSlot(t *testing.T) {
	now := laTime(t, "2025-05-20 08:00")
	f := newAvailabilityFixture(t, now)
	f.addType(consultType(30))
	f.rules.rules = []models.AvailabilityRule{mondayRule("09:00", "17:00")}
	f.busy.busy = []models.BusyInterval{{
		AppointmentID: "appt-1",
		BlockStart:    laTime(t, "2025-06-02 10:00"),
		BlockEnd:      laTime(t, "2025-06-02 10:30"),
	}}

	resp, err := f.svc.Resolve(context.Background(), AvailabilityRequest{
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		DateFrom:          "2025-06-02",
		Timezone:          "America/Los_Angeles",
	})
	require.NoError(t, err)

	slots := resp.Slots
	assert.Len(t, slots, 15)
	for _, slot := range slots {
		assert.False(t, slot.Start.Equal(laTime(t, "2025-06-02 10:00")), "booked slot must be excluded")
	}
	// Adjacent slots survive: the 09:30 and 10:30 starts remain.
	assert.True(t, slots[1].Start.Equal(laTime(t, "2025-06-02 09:30")))
	assert.True(t, slots[2].Start.Equal(laTime(t, "2025-06-02 10:30")))
}

func TestAvailabilityResolveBufferShiftsNextSlot(t *testing.T) {
	now := laTime(t, "2025-05-20 08:00")
	f := newAvailabilityFixture(t, now)
	f.addType(consultType(30))
	f.rules.rules = []models.AvailabilityRule{mondayRule("09:00", "17:00")}
	// A booking 10:00-10:30 whose type carries buffer_after=15 arrives
	// pre-widened to 10:00-10:45.
	f.busy.busy = []models.BusyInterval{{
		AppointmentID: "appt-1",
		BlockStart:    laTime(t, "2025-06-02 10:00"),
		BlockEnd:      laTime(t, "2025-06-02 10:45"),
	}}

	resp, err := f.svc.Resolve(context.Background(), AvailabilityRequest{
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		DateFrom:          "2025-06-02",
		Timezone:          "America/Los_Angeles",
	})
	require.NoError(t, err)

	var next time.Time
	for _, slot := range resp.Slots {
		if slot.Start.After(laTime(t, "2025-06-02 09:30")) {
			next = slot.Start
			break
		}
	}
	// Quantization restarts at the free sub-interval start, not on the
	// original half-hour grid.
	assert.True(t, next.Equal(laTime(t, "2025-06-02 10:45")), "next slot should start at 10:45, got %s", next)
}

func TestAvailabilityResolveDropsPastSlots(t *testing.T) {
	now := laTime(t, "2025-06-02 12:00")
	f := newAvailabilityFixture(t, now)
	f.addType(consultType(30))
	f.rules.rules = []models.AvailabilityRule{mondayRule("09:00", "17:00")}

	resp, err := f.svc.Resolve(context.Background(), AvailabilityRequest{
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		DateFrom:          "2025-06-02",
		Timezone:          "America/Los_Angeles",
	})
	require.NoError(t, err)

	slots := resp.Slots
	require.Len(t, slots, 10)
	assert.True(t, slots[0].Start.Equal(laTime(t, "2025-06-02 12:00")))
}

func TestAvailabilityResolveInactiveTypeNotFound(t *testing.T) {
	now := laTime(t, "2025-05-20 08:00")
	f := newAvailabilityFixture(t, now)
	inactive := consultType(30)
	inactive.Active = false
	f.addType(inactive)

	_, err := f.svc.Resolve(context.Background(), AvailabilityRequest{
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		DateFrom:          "2025-06-02",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityResolveZeroDurationType(t *testing.T) {
	now := laTime(t, "2025-05-20 08:00")
	f := newAvailabilityFixture(t, now)
	f.addType(consultType(0))

	_, err := f.svc.Resolve(context.Background(), AvailabilityRequest{
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		DateFrom:          "2025-06-02",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityResolveZeroLengthRule(t *testing.T) {
	now := laTime(t, "2025-05-20 08:00")
	f := newAvailabilityFixture(t, now)
	f.addType(consultType(30))
	f.rules.rules = []models.AvailabilityRule{mondayRule("09:00", "09:00")}

	resp, err := f.svc.Resolve(context.Background(), AvailabilityRequest{
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		DateFrom:          "2025-06-02",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Slots)
}

func TestAvailabilityResolveKeepsWallClockAcrossDST(t *testing.T) {
	now := laTime(t, "2025-02-20 08:00")
	f := newAvailabilityFixture(t, now)
	f.addType(consultType(30))
	// 2025-03-09 is the spring-forward Sunday in America/Los_Angeles.
	f.rules.rules = []models.AvailabilityRule{{
		ID:        "rule-sun",
		StaffID:   testStaffID,
		DayOfWeek: 6,
		StartTime: "09:00",
		EndTime:   "12:00",
		Timezone:  "America/Los_Angeles",
	}}

	resp, err := f.svc.Resolve(context.Background(), AvailabilityRequest{
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		DateFrom:          "2025-03-09",
		Timezone:          "America/Los_Angeles",
	})
	require.NoError(t, err)

	slots := resp.Slots
	require.Len(t, slots, 6)
	assert.True(t, slots[0].Start.Equal(laTime(t, "2025-03-09 09:00")), "window keeps its local start across the transition")
}

func TestAvailabilityResolveRejectsReversedRange(t *testing.T) {
	f := newAvailabilityFixture(t, laTime(t, "2025-05-20 08:00"))
	f.addType(consultType(30))

	_, err := f.svc.Resolve(context.Background(), AvailabilityRequest{
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		DateFrom:          "2025-06-09",
		DateTo:            "2025-06-02",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityResolveRejectsRangeBeyondHorizon(t *testing.T) {
	f := newAvailabilityFixture(t, laTime(t, "2025-05-20 08:00"))
	f.addType(consultType(30))
	f.rules.rules = []models.AvailabilityRule{mondayRule("09:00", "17:00")}

	// date_to lands past the 60-day horizon; the whole query is rejected
	// rather than answered with a truncated range.
	_, err := f.svc.Resolve(context.Background(), AvailabilityRequest{
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		DateFrom:          "2025-06-02",
		DateTo:            "2025-09-01",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityResolveMultiDayAscending(t *testing.T) {
	now := laTime(t, "2025-05-20 08:00")
	f := newAvailabilityFixture(t, now)
	f.addType(consultType(30))
	f.rules.rules = []models.AvailabilityRule{mondayRule("09:00", "17:00")}

	resp, err := f.svc.Resolve(context.Background(), AvailabilityRequest{
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		DateFrom:          "2025-06-02",
		DateTo:            "2025-06-09",
		Timezone:          "America/Los_Angeles",
	})
	require.NoError(t, err)

	// Two Mondays fall in the range; the list stays flat and ascending.
	require.Len(t, resp.Slots, 32)
	for i := 1; i < len(resp.Slots); i++ {
		assert.True(t, resp.Slots[i-1].Start.Before(resp.Slots[i].Start), "slots must ascend by start time")
	}
	assert.True(t, resp.Slots[16].Start.Equal(laTime(t, "2025-06-09 09:00")))
}

func TestAvailabilityResolveMissingRuleTimezoneWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := &availabilityFixture{
		rules: &stubRuleReader{},
		types: &stubTypeReader{types: map[string]*models.AppointmentType{}},
		busy:  &stubBusyReader{},
	}
	cfg := config.BookingConfig{HorizonDays: 60, DefaultTimezone: "UTC"}
	f.svc = NewAvailabilityService(f.rules, f.types, f.busy, nil, nil, cfg, nil, zap.New(core))
	f.svc.now = func() time.Time { return time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC) }

	f.addType(consultType(30))
	rule := mondayRule("09:00", "10:00")
	rule.Timezone = ""
	f.rules.rules = []models.AvailabilityRule{rule}

	resp, err := f.svc.Resolve(context.Background(), AvailabilityRequest{
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		DateFrom:          "2025-06-02",
	})
	require.NoError(t, err)

	// The window falls back to UTC and the fallback is recorded.
	require.Len(t, resp.Slots, 2)
	assert.True(t, resp.Slots[0].Start.Equal(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)))
	assert.NotZero(t, logs.FilterMessage("missing timezone, falling back to UTC").Len())
}

func TestQuantizeDiscardsPartialWindow(t *testing.T) {
	free := models.TimeSlot{
		Start: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 2, 10, 10, 0, 0, time.UTC),
	}
	slots := quantize(free, 30*time.Minute)
	require.Len(t, slots, 2)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC), slots[1].Start)
}

func TestSubtractBusyHalfOpenBoundaries(t *testing.T) {
	window := models.TimeSlot{
		Start: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC),
	}
	// A block ending exactly at 09:00 does not touch the window.
	free := subtractBusy(window, []models.BusyInterval{{
		BlockStart: time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
		BlockEnd:   time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}})
	require.Len(t, free, 1)
	assert.Equal(t, window, free[0])

	// A block in the middle splits the window in two.
	free = subtractBusy(window, []models.BusyInterval{{
		BlockStart: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		BlockEnd:   time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC),
	}})
	require.Len(t, free, 2)
	assert.Equal(t, time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC), free[0].End)
	assert.Equal(t, time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC), free[1].Start)
}
