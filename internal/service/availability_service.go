package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/havenbridge/booking-api/internal/models"
	"github.com/havenbridge/booking-api/pkg/config"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
)

type availabilityRuleReader interface {
	ListByStaff(ctx context.Context, staffID string) ([]models.AvailabilityRule, error)
}

type appointmentTypeReader interface {
	FindByID(ctx context.Context, id string) (*models.AppointmentType, error)
}

type busyIntervalReader interface {
	BusyIntervals(ctx context.Context, staffID string, from, to time.Time) ([]models.BusyInterval, error)
}

type slotCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AvailabilityRequest describes a slot query for one staff member and
// appointment type over an inclusive date range.
type AvailabilityRequest struct {
	StaffID           string `form:"staff_id" validate:"required,uuid4"`
	AppointmentTypeID string `form:"appointment_type_id" validate:"required,uuid4"`
	DateFrom          string `form:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo            string `form:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Timezone          string `form:"timezone" validate:"omitempty,max=64"`
}

// AppointmentTypeInfo is the client-facing view of the queried type,
// returned alongside the slots so the booking form needs no second fetch.
type AppointmentTypeInfo struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DurationMinutes int      `json:"duration_minutes"`
	MeetingModes    []string `json:"meeting_modes"`
	AutoApprove     bool     `json:"auto_approve"`
}

// AvailabilityResponse is the resolved slot set for a query: a flat list
// ordered by start time, in the presentation timezone. Grouping into a
// calendar grid is the client's concern.
type AvailabilityResponse struct {
	StaffID         string              `json:"staff_id"`
	AppointmentType AppointmentTypeInfo `json:"appointment_type"`
	Timezone        string              `json:"timezone"`
	Slots           []models.TimeSlot   `json:"slots"`
}

// AvailabilityService computes bookable slots from weekly rules and
// existing appointments.
type AvailabilityService struct {
	rules     availabilityRuleReader
	types     appointmentTypeReader
	busy      busyIntervalReader
	cache     slotCache
	metrics   *MetricsService
	cfg       config.BookingConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(rules availabilityRuleReader, types appointmentTypeReader, busy busyIntervalReader, cache slotCache, metrics *MetricsService, cfg config.BookingConfig, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		rules:     rules,
		types:     types,
		busy:      busy,
		cache:     cache,
		metrics:   metrics,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Resolve validates the query and returns the bookable slots for the range,
// ordered by start time in the presentation timezone.
func (s *AvailabilityService) Resolve(ctx context.Context, req AvailabilityRequest) (*AvailabilityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	if req.DateTo == "" {
		req.DateTo = req.DateFrom
	}

	fromDate, err := time.Parse("2006-01-02", req.DateFrom)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date_from")
	}
	toDate, err := time.Parse("2006-01-02", req.DateTo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date_to")
	}
	if toDate.Before(fromDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_to must not precede date_from")
	}

	now := s.now()
	horizon := now.AddDate(0, 0, s.cfg.HorizonDays)
	if fromDate.After(horizon) || toDate.After(horizon) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range exceeds the %d-day booking horizon", s.cfg.HorizonDays))
	}

	presentTZ := req.Timezone
	if presentTZ == "" {
		presentTZ = s.cfg.DefaultTimezone
	}
	presentLoc := s.loadLocation(presentTZ)

	cacheKey := fmt.Sprintf("slots:%s:%s:%s:%s:%s", req.StaffID, req.AppointmentTypeID, req.DateFrom, req.DateTo, presentTZ)
	if s.cache != nil && s.cfg.SlotCacheEnabled {
		var cached AvailabilityResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.SlotCacheHits.Inc()
			}
			return &cached, nil
		}
	}

	apptType, err := s.loadActiveType(ctx, req.AppointmentTypeID, req.StaffID)
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.ListByStaff(ctx, req.StaffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rules")
	}

	// Busy intervals already carry each appointment's own buffers. Widen the
	// fetch window by a day on each side so windows near midnight still see
	// their neighbours.
	rangeStart := fromDate.AddDate(0, 0, -1)
	rangeEnd := toDate.AddDate(0, 0, 2)
	busy, err := s.busy.BusyIntervals(ctx, req.StaffID, rangeStart, rangeEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing appointments")
	}

	earliest := now.Add(s.cfg.MinLeadTime)
	duration := apptType.Duration()
	var slots []models.TimeSlot

	days := int(toDate.Sub(fromDate).Hours()/24) + 1
	for i := 0; i < days; i++ {
		date := fromDate.AddDate(0, 0, i)
		for _, rule := range rules {
			window, ok := s.materializeWindow(rule, date)
			if !ok {
				continue
			}
			for _, free := range subtractBusy(window, busy) {
				for _, slot := range quantize(free, duration) {
					if slot.Start.Before(earliest) {
						continue
					}
					slots = append(slots, models.TimeSlot{
						Start: slot.Start.In(presentLoc),
						End:   slot.End.In(presentLoc),
					})
				}
			}
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })

	resp := &AvailabilityResponse{
		StaffID: req.StaffID,
		AppointmentType: AppointmentTypeInfo{
			ID:              apptType.ID,
			Name:            apptType.Name,
			DurationMinutes: apptType.DurationMinutes,
			MeetingModes:    apptType.MeetingModes,
			AutoApprove:     apptType.AutoApprove,
		},
		Timezone: presentTZ,
		Slots:    slots,
	}

	if s.metrics != nil {
		s.metrics.SlotsComputed.Add(float64(len(slots)))
	}

	if s.cache != nil && s.cfg.SlotCacheEnabled {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.SlotCacheTTL); err != nil {
			s.logger.Warn("failed to cache availability", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	return resp, nil
}

// SlotsForStaffDay recomputes the raw slot set for a single day without
// presentation conversion or caching. The booking flow uses it to re-check a
// requested window under the submission lock.
func (s *AvailabilityService) SlotsForStaffDay(rules []models.AvailabilityRule, busy []models.BusyInterval, apptType *models.AppointmentType, date time.Time, earliest time.Time) []models.TimeSlot {
	duration := apptType.Duration()
	var slots []models.TimeSlot
	for _, rule := range rules {
		window, ok := s.materializeWindow(rule, date)
		if !ok {
			continue
		}
		for _, free := range subtractBusy(window, busy) {
			for _, slot := range quantize(free, duration) {
				if slot.Start.Before(earliest) {
					continue
				}
				slots = append(slots, slot)
			}
		}
	}
	return slots
}

func (s *AvailabilityService) loadActiveType(ctx context.Context, typeID, staffID string) (*models.AppointmentType, error) {
	apptType, err := s.types.FindByID(ctx, typeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "appointment type not found")
	}
	if apptType.StaffID != staffID || !apptType.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment type not found")
	}
	if apptType.DurationMinutes <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appointment type duration must be positive")
	}
	return apptType, nil
}

// materializeWindow projects a weekly rule onto a concrete calendar date.
// The wall-clock bounds are interpreted in the rule's timezone, so windows
// spanning a DST transition keep their local start and end times. Zero-length
// windows and dates on a different weekday produce no window.
func (s *AvailabilityService) materializeWindow(rule models.AvailabilityRule, date time.Time) (models.TimeSlot, bool) {
	loc := s.loadLocation(rule.Timezone)

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	if models.WeekdayIndex(midnight.Weekday()) != rule.DayOfWeek {
		return models.TimeSlot{}, false
	}

	sh, sm, err := models.ParseWallClock(rule.StartTime)
	if err != nil {
		s.logger.Warn("skipping rule with invalid start time", zap.String("rule_id", rule.ID), zap.Error(err))
		return models.TimeSlot{}, false
	}
	eh, em, err := models.ParseWallClock(rule.EndTime)
	if err != nil {
		s.logger.Warn("skipping rule with invalid end time", zap.String("rule_id", rule.ID), zap.Error(err))
		return models.TimeSlot{}, false
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), sh, sm, 0, 0, loc)
	end := time.Date(date.Year(), date.Month(), date.Day(), eh, em, 0, 0, loc)
	if !end.After(start) {
		return models.TimeSlot{}, false
	}
	return models.TimeSlot{Start: start, End: end}, true
}

func (s *AvailabilityService) loadLocation(name string) *time.Location {
	if name == "" {
		s.logger.Warn("missing timezone, falling back to UTC")
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		s.logger.Warn("unknown timezone, falling back to UTC", zap.String("timezone", name))
		return time.UTC
	}
	return loc
}

// subtractBusy removes every busy interval from the window, returning the
// free sub-intervals in order. Intervals are half-open: a busy block ending
// exactly at a window start does not touch it.
func subtractBusy(window models.TimeSlot, busy []models.BusyInterval) []models.TimeSlot {
	free := []models.TimeSlot{window}
	for _, b := range busy {
		if !b.BlockStart.Before(window.End) || !window.Start.Before(b.BlockEnd) {
			continue
		}
		var next []models.TimeSlot
		for _, f := range free {
			if !b.BlockStart.Before(f.End) || !f.Start.Before(b.BlockEnd) {
				next = append(next, f)
				continue
			}
			if b.BlockStart.After(f.Start) {
				next = append(next, models.TimeSlot{Start: f.Start, End: b.BlockStart})
			}
			if b.BlockEnd.Before(f.End) {
				next = append(next, models.TimeSlot{Start: b.BlockEnd, End: f.End})
			}
		}
		free = next
	}
	return free
}

// quantize cuts a free interval into consecutive duration-sized slots
// anchored at the interval start. A trailing remainder shorter than the
// duration is discarded.
func quantize(free models.TimeSlot, duration time.Duration) []models.TimeSlot {
	if duration <= 0 {
		return nil
	}
	var slots []models.TimeSlot
	for cursor := free.Start; !cursor.Add(duration).After(free.End); cursor = cursor.Add(duration) {
		slots = append(slots, models.TimeSlot{Start: cursor, End: cursor.Add(duration)})
	}
	return slots
}
