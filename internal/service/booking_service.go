package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/havenbridge/booking-api/internal/models"
	"github.com/havenbridge/booking-api/internal/repository"
	"github.com/havenbridge/booking-api/pkg/config"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
	"github.com/havenbridge/booking-api/pkg/events"
)

// maxIdempotencyKeyLen is the longest client-supplied key stored verbatim.
// Longer keys are replaced by their SHA-256 hex digest, which is exactly 64
// characters, so the stored key never exceeds this bound.
const maxIdempotencyKeyLen = 64

type bookingRepository interface {
	Begin(ctx context.Context) (repository.BookingTx, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// BookingRequest is a public booking submission.
type BookingRequest struct {
	StaffID           string  `json:"staff_id" validate:"required,uuid4"`
	AppointmentTypeID string  `json:"appointment_type_id" validate:"required,uuid4"`
	ScheduledStart    string  `json:"scheduled_start" validate:"required"`
	Timezone          string  `json:"timezone" validate:"required,max=64"`
	MeetingMode       string  `json:"meeting_mode" validate:"required,max=32"`
	ClientName        string  `json:"client_name" validate:"required,max=200"`
	ClientEmail       string  `json:"client_email" validate:"required,email,max=254"`
	ClientPhone       string  `json:"client_phone" validate:"required,max=32"`
	ClientNotes       *string `json:"client_notes" validate:"omitempty,max=2000"`

	// IdempotencyKey comes from the Idempotency-Key header, not the body.
	// Every submission must carry one so retries replay instead of duplicating.
	IdempotencyKey string `json:"-" validate:"required,max=255"`
}

// BookingResult carries the created (or replayed) appointment.
type BookingResult struct {
	Appointment *models.Appointment
	Replayed    bool
}

// BookingService runs the submission protocol: cheap field validation,
// then a per-staff serialized transaction that replays idempotent retries,
// re-checks the requested slot and inserts the appointment.
type BookingService struct {
	bookings     bookingRepository
	types        appointmentTypeReader
	availability *AvailabilityService
	cache        cacheInvalidator
	publisher    events.Publisher
	metrics      *MetricsService
	cfg          config.BookingConfig
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewBookingService instantiates BookingService.
func NewBookingService(bookings bookingRepository, types appointmentTypeReader, availability *AvailabilityService, cache cacheInvalidator, publisher events.Publisher, metrics *MetricsService, cfg config.BookingConfig, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &BookingService{
		bookings:     bookings,
		types:        types,
		availability: availability,
		cache:        cache,
		publisher:    publisher,
		metrics:      metrics,
		cfg:          cfg,
		validator:    validate,
		logger:       logger,
		now:          time.Now,
	}
}

// Submit processes a booking request.
func (s *BookingService) Submit(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordBooking("validation_error")
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	start, err := time.Parse(time.RFC3339, req.ScheduledStart)
	if err != nil {
		s.metrics.RecordBooking("validation_error")
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "scheduled_start must be RFC 3339")
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		s.metrics.RecordBooking("validation_error")
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown timezone")
	}
	mode := models.MeetingMode(req.MeetingMode)
	if !mode.Valid() {
		s.metrics.RecordBooking("validation_error")
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported meeting mode")
	}

	now := s.now()
	if start.Before(now) {
		s.metrics.RecordBooking("validation_error")
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled_start is in the past")
	}
	if start.After(now.AddDate(0, 0, s.cfg.HorizonDays)) {
		s.metrics.RecordBooking("validation_error")
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled_start exceeds the booking horizon")
	}

	apptType, err := s.availability.loadActiveType(ctx, req.AppointmentTypeID, req.StaffID)
	if err != nil {
		return nil, err
	}
	if !apptType.AllowsMode(mode) {
		s.metrics.RecordBooking("validation_error")
		return nil, appErrors.Clone(appErrors.ErrValidation, "meeting mode not offered for this appointment type")
	}

	key := NormalizeIdempotencyKey(req.IdempotencyKey)
	end := start.Add(apptType.Duration())

	tx, err := s.bookings.Begin(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open booking transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := tx.LockStaff(ctx, req.StaffID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialize booking")
	}

	prior, err := tx.FindByIdempotencyKey(ctx, req.StaffID, key, s.cfg.IdempotencyRetention)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check idempotency")
	}
	if prior != nil {
		if err := tx.Commit(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finish booking")
		}
		committed = true
		if s.metrics != nil {
			s.metrics.IdempotentReplays.Inc()
		}
		return &BookingResult{Appointment: prior, Replayed: true}, nil
	}

	open, err := s.slotStillOpen(ctx, tx, req.StaffID, apptType, start, end, now)
	if err != nil {
		return nil, err
	}
	if !open {
		s.metrics.RecordBooking("slot_unavailable")
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
	}

	status := models.AppointmentPending
	var expiresAt *time.Time
	if apptType.AutoApprove {
		status = models.AppointmentConfirmed
	} else {
		exp := now.Add(s.cfg.PendingTTL)
		expiresAt = &exp
	}

	appt := &models.Appointment{
		ID:                uuid.NewString(),
		StaffID:           req.StaffID,
		AppointmentTypeID: apptType.ID,
		ScheduledStart:    start,
		ScheduledEnd:      end,
		Status:            status,
		ClientTimezone:    req.Timezone,
		MeetingMode:       mode,
		ClientName:        req.ClientName,
		ClientEmail:       req.ClientEmail,
		ClientPhone:       req.ClientPhone,
		ClientNotes:       req.ClientNotes,
		ExpiresAt:         expiresAt,
		CreatedAt:         now,
		UpdatedAt:         now,
		IdempotencyKey:    &key,
	}

	if err := tx.CreateAppointment(ctx, appt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}
	rec := &models.IdempotencyRecord{
		StaffID:        req.StaffID,
		IdempotencyKey: key,
		AppointmentID:  appt.ID,
		CreatedAt:      now,
	}
	if err := tx.InsertIdempotency(ctx, rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record idempotency key")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finish booking")
	}
	committed = true

	s.metrics.RecordBooking(string(status))
	s.invalidateSlots(ctx, req.StaffID)
	s.publish(ctx, eventForStatus(status), appt)

	return &BookingResult{Appointment: appt}, nil
}

// slotStillOpen recomputes the requested day's slots under the submission
// lock and accepts the booking only when the requested window is one of
// them. The day is probed in a one-day neighbourhood so windows crossing
// midnight in the rule's timezone are still found.
func (s *BookingService) slotStillOpen(ctx context.Context, tx repository.BookingTx, staffID string, apptType *models.AppointmentType, start, end time.Time, now time.Time) (bool, error) {
	rules, err := tx.ListRules(ctx, staffID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rules")
	}
	busy, err := tx.BusyIntervals(ctx, staffID, start.AddDate(0, 0, -1), end.AddDate(0, 0, 1))
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing appointments")
	}

	earliest := now.Add(s.cfg.MinLeadTime)
	for offset := -1; offset <= 1; offset++ {
		date := start.UTC().AddDate(0, 0, offset)
		for _, slot := range s.availability.SlotsForStaffDay(rules, busy, apptType, date, earliest) {
			if slot.Start.Equal(start) && slot.End.Equal(end) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *BookingService) invalidateSlots(ctx context.Context, staffID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "slots:"+staffID+":*"); err != nil {
		s.logger.Warn("failed to invalidate slot cache", zap.String("staff_id", staffID), zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, appt *models.Appointment) {
	if err := s.publisher.Publish(ctx, appointmentEvent(eventType, appt)); err != nil {
		s.logger.Warn("failed to publish booking event", zap.String("event_type", eventType), zap.String("appointment_id", appt.ID), zap.Error(err))
	}
}

func appointmentEvent(eventType string, appt *models.Appointment) events.Event {
	return events.Event{
		EventType:     eventType,
		AppointmentID: appt.ID,
		StaffID:       appt.StaffID,
		OccurredAt:    time.Now().UTC(),
		Payload: map[string]interface{}{
			"status":          string(appt.Status),
			"scheduled_start": appt.ScheduledStart.UTC().Format(time.RFC3339),
			"scheduled_end":   appt.ScheduledEnd.UTC().Format(time.RFC3339),
			"meeting_mode":    string(appt.MeetingMode),
		},
	}
}

func eventForStatus(status models.AppointmentStatus) string {
	if status == models.AppointmentConfirmed {
		return events.TypeAppointmentConfirmed
	}
	return events.TypeAppointmentBooked
}

// NormalizeIdempotencyKey returns the key as stored: verbatim when it fits,
// otherwise its SHA-256 hex digest so arbitrarily long client keys still map
// to a stable stored value.
func NormalizeIdempotencyKey(key string) string {
	if len(key) <= maxIdempotencyKeyLen {
		return key
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
