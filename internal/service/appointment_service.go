package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/havenbridge/booking-api/internal/models"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
	"github.com/havenbridge/booking-api/pkg/events"
)

type appointmentRepository interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error
	ExpirePending(ctx context.Context, now time.Time) ([]models.Appointment, error)
}

// AppointmentService manages the appointment lifecycle after booking.
type AppointmentService struct {
	repo      appointmentRepository
	cache     cacheInvalidator
	publisher events.Publisher
	logger    *zap.Logger
}

// NewAppointmentService instantiates AppointmentService.
func NewAppointmentService(repo appointmentRepository, cache cacheInvalidator, publisher events.Publisher, logger *zap.Logger) *AppointmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AppointmentService{repo: repo, cache: cache, publisher: publisher, logger: logger}
}

// List returns appointments with pagination metadata.
func (s *AppointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	appointments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return appointments, pagination, nil
}

// Get returns an appointment by id.
func (s *AppointmentService) Get(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return appt, nil
}

// Approve confirms a pending appointment.
func (s *AppointmentService) Approve(ctx context.Context, id string) (*models.Appointment, error) {
	return s.transition(ctx, id, models.AppointmentConfirmed, events.TypeAppointmentConfirmed)
}

// Decline cancels a pending appointment before confirmation.
func (s *AppointmentService) Decline(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != models.AppointmentPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot decline a %s appointment", appt.Status))
	}
	return s.apply(ctx, appt, models.AppointmentCancelled, events.TypeAppointmentDeclined)
}

// Cancel cancels a pending or confirmed appointment.
func (s *AppointmentService) Cancel(ctx context.Context, id string) (*models.Appointment, error) {
	return s.transition(ctx, id, models.AppointmentCancelled, events.TypeAppointmentCancelled)
}

// Complete marks a confirmed appointment as held.
func (s *AppointmentService) Complete(ctx context.Context, id string) (*models.Appointment, error) {
	return s.transition(ctx, id, models.AppointmentCompleted, "")
}

// MarkNoShow records that the client did not attend.
func (s *AppointmentService) MarkNoShow(ctx context.Context, id string) (*models.Appointment, error) {
	return s.transition(ctx, id, models.AppointmentNoShow, "")
}

// ExpirePending transitions overdue pending appointments to expired and
// publishes an event per expiry. Returns the number of rows affected.
func (s *AppointmentService) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.ExpirePending(ctx, now)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire pending appointments")
	}
	for i := range expired {
		s.invalidateSlots(ctx, expired[i].StaffID)
		s.publish(ctx, events.TypeAppointmentExpired, &expired[i])
	}
	return len(expired), nil
}

func (s *AppointmentService) transition(ctx context.Context, id string, next models.AppointmentStatus, eventType string) (*models.Appointment, error) {
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot move a %s appointment to %s", appt.Status, next))
	}
	return s.apply(ctx, appt, next, eventType)
}

func (s *AppointmentService) apply(ctx context.Context, appt *models.Appointment, next models.AppointmentStatus, eventType string) (*models.Appointment, error) {
	if err := s.repo.UpdateStatus(ctx, appt.ID, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment")
	}
	appt.Status = next
	appt.ExpiresAt = nil

	// Cancelled and no-show slots become bookable again.
	if next == models.AppointmentCancelled || next == models.AppointmentNoShow {
		s.invalidateSlots(ctx, appt.StaffID)
	}
	if eventType != "" {
		s.publish(ctx, eventType, appt)
	}
	return appt, nil
}

func (s *AppointmentService) invalidateSlots(ctx context.Context, staffID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "slots:"+staffID+":*"); err != nil {
		s.logger.Warn("failed to invalidate slot cache", zap.String("staff_id", staffID), zap.Error(err))
	}
}

func (s *AppointmentService) publish(ctx context.Context, eventType string, appt *models.Appointment) {
	if err := s.publisher.Publish(ctx, appointmentEvent(eventType, appt)); err != nil {
		s.logger.Warn("failed to publish appointment event", zap.String("event_type", eventType), zap.String("appointment_id", appt.ID), zap.Error(err))
	}
}
