package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/havenbridge/booking-api/internal/models"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
)

type appointmentTypeRepository interface {
	ListByStaff(ctx context.Context, staffID string, activeOnly bool) ([]models.AppointmentType, error)
	FindByID(ctx context.Context, id string) (*models.AppointmentType, error)
	Create(ctx context.Context, apptType *models.AppointmentType) error
	Update(ctx context.Context, apptType *models.AppointmentType) error
	Deactivate(ctx context.Context, id string) error
}

// AppointmentTypeRequest creates or updates an appointment type.
type AppointmentTypeRequest struct {
	Name                string   `json:"name" validate:"required,max=200"`
	DurationMinutes     int      `json:"duration_minutes" validate:"required,min=5,max=480"`
	BufferBeforeMinutes int      `json:"buffer_before_minutes" validate:"min=0,max=240"`
	BufferAfterMinutes  int      `json:"buffer_after_minutes" validate:"min=0,max=240"`
	MeetingModes        []string `json:"meeting_modes" validate:"required,min=1"`
	AutoApprove         bool     `json:"auto_approve"`
}

// AppointmentTypeService manages bookable appointment offerings.
type AppointmentTypeService struct {
	repo      appointmentTypeRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAppointmentTypeService instantiates AppointmentTypeService.
func NewAppointmentTypeService(repo appointmentTypeRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *AppointmentTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentTypeService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns a staff member's appointment types.
func (s *AppointmentTypeService) List(ctx context.Context, staffID string, activeOnly bool) ([]models.AppointmentType, error) {
	types, err := s.repo.ListByStaff(ctx, staffID, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointment types")
	}
	return types, nil
}

// Get returns an appointment type by id.
func (s *AppointmentTypeService) Get(ctx context.Context, id string) (*models.AppointmentType, error) {
	apptType, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment type")
	}
	return apptType, nil
}

// Create adds a new appointment type for the staff member.
func (s *AppointmentTypeService) Create(ctx context.Context, staffID string, req AppointmentTypeRequest) (*models.AppointmentType, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	now := time.Now()
	apptType := &models.AppointmentType{
		ID:                  uuid.NewString(),
		StaffID:             staffID,
		Name:                req.Name,
		DurationMinutes:     req.DurationMinutes,
		BufferBeforeMinutes: req.BufferBeforeMinutes,
		BufferAfterMinutes:  req.BufferAfterMinutes,
		MeetingModes:        pq.StringArray(req.MeetingModes),
		AutoApprove:         req.AutoApprove,
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Create(ctx, apptType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment type")
	}
	return apptType, nil
}

// Update changes an appointment type. Duration and buffer changes affect
// future availability only; existing appointments keep their booked window.
func (s *AppointmentTypeService) Update(ctx context.Context, staffID, id string, req AppointmentTypeRequest) (*models.AppointmentType, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	apptType, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apptType.StaffID != staffID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment type not found")
	}

	apptType.Name = req.Name
	apptType.DurationMinutes = req.DurationMinutes
	apptType.BufferBeforeMinutes = req.BufferBeforeMinutes
	apptType.BufferAfterMinutes = req.BufferAfterMinutes
	apptType.MeetingModes = pq.StringArray(req.MeetingModes)
	apptType.AutoApprove = req.AutoApprove
	apptType.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, apptType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment type")
	}
	s.invalidateSlots(ctx, staffID)
	return apptType, nil
}

// Deactivate hides the type from new bookings without touching existing
// appointments.
func (s *AppointmentTypeService) Deactivate(ctx context.Context, staffID, id string) error {
	apptType, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if apptType.StaffID != staffID {
		return appErrors.Clone(appErrors.ErrNotFound, "appointment type not found")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate appointment type")
	}
	s.invalidateSlots(ctx, staffID)
	return nil
}

func (s *AppointmentTypeService) validate(req AppointmentTypeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment type payload")
	}
	for _, mode := range req.MeetingModes {
		if !models.MeetingMode(mode).Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported meeting mode %q", mode))
		}
	}
	return nil
}

func (s *AppointmentTypeService) invalidateSlots(ctx context.Context, staffID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "slots:"+staffID+":*"); err != nil {
		s.logger.Warn("failed to invalidate slot cache", zap.String("staff_id", staffID), zap.Error(err))
	}
}
