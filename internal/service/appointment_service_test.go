package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenbridge/booking-api/internal/models"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
	"github.com/havenbridge/booking-api/pkg/events"
)

type stubApptRepo struct {
	appts   map[string]*models.Appointment
	updated map[string]models.AppointmentStatus
	expired []models.Appointment
}

func newStubApptRepo() *stubApptRepo {
	return &stubApptRepo{
		appts:   map[string]*models.Appointment{},
		updated: map[string]models.AppointmentStatus{},
	}
}

func (s *stubApptRepo) List(_ context.Context, _ models.AppointmentFilter) ([]models.Appointment, int, error) {
	var out []models.Appointment
	for _, a := range s.appts {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (s *stubApptRepo) FindByID(_ context.Context, id string) (*models.Appointment, error) {
	if a, ok := s.appts[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubApptRepo) UpdateStatus(_ context.Context, id string, status models.AppointmentStatus) error {
	s.updated[id] = status
	if a, ok := s.appts[id]; ok {
		a.Status = status
	}
	return nil
}

func (s *stubApptRepo) ExpirePending(_ context.Context, _ time.Time) ([]models.Appointment, error) {
	return s.expired, nil
}

type captureInvalidator struct {
	patterns []string
}

func (c *captureInvalidator) DeleteByPattern(_ context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return nil
}

type capturePublisher struct {
	published []events.Event
}

func (c *capturePublisher) Publish(_ context.Context, event events.Event) error {
	c.published = append(c.published, event)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func pendingAppointment(id string) *models.Appointment {
	return &models.Appointment{
		ID:             id,
		StaffID:        testStaffID,
		Status:         models.AppointmentPending,
		ScheduledStart: time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC),
		ScheduledEnd:   time.Date(2025, 6, 2, 17, 30, 0, 0, time.UTC),
		MeetingMode:    models.MeetingModeZoom,
	}
}

func TestAppointmentApprovePending(t *testing.T) {
	repo := newStubApptRepo()
	repo.appts["appt-1"] = pendingAppointment("appt-1")
	publisher := &capturePublisher{}
	svc := NewAppointmentService(repo, nil, publisher, nil)

	appt, err := svc.Approve(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentConfirmed, appt.Status)
	assert.Equal(t, models.AppointmentConfirmed, repo.updated["appt-1"])
	require.Len(t, publisher.published, 1)
	assert.Equal(t, events.TypeAppointmentConfirmed, publisher.published[0].EventType)
}

func TestAppointmentApproveConfirmedConflicts(t *testing.T) {
	repo := newStubApptRepo()
	appt := pendingAppointment("appt-1")
	appt.Status = models.AppointmentConfirmed
	repo.appts["appt-1"] = appt
	svc := NewAppointmentService(repo, nil, nil, nil)

	_, err := svc.Approve(context.Background(), "appt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCancelInvalidatesSlots(t *testing.T) {
	repo := newStubApptRepo()
	repo.appts["appt-1"] = pendingAppointment("appt-1")
	cache := &captureInvalidator{}
	svc := NewAppointmentService(repo, cache, nil, nil)

	appt, err := svc.Cancel(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCancelled, appt.Status)
	require.Len(t, cache.patterns, 1)
	assert.Equal(t, "slots:"+testStaffID+":*", cache.patterns[0])
}

func TestAppointmentDeclineRequiresPending(t *testing.T) {
	repo := newStubApptRepo()
	appt := pendingAppointment("appt-1")
	appt.Status = models.AppointmentConfirmed
	repo.appts["appt-1"] = appt
	svc := NewAppointmentService(repo, nil, nil, nil)

	_, err := svc.Decline(context.Background(), "appt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentNoShowRequiresConfirmed(t *testing.T) {
	repo := newStubApptRepo()
	repo.appts["appt-1"] = pendingAppointment("appt-1")
	svc := NewAppointmentService(repo, nil, nil, nil)

	_, err := svc.MarkNoShow(context.Background(), "appt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentGetMissing(t *testing.T) {
	svc := NewAppointmentService(newStubApptRepo(), nil, nil, nil)

	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAppointmentExpirePendingPublishesEvents(t *testing.T) {
	repo := newStubApptRepo()
	stale := pendingAppointment("appt-stale")
	stale.Status = models.AppointmentExpired
	repo.expired = []models.Appointment{*stale}
	publisher := &capturePublisher{}
	cache := &captureInvalidator{}
	svc := NewAppointmentService(repo, cache, publisher, nil)

	count, err := svc.ExpirePending(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, events.TypeAppointmentExpired, publisher.published[0].EventType)
	assert.Len(t, cache.patterns, 1)
}
