package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenbridge/booking-api/internal/models"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
)

type stubStaffReader struct {
	staff map[string]*models.Staff
}

func (s *stubStaffReader) FindByID(_ context.Context, id string) (*models.Staff, error) {
	if m, ok := s.staff[id]; ok {
		return m, nil
	}
	return nil, appErrors.ErrNotFound
}

func newCalendarFixture(appt *models.Appointment) *CalendarService {
	repo := newStubApptRepo()
	if appt != nil {
		repo.appts[appt.ID] = appt
	}
	appointments := NewAppointmentService(repo, nil, nil, nil)
	staff := &stubStaffReader{staff: map[string]*models.Staff{
		testStaffID: {ID: testStaffID, FullName: "Dana Whitfield", Timezone: "America/Los_Angeles"},
	}}
	types := &stubTypeReader{types: map[string]*models.AppointmentType{
		testTypeID: consultType(30),
	}}
	return NewCalendarService(appointments, staff, types, nil)
}

func TestCalendarRenderICSConfirmed(t *testing.T) {
	appt := &models.Appointment{
		ID:                "appt-1",
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		Status:            models.AppointmentConfirmed,
		ScheduledStart:    time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC),
		ScheduledEnd:      time.Date(2025, 6, 2, 17, 30, 0, 0, time.UTC),
		MeetingMode:       models.MeetingModeZoom,
	}
	svc := newCalendarFixture(appt)

	ics, err := svc.RenderICS(context.Background(), "appt-1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(ics, "END:VCALENDAR\r\n"))
	assert.Contains(t, ics, "DTSTART:20250602T170000Z")
	assert.Contains(t, ics, "DTEND:20250602T173000Z")
	assert.Contains(t, ics, "STATUS:CONFIRMED")
	assert.Contains(t, ics, "UID:appt-1@havenbridge")
	assert.Contains(t, ics, "SUMMARY:Intake Consultation")

	for _, line := range strings.Split(strings.TrimRight(ics, "\r\n"), "\r\n") {
		assert.NotContains(t, line, "\n", "every content line must be CRLF terminated")
	}
}

func TestCalendarRenderICSPendingIsTentative(t *testing.T) {
	appt := &models.Appointment{
		ID:                "appt-1",
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		Status:            models.AppointmentPending,
		ScheduledStart:    time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC),
		ScheduledEnd:      time.Date(2025, 6, 2, 17, 30, 0, 0, time.UTC),
	}
	svc := newCalendarFixture(appt)

	ics, err := svc.RenderICS(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Contains(t, ics, "STATUS:TENTATIVE")
}

func TestCalendarRenderICSCancelledNotExportable(t *testing.T) {
	appt := &models.Appointment{
		ID:                "appt-1",
		StaffID:           testStaffID,
		AppointmentTypeID: testTypeID,
		Status:            models.AppointmentCancelled,
	}
	svc := newCalendarFixture(appt)

	_, err := svc.RenderICS(context.Background(), "appt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEscapeICS(t *testing.T) {
	assert.Equal(t, "a\\,b\\;c\\\\d", escapeICS(`a,b;c\d`))
	assert.Equal(t, "line1\\nline2", escapeICS("line1\nline2"))
}
