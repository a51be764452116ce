package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/havenbridge/booking-api/internal/models"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
)

const icsTimeLayout = "20060102T150405Z"

// CalendarService renders appointments as iCalendar documents for client
// calendar apps.
type CalendarService struct {
	appointments *AppointmentService
	staff        staffReader
	types        appointmentTypeReader
	logger       *zap.Logger
}

type staffReader interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
}

// NewCalendarService instantiates CalendarService.
func NewCalendarService(appointments *AppointmentService, staff staffReader, types appointmentTypeReader, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{appointments: appointments, staff: staff, types: types, logger: logger}
}

// RenderICS produces an iCalendar document for a single appointment. Times
// are normalized to UTC; calendar apps localize on display. Cancelled and
// expired appointments are not exported.
func (s *CalendarService) RenderICS(ctx context.Context, appointmentID string) (string, error) {
	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return "", err
	}
	if appt.Status != models.AppointmentPending && appt.Status != models.AppointmentConfirmed {
		return "", appErrors.Clone(appErrors.ErrNotFound, "appointment is not exportable")
	}

	summary := "Appointment"
	if apptType, err := s.types.FindByID(ctx, appt.AppointmentTypeID); err == nil {
		summary = apptType.Name
	}
	var organizer string
	if member, err := s.staff.FindByID(ctx, appt.StaffID); err == nil {
		organizer = member.FullName
	}

	status := "TENTATIVE"
	if appt.Status == models.AppointmentConfirmed {
		status = "CONFIRMED"
	}

	description := fmt.Sprintf("Meeting mode: %s", appt.MeetingMode)
	if organizer != "" {
		description = fmt.Sprintf("%s with %s", summary, organizer) + "\n" + description
	}

	var b strings.Builder
	writeICSLine(&b, "BEGIN:VCALENDAR")
	writeICSLine(&b, "VERSION:2.0")
	writeICSLine(&b, "PRODID:-//Havenbridge//Booking API//EN")
	writeICSLine(&b, "CALSCALE:GREGORIAN")
	writeICSLine(&b, "METHOD:PUBLISH")
	writeICSLine(&b, "BEGIN:VEVENT")
	writeICSLine(&b, "UID:"+appt.ID+"@havenbridge")
	writeICSLine(&b, "DTSTAMP:"+time.Now().UTC().Format(icsTimeLayout))
	writeICSLine(&b, "DTSTART:"+appt.ScheduledStart.UTC().Format(icsTimeLayout))
	writeICSLine(&b, "DTEND:"+appt.ScheduledEnd.UTC().Format(icsTimeLayout))
	writeICSLine(&b, "SUMMARY:"+escapeICS(summary))
	writeICSLine(&b, "DESCRIPTION:"+escapeICS(description))
	writeICSLine(&b, "STATUS:"+status)
	writeICSLine(&b, "END:VEVENT")
	writeICSLine(&b, "END:VCALENDAR")
	return b.String(), nil
}

// writeICSLine appends a content line with the CRLF terminator RFC 5545
// requires.
func writeICSLine(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteString("\r\n")
}

// escapeICS escapes commas, semicolons, backslashes and newlines in text
// values.
func escapeICS(text string) string {
	replacer := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n")
	return replacer.Replace(text)
}
