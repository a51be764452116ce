package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/havenbridge/booking-api/internal/models"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
	"github.com/havenbridge/booking-api/pkg/export"
)

// ExportFormat selects the day-sheet output format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered export ready for download.
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders staff day sheets, the printable schedule a
// coordinator works from.
type ExportService struct {
	appointments appointmentRepository
	staff        staffReader
	types        appointmentTypeReader
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	logger       *zap.Logger
}

// NewExportService instantiates ExportService.
func NewExportService(appointments appointmentRepository, staff staffReader, types appointmentTypeReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		appointments: appointments,
		staff:        staff,
		types:        types,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		logger:       logger,
	}
}

// DaySheet renders all pending and confirmed appointments for the staff
// member on the given date, in the staff member's timezone.
func (s *ExportService) DaySheet(ctx context.Context, staffID, date string, format ExportFormat) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	member, err := s.staff.FindByID(ctx, staffID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
	}
	loc, err := time.LoadLocation(member.Timezone)
	if err != nil {
		loc = time.UTC
	}

	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	dayEnd := day.AddDate(0, 0, 1)

	filter := models.AppointmentFilter{
		StaffID:   staffID,
		DateFrom:  &day,
		DateTo:    &dayEnd,
		Page:      1,
		PageSize:  100,
		SortBy:    "scheduled_start",
		SortOrder: "ASC",
	}
	appointments, _, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day appointments")
	}

	typeNames := make(map[string]string)
	dataset := export.Dataset{
		Headers: []string{"Start", "End", "Status", "Type", "Mode", "Client", "Email", "Phone", "Notes"},
	}
	for _, appt := range appointments {
		if appt.Status != models.AppointmentPending && appt.Status != models.AppointmentConfirmed {
			continue
		}
		name, ok := typeNames[appt.AppointmentTypeID]
		if !ok {
			if apptType, err := s.types.FindByID(ctx, appt.AppointmentTypeID); err == nil {
				name = apptType.Name
			}
			typeNames[appt.AppointmentTypeID] = name
		}
		notes := ""
		if appt.ClientNotes != nil {
			notes = *appt.ClientNotes
		}
		dataset.Rows = append(dataset.Rows, []string{
			appt.ScheduledStart.In(loc).Format("15:04"),
			appt.ScheduledEnd.In(loc).Format("15:04"),
			string(appt.Status),
			name,
			string(appt.MeetingMode),
			appt.ClientName,
			appt.ClientEmail,
			appt.ClientPhone,
			notes,
		})
	}

	switch format {
	case ExportFormatPDF:
		title := fmt.Sprintf("Day sheet %s %s (%s)", member.FullName, date, member.Timezone)
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render PDF")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("day-sheet-%s.pdf", date),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("day-sheet-%s.csv", date),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	}
}
