package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenbridge/booking-api/internal/models"
	"github.com/havenbridge/booking-api/internal/repository"
	"github.com/havenbridge/booking-api/internal/service"
	"github.com/havenbridge/booking-api/pkg/config"
	"github.com/havenbridge/booking-api/pkg/response"
)

const (
	testStaffID = "0b6277c4-52ee-4e3b-a195-92e372f44626"
	testTypeID  = "8f14a9d2-9c04-45de-9f3c-6a5f0c9b1d20"
)

type fakeBookingTx struct {
	rules []models.AvailabilityRule
	prior *models.Appointment

	created *models.Appointment
}

func (f *fakeBookingTx) LockStaff(context.Context, string) error { return nil }

func (f *fakeBookingTx) FindByIdempotencyKey(_ context.Context, _, key string, _ time.Duration) (*models.Appointment, error) {
	if f.prior != nil && f.prior.IdempotencyKey != nil && *f.prior.IdempotencyKey == key {
		return f.prior, nil
	}
	return nil, nil
}

func (f *fakeBookingTx) ListRules(context.Context, string) ([]models.AvailabilityRule, error) {
	return f.rules, nil
}

func (f *fakeBookingTx) BusyIntervals(context.Context, string, time.Time, time.Time) ([]models.BusyInterval, error) {
	return nil, nil
}

func (f *fakeBookingTx) CreateAppointment(_ context.Context, appt *models.Appointment) error {
	f.created = appt
	return nil
}

func (f *fakeBookingTx) InsertIdempotency(context.Context, *models.IdempotencyRecord) error {
	return nil
}

func (f *fakeBookingTx) Commit() error   { return nil }
func (f *fakeBookingTx) Rollback() error { return nil }

type fakeBookingRepo struct {
	tx *fakeBookingTx
}

func (f *fakeBookingRepo) Begin(context.Context) (repository.BookingTx, error) {
	return f.tx, nil
}

type fakeTypeReader struct {
	apptType *models.AppointmentType
}

func (f *fakeTypeReader) FindByID(context.Context, string) (*models.AppointmentType, error) {
	return f.apptType, nil
}

type fakeRuleReader struct {
	rules []models.AvailabilityRule
}

func (f fakeRuleReader) ListByStaff(context.Context, string) ([]models.AvailabilityRule, error) {
	return f.rules, nil
}

type fakeBusyReader struct{}

func (fakeBusyReader) BusyIntervals(context.Context, string, time.Time, time.Time) ([]models.BusyInterval, error) {
	return nil, nil
}

func newBookingHandlerFixture(tx *fakeBookingTx) *BookingHandler {
	cfg := config.BookingConfig{
		// Generous horizon keeps the fixed test dates bookable.
		HorizonDays:     3650,
		PendingTTL:      48 * time.Hour,
		DefaultTimezone: "UTC",
	}
	apptType := &models.AppointmentType{
		ID:              testTypeID,
		StaffID:         testStaffID,
		Name:            "Intake Consultation",
		DurationMinutes: 30,
		MeetingModes:    []string{"zoom"},
		AutoApprove:     true,
		Active:          true,
	}
	types := &fakeTypeReader{apptType: apptType}
	availability := service.NewAvailabilityService(fakeRuleReader{}, types, fakeBusyReader{}, nil, nil, cfg, nil, nil)
	bookingSvc := service.NewBookingService(&fakeBookingRepo{tx: tx}, types, availability, nil, nil, nil, cfg, nil, nil)
	return NewBookingHandler(bookingSvc)
}

func mondayAllDayRule() models.AvailabilityRule {
	return models.AvailabilityRule{
		ID:        "rule-mon",
		StaffID:   testStaffID,
		DayOfWeek: 0,
		StartTime: "09:00",
		EndTime:   "17:00",
		Timezone:  "UTC",
	}
}

func submitBooking(t *testing.T, h *BookingHandler, payload map[string]interface{}, idempotencyKey string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	c.Request = req
	h.Submit(c)
	return w
}

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"staff_id":            testStaffID,
		"appointment_type_id": testTypeID,
		// 2030-06-03 is a Monday.
		"scheduled_start": "2030-06-03T10:00:00Z",
		"timezone":        "UTC",
		"meeting_mode":    "zoom",
		"client_name":     "Jordan Reyes",
		"client_email":    "jordan.reyes@example.com",
		"client_phone":    "+1-415-555-0134",
	}
}

func TestBookingHandlerSubmitCreates(t *testing.T) {
	tx := &fakeBookingTx{rules: []models.AvailabilityRule{mondayAllDayRule()}}
	h := newBookingHandlerFixture(tx)

	w := submitBooking(t, h, validPayload(), "create-key-1")
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data)
	require.NotNil(t, tx.created)
	assert.Equal(t, models.AppointmentConfirmed, tx.created.Status)
}

func TestBookingHandlerSubmitReplayReturnsOK(t *testing.T) {
	key := "retry-abc"
	tx := &fakeBookingTx{
		rules: []models.AvailabilityRule{mondayAllDayRule()},
		prior: &models.Appointment{ID: "appt-original", StaffID: testStaffID, IdempotencyKey: &key},
	}
	h := newBookingHandlerFixture(tx)

	w := submitBooking(t, h, validPayload(), key)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, tx.created)
}

func TestBookingHandlerSubmitSlotUnavailable(t *testing.T) {
	// No rules at all, so no slot matches the request.
	tx := &fakeBookingTx{}
	h := newBookingHandlerFixture(tx)

	w := submitBooking(t, h, validPayload(), "conflict-key-1")
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingHandlerSubmitInvalidBody(t *testing.T) {
	h := newBookingHandlerFixture(&fakeBookingTx{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader([]byte("not-json")))
	c.Request = req
	h.Submit(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerSubmitMissingFields(t *testing.T) {
	h := newBookingHandlerFixture(&fakeBookingTx{})

	payload := validPayload()
	delete(payload, "client_email")
	w := submitBooking(t, h, payload, "missing-fields-key")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBookingHandlerSubmitMissingIdempotencyKey(t *testing.T) {
	tx := &fakeBookingTx{rules: []models.AvailabilityRule{mondayAllDayRule()}}
	h := newBookingHandlerFixture(tx)

	w := submitBooking(t, h, validPayload(), "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Nil(t, tx.created)
}
