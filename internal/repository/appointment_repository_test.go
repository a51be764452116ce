package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenbridge/booking-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func appointmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "staff_id", "appointment_type_id", "scheduled_start", "scheduled_end",
		"status", "client_timezone", "meeting_mode", "client_name", "client_email",
		"client_phone", "client_notes", "idempotency_key", "expires_at", "created_at", "updated_at",
	})
}

func TestAppointmentRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	start := time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC)
	rows := appointmentRows().AddRow(
		"appt-1", "staff-1", "type-1", start, start.Add(30*time.Minute),
		"pending", "America/Los_Angeles", "zoom", "Jordan Reyes", "jordan@example.com",
		"+14155550134", nil, nil, nil, start, start,
	)

	mock.ExpectQuery(regexp.QuoteMeta("FROM appointments WHERE 1=1 AND staff_id = $1 AND status = $2")).
		WithArgs("staff-1", "pending").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("staff-1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.AppointmentPending
	items, total, err := repo.List(context.Background(), models.AppointmentFilter{
		StaffID: "staff-1",
		Status:  &status,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "appt-1", items[0].ID)
	assert.Equal(t, models.AppointmentPending, items[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryBusyIntervals(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	blockStart := time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"appointment_id", "block_start", "block_end"}).
		AddRow("appt-1", blockStart, blockStart.Add(45*time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("a.scheduled_end + (t.buffer_after_minutes * INTERVAL '1 minute') AS block_end")).
		WithArgs("staff-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	busy, err := repo.BusyIntervals(context.Background(), "staff-1", from, to)
	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.Equal(t, "appt-1", busy[0].AppointmentID)
	assert.True(t, busy[0].BlockEnd.Equal(blockStart.Add(45*time.Minute)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryUpdateStatusClearsExpiry(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE appointments SET status = $2, expires_at = NULL")).
		WithArgs("appt-1", "confirmed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "appt-1", models.AppointmentConfirmed)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryExpirePendingReturnsRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	now := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	start := now.Add(24 * time.Hour)
	rows := appointmentRows().AddRow(
		"appt-stale", "staff-1", "type-1", start, start.Add(30*time.Minute),
		"expired", "UTC", "phone", "Avery Quinn", "avery@example.com",
		"+14155550199", nil, nil, nil, now, now,
	)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE appointments SET status = 'expired'")).
		WithArgs(now).
		WillReturnRows(rows)

	expired, err := repo.ExpirePending(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "appt-stale", expired[0].ID)
	assert.Equal(t, models.AppointmentExpired, expired[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
