package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenbridge/booking-api/internal/models"
)

func TestBookingTxSubmissionSequence(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("staff-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_idempotency")).
		WithArgs("staff-1", "retry-key", sqlmock.AnyArg()).
		WillReturnRows(appointmentRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appointments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_idempotency")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := repo.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.LockStaff(ctx, "staff-1"))

	prior, err := tx.FindByIdempotencyKey(ctx, "staff-1", "retry-key", 168*time.Hour)
	require.NoError(t, err)
	assert.Nil(t, prior, "unused key must come back empty, not as an error")

	now := time.Date(2025, 5, 20, 15, 0, 0, 0, time.UTC)
	appt := &models.Appointment{
		ID:                "appt-1",
		StaffID:           "staff-1",
		AppointmentTypeID: "type-1",
		ScheduledStart:    now.AddDate(0, 0, 7),
		ScheduledEnd:      now.AddDate(0, 0, 7).Add(30 * time.Minute),
		Status:            models.AppointmentPending,
		ClientTimezone:    "UTC",
		MeetingMode:       models.MeetingModeZoom,
		ClientName:        "Jordan Reyes",
		ClientEmail:       "jordan@example.com",
		ClientPhone:       "+14155550134",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, tx.CreateAppointment(ctx, appt))
	require.NoError(t, tx.InsertIdempotency(ctx, &models.IdempotencyRecord{
		StaffID:        "staff-1",
		IdempotencyKey: "retry-key",
		AppointmentID:  "appt-1",
		CreatedAt:      now,
	}))
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingTxIdempotencyHit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	start := time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC)
	key := "retry-key"
	rows := appointmentRows().AddRow(
		"appt-original", "staff-1", "type-1", start, start.Add(30*time.Minute),
		"pending", "UTC", "zoom", "Jordan Reyes", "jordan@example.com",
		"+14155550134", nil, key, nil, start, start,
	)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_idempotency")).
		WithArgs("staff-1", key, sqlmock.AnyArg()).
		WillReturnRows(rows)
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := repo.Begin(ctx)
	require.NoError(t, err)

	prior, err := tx.FindByIdempotencyKey(ctx, "staff-1", key, 168*time.Hour)
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, "appt-original", prior.ID)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryDeleteExpiredIdempotency(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM booking_idempotency WHERE created_at < $1")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpiredIdempotency(context.Background(), 168*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
