package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookingCols = "id, patient_id, doctor_id, booking_date, booking_time, status, cancellation_reason, created_at, updated_at"

func newPgTest(t *testing.T) (pgxmock.PgxPoolIface, *PgRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, NewPgRepository(mock)
}

func bookingRow(id, patientID, doctorID uuid.UUID, date time.Time, at TimeOfDay, status BookingStatus) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "patient_id", "doctor_id", "booking_date", "booking_time",
		"status", "cancellation_reason", "created_at", "updated_at",
	}).AddRow(id, patientID, doctorID, date, at.PgTime(), status, nil, now, now)
}

func TestPgCreateBooking(t *testing.T) {
	mock, repo := newPgTest(t)

	patientID, doctorID := uuid.New(), uuid.New()
	date := Day(time.Now())
	at := TimeOfDay(10 * 60)

	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs(pgxmock.AnyArg(), patientID, doctorID, date, at.PgTime()).
		WillReturnRows(bookingRow(uuid.New(), patientID, doctorID, date, at, StatusBooked))

	b, err := repo.CreateBooking(context.Background(), patientID, doctorID, date, at)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, b.Status)
	assert.Equal(t, at, b.Time)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCreateBookingUniqueViolation(t *testing.T) {
	mock, repo := newPgTest(t)

	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "bookings_active_slot_idx"})

	_, err := repo.CreateBooking(context.Background(), uuid.New(), uuid.New(), Day(time.Now()), 10*60)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetActiveBookingForSlotNoRows(t *testing.T) {
	mock, repo := newPgTest(t)

	mock.ExpectQuery(`SELECT ` + bookingCols).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetActiveBookingForSlot(context.Background(), uuid.New(), Day(time.Now()), 10*60)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCancelBookingAlreadyTerminal(t *testing.T) {
	mock, repo := newPgTest(t)

	// Conditional update matched zero rows.
	mock.ExpectQuery(`UPDATE bookings`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.CancelBooking(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCompleteBooking(t *testing.T) {
	mock, repo := newPgTest(t)

	bookingID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE bookings`).
		WithArgs(bookingID).
		WillReturnRows(bookingRow(bookingID, uuid.New(), uuid.New(), Day(now), 10*60, StatusCompleted))
	mock.ExpectQuery(`INSERT INTO treatment_records`).
		WithArgs(pgxmock.AnyArg(), bookingID, "flu", (*string)(nil), (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "booking_id", "diagnosis", "prescription", "notes", "recorded_at", "updated_at",
		}).AddRow(uuid.New(), bookingID, "flu", nil, nil, now, now))
	mock.ExpectCommit()
	mock.ExpectRollback()

	booking, record, err := repo.CompleteBooking(context.Background(), bookingID, TreatmentRecord{
		BookingID: bookingID,
		Diagnosis: "flu",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, booking.Status)
	assert.Equal(t, bookingID, record.BookingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCompleteBookingNotActive(t *testing.T) {
	mock, repo := newPgTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE bookings`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := repo.CompleteBooking(context.Background(), uuid.New(), TreatmentRecord{Diagnosis: "flu"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCompleteBookingDuplicateRecord(t *testing.T) {
	mock, repo := newPgTest(t)

	bookingID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE bookings`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(bookingRow(bookingID, uuid.New(), uuid.New(), Day(time.Now()), 10*60, StatusCompleted))
	mock.ExpectQuery(`INSERT INTO treatment_records`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "treatment_records_booking_id_key"})
	mock.ExpectRollback()

	_, _, err := repo.CompleteBooking(context.Background(), bookingID, TreatmentRecord{Diagnosis: "flu"})
	assert.ErrorIs(t, err, ErrDuplicateRecord)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertTreatmentRecordDuplicate(t *testing.T) {
	mock, repo := newPgTest(t)

	mock.ExpectQuery(`INSERT INTO treatment_records`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "treatment_records_booking_id_key"})

	_, err := repo.InsertTreatmentRecord(context.Background(), TreatmentRecord{
		BookingID: uuid.New(),
		Diagnosis: "flu",
	})
	assert.ErrorIs(t, err, ErrDuplicateRecord)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDeleteAvailability(t *testing.T) {
	mock, repo := newPgTest(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM availability_slots`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.DeleteAvailability(context.Background(), id))

	mock.ExpectExec(`DELETE FROM availability_slots`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.DeleteAvailability(context.Background(), id), ErrSlotNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDeleteAvailabilityBefore(t *testing.T) {
	mock, repo := newPgTest(t)
	cutoff := Day(time.Now())

	mock.ExpectExec(`DELETE FROM availability_slots`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	n, err := repo.DeleteAvailabilityBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertEvent(t *testing.T) {
	mock, repo := newPgTest(t)

	bookingID := uuid.New()
	now := time.Now()

	mock.ExpectExec(`INSERT INTO event_logs`).
		WithArgs(EventBookingCancelled, &bookingID, []byte(`{}`), &now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.InsertEvent(context.Background(), EventLog{
		EventType: EventBookingCancelled,
		BookingID: &bookingID,
		Payload:   []byte(`{}`),
		CreatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListBookingsForDoctorFilterArgs(t *testing.T) {
	mock, repo := newPgTest(t)

	doctorID := uuid.New()
	status := StatusBooked
	from := Day(time.Now())
	to := from.AddDate(0, 0, 7)

	mock.ExpectQuery(`AND b\.status = \$2 AND b\.booking_date >= \$3 AND b\.booking_date <= \$4`).
		WithArgs(doctorID, status, from, to).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "doctor_id", "booking_date", "booking_time",
			"status", "cancellation_reason", "created_at", "updated_at",
			"patient_name", "doctor_name", "doctor_specialty",
		}))

	got, err := repo.ListBookingsForDoctor(context.Background(), doctorID, &status, &from, &to)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
