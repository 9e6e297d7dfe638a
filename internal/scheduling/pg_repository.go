package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies it
// in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

// uniqueViolation codes from Postgres.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// Scan helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanSlot(row pgx.Row) (*AvailabilitySlot, error) {
	var s AvailabilitySlot
	var start, end pgtype.Time

	err := row.Scan(&s.ID, &s.DoctorID, &s.Date, &start, &end, &s.IsAvailable, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.StartTime = TimeOfDayFromPg(start)
	s.EndTime = TimeOfDayFromPg(end)
	return &s, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var at pgtype.Time

	err := row.Scan(
		&b.ID,
		&b.PatientID,
		&b.DoctorID,
		&b.Date,
		&at,
		&b.Status,
		&b.CancellationReason,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	b.Time = TimeOfDayFromPg(at)
	return &b, nil
}

func scanBookingDetail(row pgx.Row) (*BookingDetail, error) {
	var d BookingDetail
	var at pgtype.Time

	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&d.DoctorID,
		&d.Date,
		&at,
		&d.Status,
		&d.CancellationReason,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.PatientName,
		&d.DoctorName,
		&d.DoctorSpecialty,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	d.Time = TimeOfDayFromPg(at)
	return &d, nil
}

func scanRecord(row pgx.Row) (*TreatmentRecord, error) {
	var r TreatmentRecord
	err := row.Scan(&r.ID, &r.BookingID, &r.Diagnosis, &r.Prescription, &r.Notes, &r.RecordedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &r, nil
}

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) CreateAvailability(ctx context.Context, slot AvailabilitySlot) (*AvailabilitySlot, error) {
	id := uuid.New()

	row := r.db.QueryRow(ctx, `
		INSERT INTO availability_slots (id, doctor_id, slot_date, start_time, end_time, is_available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, doctor_id, slot_date, start_time, end_time, is_available, created_at
	`, id, slot.DoctorID, slot.Date, slot.StartTime.PgTime(), slot.EndTime.PgTime(), slot.IsAvailable)

	return scanSlot(row)
}

func (r *PgRepository) ListAvailability(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]AvailabilitySlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, doctor_id, slot_date, start_time, end_time, is_available, created_at
		FROM availability_slots
		WHERE doctor_id = $1
		  AND slot_date >= $2
		  AND slot_date <= $3
		ORDER BY slot_date, start_time
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSlots(rows)
}

func (r *PgRepository) WindowsFor(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]AvailabilitySlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, doctor_id, slot_date, start_time, end_time, is_available, created_at
		FROM availability_slots
		WHERE doctor_id = $1
		  AND slot_date = $2
		ORDER BY start_time
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]AvailabilitySlot, error) {
	var result []AvailabilitySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) DeleteAvailabilityBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE slot_date < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, booking_date, booking_time, status, cancellation_reason, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) GetActiveBookingForSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, at TimeOfDay) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, booking_date, booking_time, status, cancellation_reason, created_at, updated_at
		FROM bookings
		WHERE doctor_id = $1
		  AND booking_date = $2
		  AND booking_time = $3
		  AND status = 'booked'
	`, doctorID, date, at.PgTime())
	return scanBooking(row)
}

func (r *PgRepository) CreateBooking(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, at TimeOfDay) (*Booking, error) {
	id := uuid.New()

	row := r.db.QueryRow(ctx, `
		INSERT INTO bookings (id, patient_id, doctor_id, booking_date, booking_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'booked', now(), now())
		RETURNING id, patient_id, doctor_id, booking_date, booking_time, status, cancellation_reason, created_at, updated_at
	`, id, patientID, doctorID, date, at.PgTime())

	b, err := scanBooking(row)
	if err != nil {
		// A concurrent insert that slipped past the lock lands on the
		// partial unique index instead of double-booking.
		if isUniqueViolation(err, "bookings_active_slot_idx") {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}
	return b, nil
}

func (r *PgRepository) CancelBooking(ctx context.Context, id uuid.UUID, reason *string) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
		    cancellation_reason = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'booked'
		RETURNING id, patient_id, doctor_id, booking_date, booking_time, status, cancellation_reason, created_at, updated_at
	`, id, reason)
	return scanBooking(row)
}

// CompleteBooking flips an active booking to completed and inserts its
// treatment record in one transaction, so neither exists without the other.
func (r *PgRepository) CompleteBooking(ctx context.Context, id uuid.UUID, rec TreatmentRecord) (*Booking, *TreatmentRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin complete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'completed',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'booked'
		RETURNING id, patient_id, doctor_id, booking_date, booking_time, status, cancellation_reason, created_at, updated_at
	`, id)

	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, nil, ErrInvalidTransition
		}
		return nil, nil, err
	}

	recID := uuid.New()
	recRow := tx.QueryRow(ctx, `
		INSERT INTO treatment_records (id, booking_id, diagnosis, prescription, notes, recorded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, booking_id, diagnosis, prescription, notes, recorded_at, updated_at
	`, recID, id, rec.Diagnosis, rec.Prescription, rec.Notes)

	record, err := scanRecord(recRow)
	if err != nil {
		if isUniqueViolation(err, "treatment_records_booking_id_key") {
			return nil, nil, ErrDuplicateRecord
		}
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit complete tx: %w", err)
	}

	return booking, record, nil
}

const bookingDetailColumns = `
	b.id, b.patient_id, b.doctor_id, b.booking_date, b.booking_time, b.status,
	b.cancellation_reason, b.created_at, b.updated_at,
	p.name, d.name, d.specialty
`

func (r *PgRepository) GetBookingDetail(ctx context.Context, id uuid.UUID) (*BookingDetail, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+bookingDetailColumns+`
		FROM bookings b
		JOIN patients p ON p.id = b.patient_id
		JOIN doctors d ON d.id = b.doctor_id
		WHERE b.id = $1
	`, id)
	return scanBookingDetail(row)
}

func (r *PgRepository) ListBookingsForPatient(ctx context.Context, patientID uuid.UUID, status *BookingStatus) ([]BookingDetail, error) {
	query := `
		SELECT ` + bookingDetailColumns + `
		FROM bookings b
		JOIN patients p ON p.id = b.patient_id
		JOIN doctors d ON d.id = b.doctor_id
		WHERE b.patient_id = $1
	`
	args := []any{patientID}

	if status != nil {
		query += ` AND b.status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY b.booking_date DESC, b.booking_time DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookingDetails(rows)
}

func (r *PgRepository) ListBookingsForDoctor(ctx context.Context, doctorID uuid.UUID, status *BookingStatus, from, to *time.Time) ([]BookingDetail, error) {
	query := `
		SELECT ` + bookingDetailColumns + `
		FROM bookings b
		JOIN patients p ON p.id = b.patient_id
		JOIN doctors d ON d.id = b.doctor_id
		WHERE b.doctor_id = $1
	`
	args := []any{doctorID}

	if status != nil {
		args = append(args, *status)
		query += fmt.Sprintf(` AND b.status = $%d`, len(args))
	}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(` AND b.booking_date >= $%d`, len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(` AND b.booking_date <= $%d`, len(args))
	}
	query += ` ORDER BY b.booking_date, b.booking_time`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookingDetails(rows)
}

func collectBookingDetails(rows pgx.Rows) ([]BookingDetail, error) {
	var result []BookingDetail
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertTreatmentRecord(ctx context.Context, rec TreatmentRecord) (*TreatmentRecord, error) {
	id := uuid.New()

	row := r.db.QueryRow(ctx, `
		INSERT INTO treatment_records (id, booking_id, diagnosis, prescription, notes, recorded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, booking_id, diagnosis, prescription, notes, recorded_at, updated_at
	`, id, rec.BookingID, rec.Diagnosis, rec.Prescription, rec.Notes)

	record, err := scanRecord(row)
	if err != nil {
		if isUniqueViolation(err, "treatment_records_booking_id_key") {
			return nil, ErrDuplicateRecord
		}
		return nil, err
	}
	return record, nil
}

func (r *PgRepository) GetTreatmentRecordByID(ctx context.Context, id uuid.UUID) (*TreatmentRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, booking_id, diagnosis, prescription, notes, recorded_at, updated_at
		FROM treatment_records
		WHERE id = $1
	`, id)
	return scanRecord(row)
}

func (r *PgRepository) UpdateTreatmentRecord(ctx context.Context, id uuid.UUID, diagnosis, prescription, notes *string) (*TreatmentRecord, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE treatment_records
		SET diagnosis = COALESCE($2, diagnosis),
		    prescription = COALESCE($3, prescription),
		    notes = COALESCE($4, notes),
		    updated_at = now()
		WHERE id = $1
		RETURNING id, booking_id, diagnosis, prescription, notes, recorded_at, updated_at
	`, id, diagnosis, prescription, notes)
	return scanRecord(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, booking_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.BookingID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (r *PgRepository) ListTreatmentHistory(ctx context.Context, patientID uuid.UUID) ([]TreatmentHistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.booking_id, t.diagnosis, t.prescription, t.notes, t.recorded_at, t.updated_at,
		       b.booking_date, b.booking_time, d.name
		FROM treatment_records t
		JOIN bookings b ON b.id = t.booking_id
		JOIN doctors d ON d.id = b.doctor_id
		WHERE b.patient_id = $1
		ORDER BY t.recorded_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TreatmentHistoryEntry
	for rows.Next() {
		var e TreatmentHistoryEntry
		var at pgtype.Time

		err := rows.Scan(
			&e.ID, &e.BookingID, &e.Diagnosis, &e.Prescription, &e.Notes, &e.RecordedAt, &e.UpdatedAt,
			&e.BookingDate, &at, &e.DoctorName,
		)
		if err != nil {
			return nil, err
		}
		e.BookingTime = TimeOfDayFromPg(at)
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
