package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the scheduling services.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Availability store
	CreateAvailability(ctx context.Context, slot AvailabilitySlot) (*AvailabilitySlot, error)
	ListAvailability(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]AvailabilitySlot, error)
	WindowsFor(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]AvailabilitySlot, error)
	DeleteAvailability(ctx context.Context, id uuid.UUID) error
	DeleteAvailabilityBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Booking ledger. CreateBooking must surface the active-slot uniqueness
	// violation as ErrSlotUnavailable; CancelBooking and CompleteBooking are
	// conditional on status 'booked' and fail when no row matches.
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetActiveBookingForSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, at TimeOfDay) (*Booking, error)
	CreateBooking(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, at TimeOfDay) (*Booking, error)
	CancelBooking(ctx context.Context, id uuid.UUID, reason *string) (*Booking, error)
	CompleteBooking(ctx context.Context, id uuid.UUID, rec TreatmentRecord) (*Booking, *TreatmentRecord, error)
	GetBookingDetail(ctx context.Context, id uuid.UUID) (*BookingDetail, error)
	ListBookingsForPatient(ctx context.Context, patientID uuid.UUID, status *BookingStatus) ([]BookingDetail, error)
	ListBookingsForDoctor(ctx context.Context, doctorID uuid.UUID, status *BookingStatus, from, to *time.Time) ([]BookingDetail, error)

	// Treatment records
	InsertTreatmentRecord(ctx context.Context, rec TreatmentRecord) (*TreatmentRecord, error)
	GetTreatmentRecordByID(ctx context.Context, id uuid.UUID) (*TreatmentRecord, error)
	UpdateTreatmentRecord(ctx context.Context, id uuid.UUID, diagnosis, prescription, notes *string) (*TreatmentRecord, error)
	ListTreatmentHistory(ctx context.Context, patientID uuid.UUID) ([]TreatmentHistoryEntry, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
