package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	StatusBooked    BookingStatus = "booked"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func ValidStatus(s string) bool {
	switch BookingStatus(s) {
	case StatusBooked, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func ValidRole(r string) bool {
	switch Role(r) {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Actor identifies who is performing a mutating operation. Upstream
// authentication resolves it; the service never reads it from ambient state.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilitySlot is one contiguous window a doctor has opened for bookings
// on a given date. The window is half-open: [StartTime, EndTime).
type AvailabilitySlot struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	Date        time.Time
	StartTime   TimeOfDay
	EndTime     TimeOfDay
	IsAvailable bool
	CreatedAt   time.Time
}

// Booking occupies a single point-in-time slot for a doctor. At most one
// booking with status "booked" may exist per (doctor, date, time).
type Booking struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	DoctorID           uuid.UUID
	Date               time.Time
	Time               TimeOfDay
	Status             BookingStatus
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TreatmentRecord is the medical record tied 1:1 to a completed booking.
type TreatmentRecord struct {
	ID           uuid.UUID
	BookingID    uuid.UUID
	Diagnosis    string
	Prescription *string
	Notes        *string
	RecordedAt   time.Time
	UpdatedAt    time.Time
}

// EventLog is an audit row written on booking transitions. Writes are best
// effort and never fail the transition itself.
type EventLog struct {
	ID        int64
	EventType string
	BookingID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

// BookingDetail is a booking hydrated with patient and doctor context for
// list and detail views.
type BookingDetail struct {
	Booking
	PatientName     string
	DoctorName      string
	DoctorSpecialty *string
}

// TreatmentHistoryEntry is a treatment record joined with its booking and
// doctor context, as shown in a patient's history.
type TreatmentHistoryEntry struct {
	TreatmentRecord
	BookingDate time.Time
	BookingTime TimeOfDay
	DoctorName  string
}

// DateLayout is the wire format for schedule dates.
const DateLayout = "2006-01-02"

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
