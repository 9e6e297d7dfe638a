package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/hospital-scheduling/internal/observability/metrics"
	redisclient "github.com/carelink/hospital-scheduling/internal/redis"
)

const (
	EventBookingCreated   = "BOOKING_CREATED"
	EventBookingCancelled = "BOOKING_CANCELLED"
	EventBookingCompleted = "BOOKING_COMPLETED"
)

// Service is the only writer of booking state. Every mutation takes an
// explicit actor or doctor identity; nothing is read from ambient state.
type Service struct {
	repo    Repository
	locker  redisclient.Locker
	metrics *metrics.SchedulingMetrics
}

func NewService(repo Repository, locker redisclient.Locker, m *metrics.SchedulingMetrics) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		metrics: m,
	}
}

func slotLockKey(doctorID uuid.UUID, date time.Time, at TimeOfDay) string {
	return fmt.Sprintf("lock:slot:%s:%s:%s", doctorID, date.Format(DateLayout), at)
}

// Book reserves the (doctor, date, time) slot for a patient. The conflict
// check and the insert run under a per slot lock so concurrent requests for
// the same slot cannot both succeed; the partial unique index on active
// bookings closes the race even if the lock lease expires mid flight.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, at TimeOfDay) (*Booking, error) {
	if !at.Valid() {
		return nil, ErrSlotUnavailable
	}
	date = Day(date)

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	var created *Booking

	err := s.locker.WithLock(ctx, slotLockKey(doctorID, date, at), func(lockCtx context.Context) error {
		windows, err := s.repo.WindowsFor(lockCtx, doctorID, date)
		if err != nil {
			return fmt.Errorf("load availability windows: %w", err)
		}

		active, err := s.repo.GetActiveBookingForSlot(lockCtx, doctorID, date, at)
		if err != nil && !errors.Is(err, ErrBookingNotFound) {
			return fmt.Errorf("check active booking: %w", err)
		}

		if !IsBookable(windows, at, active) {
			return ErrSlotUnavailable
		}

		created, err = s.repo.CreateBooking(lockCtx, patientID, doctorID, date, at)
		if err != nil {
			return err
		}

		s.logEvent(lockCtx, created.ID, EventBookingCreated, map[string]any{
			"patient_id": patientID,
			"doctor_id":  doctorID,
			"date":       date.Format(DateLayout),
			"time":       at.String(),
		})
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			s.metrics.ObserveBooking("contended")
			return nil, ErrSlotContended
		case errors.Is(err, ErrSlotUnavailable):
			s.metrics.ObserveBooking("conflict")
			return nil, err
		default:
			s.metrics.ObserveBooking("error")
			return nil, err
		}
	}

	s.metrics.ObserveBooking("booked")
	return created, nil
}

// Cancel moves an active booking to cancelled. Allowed for the owning
// patient, the assigned doctor, and admins. Cancelling a terminal booking
// fails with ErrInvalidTransition and changes nothing.
func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID, actor Actor, reason *string) (*Booking, error) {
	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}

	if !canCancel(actor, booking) {
		return nil, ErrForbidden
	}
	if booking.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	cancelled, err := s.repo.CancelBooking(ctx, bookingID, reason)
	if err != nil {
		// The status flip is conditional on "booked"; losing that race means
		// someone else reached a terminal state first.
		if errors.Is(err, ErrBookingNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	payload := map[string]any{
		"actor_id":   actor.ID,
		"actor_role": actor.Role,
	}
	if reason != nil {
		payload["reason"] = *reason
	}
	s.logEvent(ctx, cancelled.ID, EventBookingCancelled, payload)

	s.metrics.ObserveTransition(string(StatusCancelled))
	return cancelled, nil
}

func canCancel(actor Actor, b *Booking) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RolePatient:
		return actor.ID == b.PatientID
	case RoleDoctor:
		return actor.ID == b.DoctorID
	}
	return false
}

// Complete flips an active booking to completed and creates its treatment
// record in one transaction. Only the assigned doctor may complete.
func (s *Service) Complete(ctx context.Context, bookingID, doctorID uuid.UUID, diagnosis string, prescription, notes *string) (*Booking, *TreatmentRecord, error) {
	if strings.TrimSpace(diagnosis) == "" {
		return nil, nil, ErrDiagnosisRequired
	}

	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load booking: %w", err)
	}

	if booking.DoctorID != doctorID {
		return nil, nil, ErrForbidden
	}
	if booking.Status != StatusBooked {
		return nil, nil, ErrInvalidTransition
	}

	completed, record, err := s.repo.CompleteBooking(ctx, bookingID, TreatmentRecord{
		BookingID:    bookingID,
		Diagnosis:    diagnosis,
		Prescription: prescription,
		Notes:        notes,
	})
	if err != nil {
		return nil, nil, err
	}

	s.logEvent(ctx, completed.ID, EventBookingCompleted, map[string]any{
		"doctor_id": doctorID,
		"record_id": record.ID,
	})

	s.metrics.ObserveTransition(string(StatusCompleted))
	return completed, record, nil
}

// logEvent writes an audit row for a booking transition. Failures are logged
// and swallowed; the transition has already committed.
func (s *Service) logEvent(ctx context.Context, bookingID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	id := bookingID

	ev := EventLog{
		EventType: eventType,
		BookingID: &id,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for booking %s: %v", eventType, bookingID, err)
	}
}

// Get retrieves a fully hydrated booking by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*BookingDetail, error) {
	detail, err := s.repo.GetBookingDetail(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return detail, nil
}

// ListForPatient returns a patient's bookings, newest first (history view).
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, status *BookingStatus) ([]BookingDetail, error) {
	bookings, err := s.repo.ListBookingsForPatient(ctx, patientID, status)
	if err != nil {
		return nil, fmt.Errorf("list bookings for patient: %w", err)
	}
	return bookings, nil
}

// ListForDoctor returns a doctor's bookings in schedule order, optionally
// restricted by status and date range.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, status *BookingStatus, from, to *time.Time) ([]BookingDetail, error) {
	bookings, err := s.repo.ListBookingsForDoctor(ctx, doctorID, status, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings for doctor: %w", err)
	}
	return bookings, nil
}
