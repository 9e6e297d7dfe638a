package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AvailabilityStore manages doctor-declared open windows. Retracting a window
// never cascades into existing bookings; it only stops new ones.
type AvailabilityStore struct {
	repo        Repository
	horizonDays int
}

func NewAvailabilityStore(repo Repository, horizonDays int) *AvailabilityStore {
	return &AvailabilityStore{
		repo:        repo,
		horizonDays: horizonDays,
	}
}

// Declare opens a window for bookings on the given date. Dates in the past or
// beyond the rolling horizon are rejected.
func (s *AvailabilityStore) Declare(ctx context.Context, doctorID uuid.UUID, date time.Time, start, end TimeOfDay) (*AvailabilitySlot, error) {
	if !start.Valid() || !end.Valid() || !start.Before(end) {
		return nil, ErrInvalidWindow
	}

	date = Day(date)
	today := Day(time.Now())
	if date.Before(today) || date.After(today.AddDate(0, 0, s.horizonDays)) {
		return nil, ErrDateOutOfPolicy
	}

	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	slot, err := s.repo.CreateAvailability(ctx, AvailabilitySlot{
		DoctorID:    doctorID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create availability: %w", err)
	}
	return slot, nil
}

// List returns the doctor's windows in [from, to], ordered by date then start.
func (s *AvailabilityStore) List(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]AvailabilitySlot, error) {
	slots, err := s.repo.ListAvailability(ctx, doctorID, Day(from), Day(to))
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return slots, nil
}

// Retract removes a declared window. Confirmed bookings against it stay.
func (s *AvailabilityStore) Retract(ctx context.Context, slotID uuid.UUID) error {
	if err := s.repo.DeleteAvailability(ctx, slotID); err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return err
		}
		return fmt.Errorf("retract availability: %w", err)
	}
	return nil
}

// PurgeExpired removes windows whose date has passed. Housekeeping only; the
// purge worker calls this on an interval.
func (s *AvailabilityStore) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAvailabilityBefore(ctx, Day(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("purge expired availability: %w", err)
	}
	return n, nil
}
