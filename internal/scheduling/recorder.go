package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Recorder creates and retrieves treatment records. Records are
// immutable-by-default; Amend is policy gated.
type Recorder struct {
	repo       Repository
	allowAmend bool
}

func NewRecorder(repo Repository, allowAmend bool) *Recorder {
	return &Recorder{
		repo:       repo,
		allowAmend: allowAmend,
	}
}

// Record creates the treatment record for a booking. Complete() is the normal
// entry point; the unique index on booking_id defends the 1:1 invariant here
// regardless of who calls.
func (r *Recorder) Record(ctx context.Context, bookingID uuid.UUID, diagnosis string, prescription, notes *string) (*TreatmentRecord, error) {
	if strings.TrimSpace(diagnosis) == "" {
		return nil, ErrDiagnosisRequired
	}

	if _, err := r.repo.GetBookingByID(ctx, bookingID); err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}

	rec, err := r.repo.InsertTreatmentRecord(ctx, TreatmentRecord{
		BookingID:    bookingID,
		Diagnosis:    diagnosis,
		Prescription: prescription,
		Notes:        notes,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("insert treatment record: %w", err)
	}
	return rec, nil
}

// HistoryForPatient returns the patient's treatment records with booking and
// doctor context, most recent first.
func (r *Recorder) HistoryForPatient(ctx context.Context, patientID uuid.UUID) ([]TreatmentHistoryEntry, error) {
	history, err := r.repo.ListTreatmentHistory(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list treatment history: %w", err)
	}
	return history, nil
}

// Amend updates record fields after completion. Only doctors and admins, and
// only when the deployment enables amendments.
func (r *Recorder) Amend(ctx context.Context, recordID uuid.UUID, actor Actor, diagnosis, prescription, notes *string) (*TreatmentRecord, error) {
	if !r.allowAmend {
		return nil, ErrAmendDisabled
	}
	if actor.Role != RoleDoctor && actor.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	if diagnosis != nil && strings.TrimSpace(*diagnosis) == "" {
		return nil, ErrDiagnosisRequired
	}

	rec, err := r.repo.UpdateTreatmentRecord(ctx, recordID, diagnosis, prescription, notes)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("amend treatment record: %w", err)
	}
	return rec, nil
}
