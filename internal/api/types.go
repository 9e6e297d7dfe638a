package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/carelink/hospital-scheduling/internal/scheduling"
)

type DeclareAvailabilityRequest struct {
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type AvailabilitySlotResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	Date        string    `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
}

func toSlotResponse(s scheduling.AvailabilitySlot) AvailabilitySlotResponse {
	return AvailabilitySlotResponse{
		ID:          s.ID,
		DoctorID:    s.DoctorID,
		Date:        s.Date.Format(scheduling.DateLayout),
		StartTime:   s.StartTime.String(),
		EndTime:     s.EndTime.String(),
		IsAvailable: s.IsAvailable,
	}
}

type CreateBookingRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type CompleteBookingRequest struct {
	Diagnosis    string  `json:"diagnosis"`
	Prescription *string `json:"prescription,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

type BookingResponse struct {
	ID                 uuid.UUID `json:"id"`
	PatientID          uuid.UUID `json:"patient_id"`
	DoctorID           uuid.UUID `json:"doctor_id"`
	Date               string    `json:"date"`
	Time               string    `json:"time"`
	Status             string    `json:"status"`
	CancellationReason *string   `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func toBookingResponse(b *scheduling.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		PatientID:          b.PatientID,
		DoctorID:           b.DoctorID,
		Date:               b.Date.Format(scheduling.DateLayout),
		Time:               b.Time.String(),
		Status:             string(b.Status),
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
	}
}

type BookingDetailResponse struct {
	BookingResponse
	PatientName     string  `json:"patient_name"`
	DoctorName      string  `json:"doctor_name"`
	DoctorSpecialty *string `json:"doctor_specialty,omitempty"`
}

func toBookingDetailResponse(d scheduling.BookingDetail) BookingDetailResponse {
	return BookingDetailResponse{
		BookingResponse: toBookingResponse(&d.Booking),
		PatientName:     d.PatientName,
		DoctorName:      d.DoctorName,
		DoctorSpecialty: d.DoctorSpecialty,
	}
}

type TreatmentRecordResponse struct {
	ID           uuid.UUID `json:"id"`
	BookingID    uuid.UUID `json:"booking_id"`
	Diagnosis    string    `json:"diagnosis"`
	Prescription *string   `json:"prescription,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

func toRecordResponse(r *scheduling.TreatmentRecord) TreatmentRecordResponse {
	return TreatmentRecordResponse{
		ID:           r.ID,
		BookingID:    r.BookingID,
		Diagnosis:    r.Diagnosis,
		Prescription: r.Prescription,
		Notes:        r.Notes,
		RecordedAt:   r.RecordedAt,
	}
}

type CompleteBookingResponse struct {
	Booking BookingResponse         `json:"booking"`
	Record  TreatmentRecordResponse `json:"record"`
}

type TreatmentHistoryEntryResponse struct {
	TreatmentRecordResponse
	BookingDate string `json:"booking_date"`
	BookingTime string `json:"booking_time"`
	DoctorName  string `json:"doctor_name"`
}

type AmendRecordRequest struct {
	Diagnosis    *string `json:"diagnosis,omitempty"`
	Prescription *string `json:"prescription,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
