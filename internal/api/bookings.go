package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carelink/hospital-scheduling/internal/scheduling"
)

func createBookingHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		date, err := time.Parse(scheduling.DateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		at, err := scheduling.ParseTimeOfDay(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "time must be HH:MM")
			return
		}

		booking, err := svc.Book(r.Context(), patientID, doctorID, date, at)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(booking))
	}
}

func getBookingHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingDetailResponse(*detail))
	}
}

func cancelBookingHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor", err.Error())
			return
		}

		var req CancelBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		booking, err := svc.Cancel(r.Context(), id, actor, req.Reason)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(booking))
	}
}

func completeBookingHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor", err.Error())
			return
		}
		if actor.Role != scheduling.RoleDoctor {
			writeError(w, http.StatusForbidden, "forbidden", "only doctors may complete bookings")
			return
		}

		var req CompleteBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		booking, record, err := svc.Complete(r.Context(), id, actor.ID, req.Diagnosis, req.Prescription, req.Notes)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CompleteBookingResponse{
			Booking: toBookingResponse(booking),
			Record:  toRecordResponse(record),
		})
	}
}

func listPatientBookingsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		status, ok := statusFilter(w, r)
		if !ok {
			return
		}

		bookings, err := svc.ListForPatient(r.Context(), patientID, status)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingDetailResponses(bookings))
	}
}

func listDoctorBookingsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		status, ok := statusFilter(w, r)
		if !ok {
			return
		}

		var from, to *time.Time
		if v := r.URL.Query().Get("from"); v != "" {
			d, err := time.Parse(scheduling.DateLayout, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
				return
			}
			from = &d
		}
		if v := r.URL.Query().Get("to"); v != "" {
			d, err := time.Parse(scheduling.DateLayout, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
				return
			}
			to = &d
		}

		bookings, err := svc.ListForDoctor(r.Context(), doctorID, status, from, to)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingDetailResponses(bookings))
	}
}

func statusFilter(w http.ResponseWriter, r *http.Request) (*scheduling.BookingStatus, bool) {
	v := r.URL.Query().Get("status")
	if v == "" {
		return nil, true
	}
	if !scheduling.ValidStatus(v) {
		writeError(w, http.StatusBadRequest, "invalid_status", "status must be booked, completed or cancelled")
		return nil, false
	}
	s := scheduling.BookingStatus(v)
	return &s, true
}

func toBookingDetailResponses(bookings []scheduling.BookingDetail) []BookingDetailResponse {
	resp := make([]BookingDetailResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toBookingDetailResponse(b))
	}
	return resp
}
