package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carelink/hospital-scheduling/internal/scheduling"
)

func treatmentHistoryHandler(rec *scheduling.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		history, err := rec.HistoryForPatient(r.Context(), patientID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]TreatmentHistoryEntryResponse, 0, len(history))
		for _, e := range history {
			resp = append(resp, TreatmentHistoryEntryResponse{
				TreatmentRecordResponse: toRecordResponse(&e.TreatmentRecord),
				BookingDate:             e.BookingDate.Format(scheduling.DateLayout),
				BookingTime:             e.BookingTime.String(),
				DoctorName:              e.DoctorName,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func amendRecordHandler(rec *scheduling.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_record_id", "id must be a valid UUID")
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor", err.Error())
			return
		}

		var req AmendRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		record, err := rec.Amend(r.Context(), id, actor, req.Diagnosis, req.Prescription, req.Notes)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toRecordResponse(record))
	}
}
