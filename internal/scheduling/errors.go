package scheduling

import "errors"

var (
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrSlotNotFound    = errors.New("availability slot not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrRecordNotFound  = errors.New("treatment record not found")

	// Availability declaration failures.
	ErrInvalidWindow   = errors.New("availability window start must be before end")
	ErrDateOutOfPolicy = errors.New("date is in the past or beyond the booking horizon")

	// Booking failures. ErrSlotUnavailable covers both "outside any declared
	// window" and "already taken"; ErrSlotContended means another request
	// holds the slot lock right now and the caller should retry.
	ErrSlotUnavailable = errors.New("slot is not available for booking")
	ErrSlotContended   = errors.New("slot is currently being booked, please retry")

	ErrInvalidTransition = errors.New("booking status does not allow this transition")
	ErrForbidden         = errors.New("actor may not perform this operation")
	ErrDiagnosisRequired = errors.New("diagnosis is required")
	ErrDuplicateRecord   = errors.New("treatment record already exists for this booking")
	ErrAmendDisabled     = errors.New("treatment record amendments are disabled")
)
