package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// ErrorCode identifies a booking failure in a form the front end can key
// presentation copy off. Raw codes are never shown to end users.
type ErrorCode string

const (
	CodeMissingDateTime    ErrorCode = "MISSING_DATE_TIME"
	CodeMissingReason      ErrorCode = "MISSING_REASON"
	CodeOutOfAdvanceWindow ErrorCode = "OUT_OF_ADVANCE_WINDOW"
	CodeSlotUnavailable    ErrorCode = "SLOT_UNAVAILABLE"

	// Codes surfaced from the booking endpoint and passed through unchanged.
	CodeDoctorNotFound  ErrorCode = "DOCTOR_NOT_FOUND"
	CodeInvalidDoctorID ErrorCode = "INVALID_DOCTOR_ID"
)

// ValidationError is a client-correctable booking failure. It is reported
// inline at the call site and never logged as an incident.
type ValidationError struct {
	Code ErrorCode
}

func (e *ValidationError) Error() string { return string(e.Code) }

// BookingRequest is a prospective booking as assembled by the wizard.
type BookingRequest struct {
	DoctorID         uuid.UUID        `json:"doctor_id"`
	PatientID        uuid.UUID        `json:"patient_id"`
	Date             string           `json:"date"`
	StartTime        string           `json:"time"`
	ConsultationType ConsultationType `json:"consultation_type"`
	ReasonForVisit   string           `json:"reason_for_visit"`
}

// ValidateBookingRequest applies the pre-submission checks in order and
// returns the first failure as a *ValidationError. availability is the most
// recently fetched slot snapshot for the requested date; it is a
// defense-in-depth check only, the authoritative conflict check being the
// write-time insert.
func ValidateBookingRequest(req BookingRequest, availability []SlotOption, settings ConsultationSettings, today string) error {
	if req.Date == "" || req.StartTime == "" {
		return &ValidationError{Code: CodeMissingDateTime}
	}
	if NormalizeReason(req.ReasonForVisit) == "" {
		return &ValidationError{Code: CodeMissingReason}
	}

	// A date that does not parse can never fall inside the advance window.
	if _, err := time.Parse(DateLayout, req.Date); err != nil {
		return &ValidationError{Code: CodeOutOfAdvanceWindow}
	}

	todayDay, err := time.Parse(DateLayout, today)
	if err == nil {
		lastBookable := todayDay.AddDate(0, 0, settings.AdvanceBookingDays).Format(DateLayout)
		if req.Date < today || req.Date > lastBookable {
			return &ValidationError{Code: CodeOutOfAdvanceWindow}
		}
	}

	for _, opt := range availability {
		if opt.Time == req.StartTime {
			if !opt.Available {
				return &ValidationError{Code: CodeSlotUnavailable}
			}
			return nil
		}
	}
	// The requested time is not a candidate slot at all.
	return &ValidationError{Code: CodeSlotUnavailable}
}

// Presentation is the (title, message, primary action) triple shown to the
// user for a failure. Every surfaced error code maps to one.
type Presentation struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

var presentations = map[ErrorCode]Presentation{
	CodeMissingDateTime: {
		Title:   "Incomplete selection",
		Message: "Please pick both a date and a time for your appointment.",
		Action:  "Choose a slot",
	},
	CodeMissingReason: {
		Title:   "Reason required",
		Message: "Please tell the doctor briefly what the visit is about.",
		Action:  "Add a reason",
	},
	CodeOutOfAdvanceWindow: {
		Title:   "Date not bookable",
		Message: "Appointments can only be booked from today up to the doctor's advance booking limit.",
		Action:  "Pick another date",
	},
	CodeSlotUnavailable: {
		Title:   "Slot no longer available",
		Message: "That time was just taken. Availability has been refreshed, please pick another slot.",
		Action:  "Refresh slots",
	},
	CodeDoctorNotFound: {
		Title:   "Doctor not found",
		Message: "We couldn't find that doctor's schedule.",
		Action:  "Back to search",
	},
	CodeInvalidDoctorID: {
		Title:   "Doctor not found",
		Message: "That doctor link looks broken.",
		Action:  "Back to search",
	},
}

// Present maps an error code to its user-facing presentation. Unknown codes
// get a generic retryable message rather than leaking the raw code.
func Present(code ErrorCode) Presentation {
	if p, ok := presentations[code]; ok {
		return p
	}
	return Presentation{
		Title:   "Something went wrong",
		Message: "Please try again in a moment.",
		Action:  "Retry",
	}
}
