package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format for times of day. Values are
	// zero-padded 24-hour strings, so lexicographic comparison orders them.
	ClockLayout = "15:04"
)

// TimeRange is a working interval within a single day,
// e.g. {Start: "09:00", End: "12:00"}.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Validate checks that both bounds parse as HH:MM and that Start < End.
func (r TimeRange) Validate() error {
	start, ok := ParseClock(r.Start)
	if !ok {
		return fmt.Errorf("invalid start time %q", r.Start)
	}
	end, ok := ParseClock(r.End)
	if !ok {
		return fmt.Errorf("invalid end time %q", r.End)
	}
	if start >= end {
		return fmt.Errorf("start %q must be before end %q", r.Start, r.End)
	}
	return nil
}

// DaySchedule is the resolved availability for one calendar day. Slot
// intervals keep their listed order; slot generation walks them in that order.
type DaySchedule struct {
	IsAvailable bool        `json:"is_available"`
	Slots       []TimeRange `json:"slots"`
}

// WeeklySchedule maps lowercase Monday-first day names ("monday".."sunday")
// to the recurring availability for that weekday.
type WeeklySchedule map[string]DaySchedule

// Validate checks day keys and every interval of an ingested weekly schedule.
func (w WeeklySchedule) Validate() error {
	for key, day := range w {
		if !IsDayKey(key) {
			return fmt.Errorf("unknown day key %q", key)
		}
		for _, r := range day.Slots {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}

// ScheduleException overrides the weekly schedule for exactly one date.
type ScheduleException struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	DoctorID    uuid.UUID   `db:"doctor_id" json:"doctor_id"`
	Date        string      `db:"exception_date" json:"date"`
	IsAvailable bool        `db:"is_available" json:"is_available"`
	Slots       []TimeRange `db:"slots" json:"slots"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

func (e ScheduleException) Validate() error {
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return fmt.Errorf("invalid exception date %q", e.Date)
	}
	for _, r := range e.Slots {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// VacationPeriod is an inclusive date range during which the doctor is fully
// unavailable. It overrides both the weekly schedule and any exceptions.
type VacationPeriod struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	StartDate string    `db:"start_date" json:"start_date"`
	EndDate   string    `db:"end_date" json:"end_date"`
	Reason    string    `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (v VacationPeriod) Validate() error {
	if _, err := time.Parse(DateLayout, v.StartDate); err != nil {
		return fmt.Errorf("invalid vacation start date %q", v.StartDate)
	}
	if _, err := time.Parse(DateLayout, v.EndDate); err != nil {
		return fmt.Errorf("invalid vacation end date %q", v.EndDate)
	}
	if v.StartDate > v.EndDate {
		return fmt.Errorf("vacation start %q is after end %q", v.StartDate, v.EndDate)
	}
	return nil
}

// Contains reports whether date falls inside the inclusive vacation range.
// Dates are zero-padded ISO strings, so string comparison is sufficient.
func (v VacationPeriod) Contains(date string) bool {
	return date >= v.StartDate && date <= v.EndDate
}

// ConsultationSettings holds per-doctor booking parameters.
type ConsultationSettings struct {
	DefaultDurationMins int `db:"default_duration_mins" json:"default_duration_mins"`
	BufferTimeMins      int `db:"buffer_time_mins" json:"buffer_time_mins"`
	MaxPatientsPerDay   int `db:"max_patients_per_day" json:"max_patients_per_day"`
	AdvanceBookingDays  int `db:"advance_booking_days" json:"advance_booking_days"`
}

// DefaultConsultationSettings returns the settings applied to doctors who
// have not configured their own.
func DefaultConsultationSettings() ConsultationSettings {
	return ConsultationSettings{
		DefaultDurationMins: 30,
		BufferTimeMins:      0,
		MaxPatientsPerDay:   0, // 0 disables the daily cap
		AdvanceBookingDays:  30,
	}
}

func (s ConsultationSettings) Validate() error {
	if s.DefaultDurationMins < 10 || s.DefaultDurationMins > 120 {
		return fmt.Errorf("default duration must be between 10 and 120 minutes, got %d", s.DefaultDurationMins)
	}
	if s.BufferTimeMins < 0 {
		return fmt.Errorf("buffer time must not be negative, got %d", s.BufferTimeMins)
	}
	if s.MaxPatientsPerDay < 0 {
		return fmt.Errorf("max patients per day must not be negative, got %d", s.MaxPatientsPerDay)
	}
	if s.AdvanceBookingDays < 1 {
		return fmt.Errorf("advance booking window must be at least 1 day, got %d", s.AdvanceBookingDays)
	}
	return nil
}

// DoctorSchedule is the persisted schedule aggregate for one doctor: the
// recurring weekly pattern plus consultation settings. Exceptions and
// vacations are stored separately and joined at resolution time.
type DoctorSchedule struct {
	DoctorID  uuid.UUID            `db:"doctor_id" json:"doctor_id"`
	Weekly    WeeklySchedule       `db:"weekly" json:"weekly"`
	Settings  ConsultationSettings `json:"settings"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt time.Time            `db:"updated_at" json:"updated_at"`
}

func (d *DoctorSchedule) Validate() error {
	if d.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if err := d.Weekly.Validate(); err != nil {
		return err
	}
	return d.Settings.Validate()
}

// ConsultationType distinguishes in-person visits from teleconsultations.
type ConsultationType string

const (
	TypeInPerson ConsultationType = "in_person"
	TypeVideo    ConsultationType = "video"
	TypePhone    ConsultationType = "phone"
)

func (t ConsultationType) IsValid() bool {
	switch t {
	case TypeInPerson, TypeVideo, TypePhone:
		return true
	}
	return false
}

// AppointmentStatus follows monotonic transitions only: once an appointment
// reaches a terminal state it never reverts.
//
//	pending   → confirmed | cancelled | rescheduled
//	confirmed → completed | cancelled | rescheduled
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

var statusTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:     {StatusConfirmed, StatusCancelled, StatusRescheduled},
	StatusConfirmed:   {StatusCompleted, StatusCancelled, StatusRescheduled},
	StatusCompleted:   {},
	StatusCancelled:   {},
	StatusRescheduled: {},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Releasing reports whether the status frees its slot for rebooking.
func (s AppointmentStatus) Releasing() bool {
	return s == StatusCancelled || s == StatusRescheduled
}

// Appointment maps to the appointment table. Rows are never deleted; only
// status transitions mutate them after creation.
type Appointment struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	DoctorID         uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID        uuid.UUID         `db:"patient_id" json:"patient_id"`
	Date             string            `db:"visit_date" json:"date"`
	StartTime        string            `db:"start_time" json:"time"`
	DurationMins     int               `db:"duration_mins" json:"duration_mins"`
	ConsultationType ConsultationType  `db:"consultation_type" json:"consultation_type"`
	ReasonForVisit   string            `db:"reason_for_visit" json:"reason_for_visit"`
	Status           AppointmentStatus `db:"status" json:"status"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// StartAt combines Date and StartTime into a local wall-clock instant.
// The second return value is false when either field is malformed.
func (a *Appointment) StartAt() (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, a.Date+" "+a.StartTime, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// BookedSlot is the conflict-check projection of a non-cancelled appointment.
type BookedSlot struct {
	Date string `db:"visit_date" json:"date"`
	Time string `db:"start_time" json:"time"`
}

// SlotOption is a candidate appointment start time annotated with whether it
// can still be booked.
type SlotOption struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// ParseClock parses a zero-padded 24-hour HH:MM string into minutes since
// midnight. It is strict: "9:00" and "09:60" are both rejected.
func ParseClock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	for _, i := range [4]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	min := int(s[3]-'0')*10 + int(s[4]-'0')
	if hour > 23 || min > 59 {
		return 0, false
	}
	return hour*60 + min, true
}

// FormatClock renders minutes since midnight as a zero-padded HH:MM string.
func FormatClock(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// NormalizeReason trims a free-text reason; empty means "not provided".
func NormalizeReason(reason string) string {
	return strings.TrimSpace(reason)
}
