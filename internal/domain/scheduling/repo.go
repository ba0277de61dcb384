package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// ScheduleRepository persists the doctor-owned side of scheduling: the
// weekly pattern, consultation settings, date exceptions and vacations.
type ScheduleRepository interface {
	GetByDoctor(ctx context.Context, doctorID uuid.UUID) (*DoctorSchedule, error)
	Upsert(ctx context.Context, sched *DoctorSchedule) error
	UpdateSettings(ctx context.Context, doctorID uuid.UUID, settings ConsultationSettings) error

	ListExceptions(ctx context.Context, doctorID uuid.UUID) ([]ScheduleException, error)
	AddException(ctx context.Context, e *ScheduleException) error
	RemoveException(ctx context.Context, doctorID uuid.UUID, date string) error

	ListVacations(ctx context.Context, doctorID uuid.UUID) ([]VacationPeriod, error)
	AddVacation(ctx context.Context, v *VacationPeriod) error
	RemoveVacation(ctx context.Context, doctorID, id uuid.UUID) error
}

// AppointmentRepository persists appointments. Create is the authoritative
// write boundary for slot conflicts: implementations must guarantee at most
// one non-released appointment per (doctor, date, time) and return
// ErrSlotTaken when that would be violated.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, date string, limit, offset int) ([]*Appointment, int, error)

	// UpdateStatus transitions an appointment from one status to another as a
	// compare-and-set; it returns ErrInvalidTransition when the row is no
	// longer in the expected from status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// BookedSlots projects the non-released appointments for a doctor/date
	// into the fast conflict-check set.
	BookedSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]BookedSlot, error)

	// CountForDay counts non-released appointments for a doctor on a date,
	// used to enforce the per-day patient cap.
	CountForDay(ctx context.Context, doctorID uuid.UUID, date string) (int, error)
}
