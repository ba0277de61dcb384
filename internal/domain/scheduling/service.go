package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sentinel errors surfaced by the service. ErrSlotTaken, ErrSlotBeingBooked
// and ErrDayFull are expected, retryable outcomes: the caller refreshes
// availability and prompts reselection.
var (
	ErrDoctorNotFound      = errors.New("doctor schedule not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("slot already has a booking")
	ErrSlotBeingBooked     = errors.New("slot is currently being booked, please retry")
	ErrDayFull             = errors.New("doctor is fully booked for that day")
	ErrInvalidTransition   = errors.New("invalid appointment status transition")
)

// Locker guards the booking critical section per slot so two concurrent
// requests for the same doctor/date/time cannot both pass the availability
// check. A nil Locker degrades to relying on the database unique index alone.
type Locker interface {
	WithSlotLock(ctx context.Context, doctorID uuid.UUID, date, timeStr string, fn func(ctx context.Context) error) error
}

// ErrLockNotAcquired is returned by Locker implementations when the slot is
// already locked by a concurrent booking.
var ErrLockNotAcquired = errors.New("slot lock not acquired")

// Service composes the pure availability core with the repositories and the
// write-boundary conflict handling.
type Service struct {
	schedules    ScheduleRepository
	appointments AppointmentRepository
	locker       Locker
	clock        Clock
	join         JoinWindowConfig
	logger       zerolog.Logger
}

func NewService(
	schedules ScheduleRepository,
	appointments AppointmentRepository,
	locker Locker,
	clock Clock,
	join JoinWindowConfig,
	logger zerolog.Logger,
) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		schedules:    schedules,
		appointments: appointments,
		locker:       locker,
		clock:        clock,
		join:         join,
		logger:       logger,
	}
}

// -- Availability --

// DoctorSchedule returns the persisted schedule aggregate for a doctor.
func (s *Service) DoctorSchedule(ctx context.Context, doctorID uuid.UUID) (*DoctorSchedule, error) {
	sched, err := s.schedules.GetByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return sched, nil
}

// AvailableSlots resolves the doctor's day schedule for a date, generates
// candidate slots and annotates them against existing bookings and the
// current wall clock.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]SlotOption, error) {
	sched, err := s.schedules.GetByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	exceptions, err := s.schedules.ListExceptions(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	vacations, err := s.schedules.ListVacations(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list vacations: %w", err)
	}

	day := ResolveDay(date, sched.Weekly, exceptions, vacations)
	times := GenerateSlots(day, sched.Settings)

	booked, err := s.appointments.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", err)
	}

	now := s.clock.Now()
	return ResolveAvailability(times, booked, date, now.Format(DateLayout), now.Format(ClockLayout)), nil
}

// -- Booking --

// Book validates a prospective booking against a fresh availability snapshot
// and inserts it inside the slot lock. Validation failures come back as
// *ValidationError; conflicts as ErrSlotTaken/ErrSlotBeingBooked/ErrDayFull.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	sched, err := s.schedules.GetByDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	availability, err := s.AvailableSlots(ctx, req.DoctorID, req.Date)
	if err != nil {
		return nil, err
	}

	today := s.clock.Now().Format(DateLayout)
	if err := ValidateBookingRequest(req, availability, sched.Settings, today); err != nil {
		return nil, err
	}

	consultationType := req.ConsultationType
	if !consultationType.IsValid() {
		consultationType = TypeInPerson
	}

	appt := &Appointment{
		DoctorID:         req.DoctorID,
		PatientID:        req.PatientID,
		Date:             req.Date,
		StartTime:        req.StartTime,
		DurationMins:     sched.Settings.DefaultDurationMins,
		ConsultationType: consultationType,
		ReasonForVisit:   NormalizeReason(req.ReasonForVisit),
		Status:           StatusPending,
	}

	insert := func(ctx context.Context) error {
		if max := sched.Settings.MaxPatientsPerDay; max > 0 {
			count, err := s.appointments.CountForDay(ctx, req.DoctorID, req.Date)
			if err != nil {
				return fmt.Errorf("count bookings: %w", err)
			}
			if count >= max {
				return ErrDayFull
			}
		}
		return s.appointments.Create(ctx, appt)
	}

	if s.locker != nil {
		err = s.locker.WithSlotLock(ctx, req.DoctorID, req.Date, req.StartTime, insert)
		if errors.Is(err, ErrLockNotAcquired) {
			err = ErrSlotBeingBooked
		}
	} else {
		err = insert(ctx)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("doctor_id", req.DoctorID.String()).
		Str("date", req.Date).
		Str("time", req.StartTime).
		Msg("appointment booked")

	return appt, nil
}

// Appointment retrieves a single appointment by id.
func (s *Service) Appointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, date string, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, date, limit, offset)
}

// Transition moves an appointment to a new status, enforcing the monotonic
// transition rules. The repository compare-and-set closes the race between
// two concurrent transitions.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	if !to.IsValid() {
		return nil, ErrInvalidTransition
	}
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.CanTransitionTo(to) {
		return nil, ErrInvalidTransition
	}
	updated, err := s.appointments.UpdateStatus(ctx, id, appt.Status, to)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("from", string(appt.Status)).
		Str("to", string(to)).
		Msg("appointment status changed")

	return updated, nil
}

// JoinWindow evaluates the teleconsultation join window for an appointment
// at the current instant.
func (s *Service) JoinWindow(ctx context.Context, id uuid.UUID) (WindowStatus, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return WindowStatus{}, err
	}
	return EvaluateWindow(appt, s.clock.Now(), s.join), nil
}

// -- Schedule management (doctor-owned) --

// UpsertSchedule validates and stores a doctor's weekly schedule aggregate.
func (s *Service) UpsertSchedule(ctx context.Context, sched *DoctorSchedule) error {
	if sched.Settings == (ConsultationSettings{}) {
		sched.Settings = DefaultConsultationSettings()
	}
	if err := sched.Validate(); err != nil {
		return err
	}
	return s.schedules.Upsert(ctx, sched)
}

// UpdateSettings replaces a doctor's consultation settings.
func (s *Service) UpdateSettings(ctx context.Context, doctorID uuid.UUID, settings ConsultationSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if _, err := s.schedules.GetByDoctor(ctx, doctorID); err != nil {
		return err
	}
	return s.schedules.UpdateSettings(ctx, doctorID, settings)
}

// AddException stores a single-date override of the weekly schedule.
func (s *Service) AddException(ctx context.Context, e *ScheduleException) error {
	if e.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if err := e.Validate(); err != nil {
		return err
	}
	return s.schedules.AddException(ctx, e)
}

// AddVacation stores a blackout range for a doctor.
func (s *Service) AddVacation(ctx context.Context, v *VacationPeriod) error {
	if v.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return s.schedules.AddVacation(ctx, v)
}
