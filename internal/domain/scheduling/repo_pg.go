package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL error code raised by the partial unique
// index guarding (doctor_id, visit_date, start_time).
const uniqueViolation = "23505"

// =========== Schedule Repository ===========

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository { return &scheduleRepoPG{pool: pool} }

func (r *scheduleRepoPG) GetByDoctor(ctx context.Context, doctorID uuid.UUID) (*DoctorSchedule, error) {
	var (
		sched  DoctorSchedule
		weekly []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT doctor_id, weekly, default_duration_mins, buffer_time_mins,
			max_patients_per_day, advance_booking_days, created_at, updated_at
		FROM doctor_schedule WHERE doctor_id = $1`, doctorID).
		Scan(&sched.DoctorID, &weekly, &sched.Settings.DefaultDurationMins,
			&sched.Settings.BufferTimeMins, &sched.Settings.MaxPatientsPerDay,
			&sched.Settings.AdvanceBookingDays, &sched.CreatedAt, &sched.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(weekly, &sched.Weekly); err != nil {
		return nil, fmt.Errorf("decode weekly schedule: %w", err)
	}
	return &sched, nil
}

func (r *scheduleRepoPG) Upsert(ctx context.Context, sched *DoctorSchedule) error {
	weekly, err := json.Marshal(sched.Weekly)
	if err != nil {
		return fmt.Errorf("encode weekly schedule: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO doctor_schedule (doctor_id, weekly, default_duration_mins,
			buffer_time_mins, max_patients_per_day, advance_booking_days)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (doctor_id) DO UPDATE SET
			weekly = EXCLUDED.weekly,
			default_duration_mins = EXCLUDED.default_duration_mins,
			buffer_time_mins = EXCLUDED.buffer_time_mins,
			max_patients_per_day = EXCLUDED.max_patients_per_day,
			advance_booking_days = EXCLUDED.advance_booking_days,
			updated_at = NOW()`,
		sched.DoctorID, weekly, sched.Settings.DefaultDurationMins,
		sched.Settings.BufferTimeMins, sched.Settings.MaxPatientsPerDay,
		sched.Settings.AdvanceBookingDays)
	return err
}

func (r *scheduleRepoPG) UpdateSettings(ctx context.Context, doctorID uuid.UUID, settings ConsultationSettings) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE doctor_schedule SET default_duration_mins=$2, buffer_time_mins=$3,
			max_patients_per_day=$4, advance_booking_days=$5, updated_at=NOW()
		WHERE doctor_id = $1`,
		doctorID, settings.DefaultDurationMins, settings.BufferTimeMins,
		settings.MaxPatientsPerDay, settings.AdvanceBookingDays)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *scheduleRepoPG) ListExceptions(ctx context.Context, doctorID uuid.UUID) ([]ScheduleException, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, to_char(exception_date, 'YYYY-MM-DD'), is_available, slots, created_at
		FROM schedule_exception WHERE doctor_id = $1 ORDER BY exception_date`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ScheduleException
	for rows.Next() {
		var (
			e     ScheduleException
			slots []byte
		)
		if err := rows.Scan(&e.ID, &e.DoctorID, &e.Date, &e.IsAvailable, &slots, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(slots, &e.Slots); err != nil {
			return nil, fmt.Errorf("decode exception slots: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *scheduleRepoPG) AddException(ctx context.Context, e *ScheduleException) error {
	e.ID = uuid.New()
	slots, err := json.Marshal(e.Slots)
	if err != nil {
		return fmt.Errorf("encode exception slots: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO schedule_exception (id, doctor_id, exception_date, is_available, slots)
		VALUES ($1, $2, $3::date, $4, $5)
		ON CONFLICT (doctor_id, exception_date) DO UPDATE SET
			is_available = EXCLUDED.is_available,
			slots = EXCLUDED.slots`,
		e.ID, e.DoctorID, e.Date, e.IsAvailable, slots)
	return err
}

func (r *scheduleRepoPG) RemoveException(ctx context.Context, doctorID uuid.UUID, date string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM schedule_exception WHERE doctor_id = $1 AND exception_date = $2::date`,
		doctorID, date)
	return err
}

func (r *scheduleRepoPG) ListVacations(ctx context.Context, doctorID uuid.UUID) ([]VacationPeriod, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), reason, created_at
		FROM vacation_period WHERE doctor_id = $1 ORDER BY start_date`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []VacationPeriod
	for rows.Next() {
		var v VacationPeriod
		if err := rows.Scan(&v.ID, &v.DoctorID, &v.StartDate, &v.EndDate, &v.Reason, &v.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *scheduleRepoPG) AddVacation(ctx context.Context, v *VacationPeriod) error {
	v.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO vacation_period (id, doctor_id, start_date, end_date, reason)
		VALUES ($1, $2, $3::date, $4::date, $5)`,
		v.ID, v.DoctorID, v.StartDate, v.EndDate, v.Reason)
	return err
}

func (r *scheduleRepoPG) RemoveVacation(ctx context.Context, doctorID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM vacation_period WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	return err
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const apptCols = `id, doctor_id, patient_id, to_char(visit_date, 'YYYY-MM-DD'), start_time,
	duration_mins, consultation_type, reason_for_visit, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &a.StartTime,
		&a.DurationMins, &a.ConsultationType, &a.ReasonForVisit, &a.Status,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment (id, doctor_id, patient_id, visit_date, start_time,
			duration_mins, consultation_type, reason_for_visit, status)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9)`,
		a.ID, a.DoctorID, a.PatientID, a.Date, a.StartTime,
		a.DurationMins, a.ConsultationType, a.ReasonForVisit, a.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrSlotTaken
		}
		return err
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+` FROM appointment WHERE patient_id = $1
		ORDER BY visit_date DESC, start_time DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectAppointments(rows, total)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, date string, limit, offset int) ([]*Appointment, int, error) {
	where := `doctor_id = $1`
	args := []interface{}{doctorID}
	if date != "" {
		where += ` AND visit_date = $2::date`
		args = append(args, date)
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM appointment WHERE %s
		ORDER BY visit_date, start_time LIMIT $%d OFFSET $%d`,
		apptCols, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectAppointments(rows, total)
}

func collectAppointments(rows pgx.Rows, total int) ([]*Appointment, int, error) {
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointment SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+apptCols, id, from, to)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Row exists but the status moved under us, or the id is unknown.
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return a, nil
}

func (r *appointmentRepoPG) BookedSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]BookedSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(visit_date, 'YYYY-MM-DD'), start_time
		FROM appointment
		WHERE doctor_id = $1 AND visit_date = $2::date
			AND status NOT IN ('cancelled', 'rescheduled')
		ORDER BY start_time`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []BookedSlot
	for rows.Next() {
		var b BookedSlot
		if err := rows.Scan(&b.Date, &b.Time); err != nil {
			return nil, err
		}
		slots = append(slots, b)
	}
	return slots, rows.Err()
}

func (r *appointmentRepoPG) CountForDay(ctx context.Context, doctorID uuid.UUID, date string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointment
		WHERE doctor_id = $1 AND visit_date = $2::date
			AND status NOT IN ('cancelled', 'rescheduled')`,
		doctorID, date).Scan(&count)
	return count, err
}
