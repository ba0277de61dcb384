// Package seed populates the database with demo doctors, schedules, and
// appointments for local development.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/carebook/carebook/internal/domain/scheduling"
)

// Run creates count demo doctors with weekly schedules, gives some of them a
// vacation, and books a few pending appointments against tomorrow's slots.
func Run(ctx context.Context, pool *pgxpool.Pool, count int, logger zerolog.Logger) error {
	gofakeit.Seed(time.Now().UnixNano())

	schedules := scheduling.NewScheduleRepoPG(pool)
	appointments := scheduling.NewAppointmentRepoPG(pool)

	logger.Info().Int("doctors", count).Msg("seeding doctors")

	tomorrow := time.Now().AddDate(0, 0, 1).Format(scheduling.DateLayout)

	for i := 0; i < count; i++ {
		doctorID := uuid.New()

		settings := scheduling.DefaultConsultationSettings()
		settings.DefaultDurationMins = []int{15, 20, 30, 45}[gofakeit.Number(0, 3)]
		settings.BufferTimeMins = []int{0, 5, 10}[gofakeit.Number(0, 2)]

		sched := &scheduling.DoctorSchedule{
			DoctorID: doctorID,
			Weekly:   randomWeek(),
			Settings: settings,
		}
		if err := schedules.Upsert(ctx, sched); err != nil {
			return fmt.Errorf("seed doctor %d: %w", i, err)
		}

		// Every third doctor gets an upcoming vacation.
		if i%3 == 2 {
			start := time.Now().AddDate(0, 0, gofakeit.Number(7, 21))
			vac := &scheduling.VacationPeriod{
				DoctorID:  doctorID,
				StartDate: start.Format(scheduling.DateLayout),
				EndDate:   start.AddDate(0, 0, gofakeit.Number(2, 10)).Format(scheduling.DateLayout),
				Reason:    "Annual leave",
			}
			if err := schedules.AddVacation(ctx, vac); err != nil {
				return fmt.Errorf("seed vacation for doctor %d: %w", i, err)
			}
		}

		// Book the first slot of tomorrow for a demo patient, when there is one.
		day := scheduling.ResolveDay(tomorrow, sched.Weekly, nil, nil)
		slots := scheduling.GenerateSlots(day, sched.Settings)
		if len(slots) == 0 {
			continue
		}

		appt := &scheduling.Appointment{
			DoctorID:         doctorID,
			PatientID:        uuid.New(),
			Date:             tomorrow,
			StartTime:        slots[0],
			DurationMins:     sched.Settings.DefaultDurationMins,
			ConsultationType: scheduling.TypeVideo,
			ReasonForVisit:   gofakeit.Sentence(6),
			Status:           scheduling.StatusPending,
		}
		if err := appointments.Create(ctx, appt); err != nil {
			return fmt.Errorf("seed appointment for doctor %d: %w", i, err)
		}
	}

	logger.Info().Msg("seed complete")
	return nil
}

// randomWeek builds a plausible working week: weekdays with a morning block,
// some with an afternoon block, weekends off.
func randomWeek() scheduling.WeeklySchedule {
	week := scheduling.WeeklySchedule{}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		slots := []scheduling.TimeRange{{Start: "09:00", End: "12:00"}}
		if gofakeit.Bool() {
			slots = append(slots, scheduling.TimeRange{Start: "14:00", End: "17:00"})
		}
		week[day] = scheduling.DaySchedule{IsAvailable: true, Slots: slots}
	}
	week["saturday"] = scheduling.DaySchedule{IsAvailable: false}
	week["sunday"] = scheduling.DaySchedule{IsAvailable: false}
	return week
}
