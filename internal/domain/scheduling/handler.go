package scheduling

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebook/carebook/internal/platform/auth"
	"github.com/carebook/carebook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Patient-facing booking surface.
	patient := api.Group("", auth.RequireRole("patient", "doctor"))
	patient.GET("/doctors/:id/slots", h.ListSlots)
	patient.POST("/appointments", h.BookAppointment)
	patient.GET("/appointments", h.ListAppointments)
	patient.GET("/appointments/:id", h.GetAppointment)
	patient.GET("/appointments/:id/join-window", h.JoinWindow)
	patient.POST("/appointments/:id/cancel", h.transitionHandler(StatusCancelled))
	patient.POST("/appointments/:id/reschedule", h.transitionHandler(StatusRescheduled))

	// Doctor-owned schedule management.
	doctor := api.Group("", auth.RequireRole("doctor"))
	doctor.GET("/doctors/:id/schedule", h.GetSchedule)
	doctor.PUT("/doctors/:id/schedule", h.PutSchedule)
	doctor.PUT("/doctors/:id/settings", h.PutSettings)
	doctor.POST("/doctors/:id/exceptions", h.AddException)
	doctor.DELETE("/doctors/:id/exceptions/:date", h.RemoveException)
	doctor.POST("/doctors/:id/vacations", h.AddVacation)
	doctor.DELETE("/doctors/:id/vacations/:vid", h.RemoveVacation)
	doctor.POST("/appointments/:id/confirm", h.transitionHandler(StatusConfirmed))
	doctor.POST("/appointments/:id/complete", h.transitionHandler(StatusCompleted))
}

// errorBody is the wire shape of every surfaced error: a machine-readable
// code plus the presentation triple the UI renders.
type errorBody struct {
	Code ErrorCode `json:"code"`
	Presentation
}

func errJSON(c echo.Context, status int, code ErrorCode) error {
	return c.JSON(status, errorBody{Code: code, Presentation: Present(code)})
}

// -- Availability --

func (h *Handler) ListSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, CodeInvalidDoctorID)
	}
	date := c.QueryParam("date")
	if date == "" {
		return errJSON(c, http.StatusBadRequest, CodeMissingDateTime)
	}

	slots, err := h.svc.AvailableSlots(c.Request().Context(), doctorID, date)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return errJSON(c, http.StatusNotFound, CodeDoctorNotFound)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":  date,
		"slots": slots,
	})
}

// -- Booking --

func (h *Handler) BookAppointment(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DoctorID == uuid.Nil {
		return errJSON(c, http.StatusBadRequest, CodeInvalidDoctorID)
	}

	// Drive the wizard state machine server-side so out-of-order submissions
	// hit the same guards the client wizard does.
	flow := NewBookingFlow()
	if err := flow.SelectDate(req.Date); err != nil {
		return errJSON(c, http.StatusUnprocessableEntity, CodeMissingDateTime)
	}
	if err := flow.SelectTime(req.StartTime); err != nil {
		return errJSON(c, http.StatusUnprocessableEntity, CodeMissingDateTime)
	}
	if err := flow.Confirm(req.ReasonForVisit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	appt, err := h.svc.Book(c.Request().Context(), req)
	if err != nil {
		_ = flow.Fail()
		return h.bookingError(c, err)
	}
	_ = flow.Submit()

	return c.JSON(http.StatusCreated, appt)
}

// bookingError maps service failures to HTTP: validation 422,
// conflict 409 (retryable), not-found 404.
func (h *Handler) bookingError(c echo.Context, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		status := http.StatusUnprocessableEntity
		if verr.Code == CodeSlotUnavailable {
			status = http.StatusConflict
		}
		return errJSON(c, status, verr.Code)
	case errors.Is(err, ErrSlotTaken), errors.Is(err, ErrSlotBeingBooked), errors.Is(err, ErrDayFull):
		return errJSON(c, http.StatusConflict, CodeSlotUnavailable)
	case errors.Is(err, ErrDoctorNotFound):
		return errJSON(c, http.StatusNotFound, CodeDoctorNotFound)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Appointment(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)

	if pid := c.QueryParam("patient_id"); pid != "" {
		patientID, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}

	if did := c.QueryParam("doctor_id"); did != "" {
		doctorID, err := uuid.Parse(did)
		if err != nil {
			return errJSON(c, http.StatusBadRequest, CodeInvalidDoctorID)
		}
		items, total, err := h.svc.ListByDoctor(c.Request().Context(), doctorID, c.QueryParam("date"), pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}

	return echo.NewHTTPError(http.StatusBadRequest, "patient_id or doctor_id is required")
}

func (h *Handler) transitionHandler(to AppointmentStatus) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		appt, err := h.svc.Transition(c.Request().Context(), id, to)
		if err != nil {
			switch {
			case errors.Is(err, ErrAppointmentNotFound):
				return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
			case errors.Is(err, ErrInvalidTransition):
				return echo.NewHTTPError(http.StatusConflict, err.Error())
			default:
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		return c.JSON(http.StatusOK, appt)
	}
}

func (h *Handler) JoinWindow(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	window, err := h.svc.JoinWindow(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, window)
}

// -- Schedule management --

func (h *Handler) GetSchedule(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, CodeInvalidDoctorID)
	}
	sched, err := h.svc.DoctorSchedule(c.Request().Context(), doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return errJSON(c, http.StatusNotFound, CodeDoctorNotFound)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) PutSchedule(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, CodeInvalidDoctorID)
	}
	var sched DoctorSchedule
	if err := c.Bind(&sched); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sched.DoctorID = doctorID
	if err := h.svc.UpsertSchedule(c.Request().Context(), &sched); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) PutSettings(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, CodeInvalidDoctorID)
	}
	var settings ConsultationSettings
	if err := c.Bind(&settings); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateSettings(c.Request().Context(), doctorID, settings); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return errJSON(c, http.StatusNotFound, CodeDoctorNotFound)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, settings)
}

func (h *Handler) AddException(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, CodeInvalidDoctorID)
	}
	var e ScheduleException
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.DoctorID = doctorID
	if err := h.svc.AddException(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) RemoveException(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, CodeInvalidDoctorID)
	}
	if err := h.svc.schedules.RemoveException(c.Request().Context(), doctorID, c.Param("date")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddVacation(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, CodeInvalidDoctorID)
	}
	var v VacationPeriod
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v.DoctorID = doctorID
	if err := h.svc.AddVacation(c.Request().Context(), &v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) RemoveVacation(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, CodeInvalidDoctorID)
	}
	vacationID, err := uuid.Parse(c.Param("vid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid vacation id")
	}
	if err := h.svc.schedules.RemoveVacation(c.Request().Context(), doctorID, vacationID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
