package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebook/carebook/internal/platform/auth"
)

type handlerFixture struct {
	*serviceFixture
	e *echo.Echo
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := newServiceFixture(t)
	e := echo.New()
	NewHandler(f.svc).RegisterRoutes(e.Group("/api/v1"))
	return &handlerFixture{serviceFixture: f, e: e}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body interface{}, roles ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if roles != nil {
		ctx := context.WithValue(req.Context(), auth.UserIDKey, "test-user")
		ctx = context.WithValue(ctx, auth.UserRolesKey, roles)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestHandlerRBAC(t *testing.T) {
	f := newHandlerFixture(t)

	// No roles on the request context at all.
	rec := f.do(t, http.MethodGet, "/api/v1/appointments?patient_id="+f.doctorID.String(), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("no roles: expected 403, got %d", rec.Code)
	}

	// Patients cannot touch schedule management.
	rec = f.do(t, http.MethodGet, "/api/v1/doctors/"+f.doctorID.String()+"/schedule", nil, "patient")
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient on doctor route: expected 403, got %d", rec.Code)
	}

	// Admin passes every check.
	rec = f.do(t, http.MethodGet, "/api/v1/doctors/"+f.doctorID.String()+"/schedule", nil, "admin")
	if rec.Code != http.StatusOK {
		t.Errorf("admin: expected 200, got %d", rec.Code)
	}
}

func TestHandlerListSlots(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/doctors/"+f.doctorID.String()+"/slots?date=2025-06-02", nil, "patient")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Date  string       `json:"date"`
		Slots []SlotOption `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Date != "2025-06-02" || len(body.Slots) != 5 {
		t.Errorf("unexpected slots payload: %+v", body)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/doctors/"+f.doctorID.String()+"/slots", nil, "patient")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing date: expected 400, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != CodeMissingDateTime {
		t.Errorf("missing date: expected code %s, got %s", CodeMissingDateTime, got.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/doctors/not-a-uuid/slots?date=2025-06-02", nil, "patient")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad doctor id: expected 400, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/doctors/00000000-0000-0000-0000-000000000001/slots?date=2025-06-02", nil, "patient")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown doctor: expected 404, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != CodeDoctorNotFound || got.Title == "" {
		t.Errorf("unknown doctor: unexpected body %+v", got)
	}
}

func TestHandlerBookAppointment(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/appointments", f.request(), "patient")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var appt Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &appt); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}
	if appt.Status != StatusPending || appt.StartTime != "09:40" {
		t.Errorf("unexpected appointment: %+v", appt)
	}

	// Same slot again: snapshot conflict surfaces as 409.
	rec = f.do(t, http.MethodPost, "/api/v1/appointments", f.request(), "patient")
	if rec.Code != http.StatusConflict {
		t.Fatalf("rebook: expected 409, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != CodeSlotUnavailable || got.Action == "" {
		t.Errorf("rebook: unexpected body %+v", got)
	}
}

func TestHandlerBookAppointment_Invalid(t *testing.T) {
	f := newHandlerFixture(t)

	noDate := f.request()
	noDate.Date = ""
	rec := f.do(t, http.MethodPost, "/api/v1/appointments", noDate, "patient")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing date: expected 422, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != CodeMissingDateTime {
		t.Errorf("missing date: expected code %s, got %s", CodeMissingDateTime, got.Code)
	}

	noReason := f.request()
	noReason.ReasonForVisit = "  "
	rec = f.do(t, http.MethodPost, "/api/v1/appointments", noReason, "patient")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing reason: expected 422, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != CodeMissingReason {
		t.Errorf("missing reason: expected code %s, got %s", CodeMissingReason, got.Code)
	}

	noDoctor := f.request()
	noDoctor.DoctorID = uuid.Nil
	rec = f.do(t, http.MethodPost, "/api/v1/appointments", noDoctor, "patient")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("nil doctor: expected 400, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != CodeInvalidDoctorID {
		t.Errorf("nil doctor: expected code %s, got %s", CodeInvalidDoctorID, got.Code)
	}
}

func TestHandlerAppointmentLifecycle(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/appointments", f.request(), "patient")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var appt Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &appt); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}
	base := "/api/v1/appointments/" + appt.ID.String()

	rec = f.do(t, http.MethodGet, base, nil, "patient")
	if rec.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, base+"/join-window", nil, "patient")
	if rec.Code != http.StatusOK {
		t.Errorf("join window: expected 200, got %d", rec.Code)
	}
	var window WindowStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &window); err != nil {
		t.Fatalf("decode window: %v", err)
	}
	if window.CanJoin {
		t.Error("join window: expected closed at 08:00")
	}

	rec = f.do(t, http.MethodPost, base+"/confirm", nil, "doctor")
	if rec.Code != http.StatusOK {
		t.Errorf("confirm: expected 200, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, base+"/complete", nil, "doctor")
	if rec.Code != http.StatusOK {
		t.Errorf("complete: expected 200, got %d", rec.Code)
	}

	// Completed is terminal.
	rec = f.do(t, http.MethodPost, base+"/cancel", nil, "patient")
	if rec.Code != http.StatusConflict {
		t.Errorf("cancel completed: expected 409, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/appointments/00000000-0000-0000-0000-000000000009/cancel", nil, "patient")
	if rec.Code != http.StatusNotFound {
		t.Errorf("cancel unknown: expected 404, got %d", rec.Code)
	}
}

func TestHandlerListAppointments(t *testing.T) {
	f := newHandlerFixture(t)

	req := f.request()
	rec := f.do(t, http.MethodPost, "/api/v1/appointments", req, "patient")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/appointments?patient_id="+req.PatientID.String(), nil, "patient")
	if rec.Code != http.StatusOK {
		t.Fatalf("by patient: expected 200, got %d", rec.Code)
	}
	var page struct {
		Data    []Appointment `json:"data"`
		Total   int           `json:"total"`
		Limit   int           `json:"limit"`
		HasMore bool          `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 || page.Limit != 20 || page.HasMore {
		t.Errorf("unexpected page: %+v", page)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/appointments?doctor_id="+req.DoctorID.String()+"&date=2025-06-02", nil, "doctor")
	if rec.Code != http.StatusOK {
		t.Errorf("by doctor: expected 200, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/appointments", nil, "patient")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no filter: expected 400, got %d", rec.Code)
	}
}

func TestHandlerScheduleManagement(t *testing.T) {
	f := newHandlerFixture(t)
	base := "/api/v1/doctors/" + f.doctorID.String()

	rec := f.do(t, http.MethodGet, base+"/schedule", nil, "doctor")
	if rec.Code != http.StatusOK {
		t.Fatalf("get schedule: expected 200, got %d", rec.Code)
	}

	update := map[string]interface{}{
		"weekly": map[string]interface{}{
			"friday": map[string]interface{}{
				"is_available": true,
				"slots":        []map[string]string{{"start": "14:00", "end": "17:00"}},
			},
		},
	}
	rec = f.do(t, http.MethodPut, base+"/schedule", update, "doctor")
	if rec.Code != http.StatusOK {
		t.Fatalf("put schedule: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPut, base+"/settings", map[string]int{
		"default_duration_mins": 20,
		"buffer_time_mins":      5,
		"advance_booking_days":  14,
	}, "doctor")
	if rec.Code != http.StatusOK {
		t.Fatalf("put settings: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPut, base+"/settings", map[string]int{
		"default_duration_mins": 500,
		"advance_booking_days":  14,
	}, "doctor")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad settings: expected 400, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, base+"/exceptions", map[string]interface{}{
		"date": "2025-06-06", "is_available": false,
	}, "doctor")
	if rec.Code != http.StatusCreated {
		t.Fatalf("add exception: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodDelete, base+"/exceptions/2025-06-06", nil, "doctor")
	if rec.Code != http.StatusNoContent {
		t.Errorf("remove exception: expected 204, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, base+"/vacations", map[string]string{
		"start_date": "2025-07-01", "end_date": "2025-07-10", "reason": "Conference",
	}, "doctor")
	if rec.Code != http.StatusCreated {
		t.Fatalf("add vacation: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var vac VacationPeriod
	if err := json.Unmarshal(rec.Body.Bytes(), &vac); err != nil {
		t.Fatalf("decode vacation: %v", err)
	}
	rec = f.do(t, http.MethodDelete, base+"/vacations/"+vac.ID.String(), nil, "doctor")
	if rec.Code != http.StatusNoContent {
		t.Errorf("remove vacation: expected 204, got %d", rec.Code)
	}
}
