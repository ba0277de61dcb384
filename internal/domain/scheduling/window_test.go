package scheduling

import (
	"testing"
	"time"
)

func windowAppointment(date, start string, status AppointmentStatus) *Appointment {
	return &Appointment{
		Date:         date,
		StartTime:    start,
		DurationMins: 30,
		Status:       status,
	}
}

func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, time.Local)
	if err != nil {
		t.Fatalf("bad test time %s %s: %v", date, clock, err)
	}
	return ts
}

func TestEvaluateWindow_EarlyJoin(t *testing.T) {
	// Eight minutes before start: joinable but not yet live.
	appt := windowAppointment("2025-06-02", "14:00", StatusConfirmed)
	now := at(t, "2025-06-02", "13:52")

	got := EvaluateWindow(appt, now, DefaultJoinWindow())
	if !got.CanJoin {
		t.Error("expected CanJoin inside the early-join window")
	}
	if got.IsNow {
		t.Error("IsNow must stay false before the scheduled start")
	}
	if got.TimeUntil != "8m" {
		t.Errorf("expected TimeUntil 8m, got %q", got.TimeUntil)
	}
}

func TestEvaluateWindow_GraceExpired(t *testing.T) {
	// 50 minutes past a 30-minute start exceeds the 15-minute grace.
	appt := windowAppointment("2025-06-02", "14:00", StatusConfirmed)
	now := at(t, "2025-06-02", "14:50")

	got := EvaluateWindow(appt, now, DefaultJoinWindow())
	if got.CanJoin {
		t.Error("expected CanJoin false past the grace period")
	}
	if got.IsNow {
		t.Error("expected IsNow false past the appointment end")
	}
	if got.TimeUntil != "Started" {
		t.Errorf("expected TimeUntil Started, got %q", got.TimeUntil)
	}
}

func TestEvaluateWindow_DuringAppointment(t *testing.T) {
	appt := windowAppointment("2025-06-02", "14:00", StatusConfirmed)
	now := at(t, "2025-06-02", "14:15")

	got := EvaluateWindow(appt, now, DefaultJoinWindow())
	if !got.IsNow || !got.CanJoin {
		t.Errorf("expected live joinable appointment, got %+v", got)
	}
}

func TestEvaluateWindow_Boundaries(t *testing.T) {
	appt := windowAppointment("2025-06-02", "14:00", StatusConfirmed)
	cfg := DefaultJoinWindow()

	tests := []struct {
		clock       string
		wantCanJoin bool
		wantIsNow   bool
	}{
		{"13:49", false, false}, // one minute before early-join opens
		{"13:50", true, false},  // early-join opens
		{"14:00", true, true},   // start is live
		{"14:30", true, true},   // end is still live (inclusive)
		{"14:45", true, false},  // last grace minute
		{"14:46", false, false}, // grace expired
	}
	for _, tt := range tests {
		got := EvaluateWindow(appt, at(t, "2025-06-02", tt.clock), cfg)
		if got.CanJoin != tt.wantCanJoin || got.IsNow != tt.wantIsNow {
			t.Errorf("at %s: got (canJoin=%v, isNow=%v), want (%v, %v)",
				tt.clock, got.CanJoin, got.IsNow, tt.wantCanJoin, tt.wantIsNow)
		}
	}
}

func TestEvaluateWindow_TerminalStatusNeverJoinable(t *testing.T) {
	now := at(t, "2025-06-02", "14:15")

	for _, status := range []AppointmentStatus{StatusCancelled, StatusCompleted, StatusRescheduled} {
		appt := windowAppointment("2025-06-02", "14:00", status)
		got := EvaluateWindow(appt, now, DefaultJoinWindow())
		if got.CanJoin {
			t.Errorf("status %s: expected CanJoin false even mid-appointment", status)
		}
	}
}

func TestEvaluateWindow_OtherDay(t *testing.T) {
	appt := windowAppointment("2025-06-03", "14:00", StatusConfirmed)
	now := at(t, "2025-06-02", "14:00")

	got := EvaluateWindow(appt, now, DefaultJoinWindow())
	if got.CanJoin || got.IsNow {
		t.Errorf("expected tomorrow's appointment to be unjoinable today, got %+v", got)
	}
	if got.TimeUntil != "1d 0h" {
		t.Errorf("expected TimeUntil 1d 0h, got %q", got.TimeUntil)
	}
}

func TestEvaluateWindow_FailsClosed(t *testing.T) {
	now := at(t, "2025-06-02", "14:00")

	if got := EvaluateWindow(nil, now, DefaultJoinWindow()); got != (WindowStatus{}) {
		t.Errorf("nil appointment: expected zero status, got %+v", got)
	}

	malformed := windowAppointment("junk", "14:00", StatusConfirmed)
	if got := EvaluateWindow(malformed, now, DefaultJoinWindow()); got != (WindowStatus{}) {
		t.Errorf("malformed date: expected zero status, got %+v", got)
	}

	badTime := windowAppointment("2025-06-02", "25:00", StatusConfirmed)
	if got := EvaluateWindow(badTime, now, DefaultJoinWindow()); got != (WindowStatus{}) {
		t.Errorf("malformed time: expected zero status, got %+v", got)
	}
}

func TestEvaluateWindow_ZeroDurationFallsBack(t *testing.T) {
	appt := windowAppointment("2025-06-02", "14:00", StatusConfirmed)
	appt.DurationMins = 0
	now := at(t, "2025-06-02", "14:29")

	got := EvaluateWindow(appt, now, DefaultJoinWindow())
	if !got.IsNow {
		t.Error("expected default 30-minute duration to keep the appointment live")
	}
}

func TestFormatTimeUntil(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Minute, "Started"},
		{45 * time.Minute, "45m"},
		{0, "0m"},
		{3*time.Hour + 5*time.Minute, "3h 05m"},
		{51 * time.Hour, "2d 3h"},
	}
	for _, tt := range tests {
		if got := FormatTimeUntil(tt.d); got != tt.want {
			t.Errorf("FormatTimeUntil(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
