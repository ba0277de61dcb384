package scheduling

import (
	"fmt"
	"time"
)

// Clock abstracts wall-clock reads so window evaluation stays a pure
// function of its arguments and tests can pin "now".
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

const (
	// DefaultJoinEarlyMins is how many minutes before the scheduled start a
	// teleconsultation may be joined.
	DefaultJoinEarlyMins = 10
	// DefaultJoinLateGraceMins is how many minutes past the scheduled end
	// joining remains possible.
	DefaultJoinLateGraceMins = 15
)

// JoinWindowConfig controls the teleconsultation join window around an
// appointment's scheduled span.
type JoinWindowConfig struct {
	EarlyMins     int
	LateGraceMins int
}

// DefaultJoinWindow returns the standard 10-minute-early / 15-minute-grace
// join window.
func DefaultJoinWindow() JoinWindowConfig {
	return JoinWindowConfig{
		EarlyMins:     DefaultJoinEarlyMins,
		LateGraceMins: DefaultJoinLateGraceMins,
	}
}

// WindowStatus describes where "now" sits relative to an appointment.
type WindowStatus struct {
	IsNow     bool   `json:"is_now"`
	CanJoin   bool   `json:"can_join"`
	TimeUntil string `json:"time_until,omitempty"`
}

// EvaluateWindow derives the live/joinable state of an appointment at a
// given instant. It is called on every render tick of the teleconsultation
// view, so it never panics: malformed date or time fields fail closed to a
// fully unavailable status.
//
//   - IsNow: the appointment date is today and now lies in
//     [start, start+duration].
//   - CanJoin: the status is pending or confirmed, the date is today, and now
//     lies in [start-early, start+duration+grace].
//   - TimeUntil: human-scale countdown to the start, "Started" once past it.
func EvaluateWindow(a *Appointment, now time.Time, cfg JoinWindowConfig) WindowStatus {
	if a == nil {
		return WindowStatus{}
	}
	start, ok := a.StartAt()
	if !ok {
		return WindowStatus{}
	}

	duration := a.DurationMins
	if duration <= 0 {
		duration = DefaultConsultationSettings().DefaultDurationMins
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	sameDay := a.Date == now.Format(DateLayout)
	isNow := sameDay && !now.Before(start) && !now.After(end)

	joinableStatus := a.Status == StatusPending || a.Status == StatusConfirmed
	joinOpen := start.Add(-time.Duration(cfg.EarlyMins) * time.Minute)
	joinClose := end.Add(time.Duration(cfg.LateGraceMins) * time.Minute)
	canJoin := joinableStatus && sameDay && !now.Before(joinOpen) && !now.After(joinClose)

	return WindowStatus{
		IsNow:     isNow,
		CanJoin:   canJoin,
		TimeUntil: FormatTimeUntil(start.Sub(now)),
	}
}

// FormatTimeUntil renders a countdown using the largest applicable unit:
// "2d 3h", "3h 05m", "45m". Negative durations render as "Started".
func FormatTimeUntil(d time.Duration) string {
	if d < 0 {
		return "Started"
	}
	mins := int(d.Minutes())
	days := mins / (24 * 60)
	hours := (mins % (24 * 60)) / 60
	mins = mins % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %02dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}
