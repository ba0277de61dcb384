package scheduling

import "time"

// ResolveDay resolves the effective day schedule for one calendar date.
// Precedence: vacation (always unavailable) > date exception > weekly default.
// A date that does not parse resolves to unavailable rather than erroring,
// since callers invoke this on every availability render.
func ResolveDay(date string, weekly WeeklySchedule, exceptions []ScheduleException, vacations []VacationPeriod) DaySchedule {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return DaySchedule{}
	}

	for _, v := range vacations {
		if v.Contains(date) {
			return DaySchedule{}
		}
	}

	for _, e := range exceptions {
		if e.Date == date {
			return DaySchedule{IsAvailable: e.IsAvailable, Slots: e.Slots}
		}
	}

	sched, ok := weekly[DayKey(day)]
	if !ok {
		return DaySchedule{}
	}
	return sched
}

// GenerateSlots produces the ordered candidate start times for a resolved
// day. Each interval is walked independently in steps of duration+buffer,
// emitting every start time that falls strictly before the interval end. A
// trailing slot whose consultation would run past the end is still offered
// and clamped to the interval boundary, so a 09:00-12:00 window with a
// 30+10 cadence ends on the shortened 11:40 slot. Intervals contribute in
// their listed order and no cross-interval sorting is applied.
//
// The result is a pure function of its arguments: no clock reads, identical
// inputs yield identical output.
func GenerateSlots(day DaySchedule, settings ConsultationSettings) []string {
	if !day.IsAvailable {
		return nil
	}
	duration := settings.DefaultDurationMins
	if duration <= 0 {
		return nil
	}
	step := duration + settings.BufferTimeMins
	if step < duration {
		step = duration
	}

	var times []string
	for _, r := range day.Slots {
		start, ok := ParseClock(r.Start)
		if !ok {
			continue
		}
		end, ok := ParseClock(r.End)
		if !ok {
			continue
		}
		for t := start; t < end; t += step {
			times = append(times, FormatClock(t))
		}
	}
	return times
}

// ResolveAvailability annotates candidate start times against existing
// bookings and the current wall clock. A slot is unavailable iff its time is
// already booked for the date, or the date is today and the slot starts at
// or before now. This is a read-side filter for presentation; the
// authoritative conflict check happens at the write boundary.
func ResolveAvailability(times []string, booked []BookedSlot, date, today, now string) []SlotOption {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		if b.Date == "" || b.Date == date {
			taken[b.Time] = struct{}{}
		}
	}

	options := make([]SlotOption, 0, len(times))
	for _, t := range times {
		_, isTaken := taken[t]
		past := date == today && t <= now
		options = append(options, SlotOption{Time: t, Available: !isTaken && !past})
	}
	return options
}
