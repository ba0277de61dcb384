package scheduling

import "time"

// dayKeys lists schedule day keys Monday-first, matching the order the
// schedule editor presents them in.
var dayKeys = [7]string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// ScheduleDayIndex remaps Go's Sunday=0 weekday to the Monday-first index
// used by schedule day keys.
func ScheduleDayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// DayKey returns the schedule key ("monday".."sunday") for a calendar date.
func DayKey(t time.Time) string {
	return dayKeys[ScheduleDayIndex(t.Weekday())]
}

// IsDayKey reports whether key is a valid schedule day name.
func IsDayKey(key string) bool {
	for _, k := range dayKeys {
		if k == key {
			return true
		}
	}
	return false
}
