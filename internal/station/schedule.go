package station

import (
	"fmt"
	"time"
)

// Backup schedules are expressed as an interval code plus an offset in
// minutes into that interval. The offset counts from the top of the hour
// for "h", from midnight for "d", from Monday 00:00 for "w" and from the
// first of the month for "m". Months are treated as a fixed 31 days, so
// offsets near the end of a long month can land a day early in short
// ones; the offset is reduced modulo the period either way.
const (
	minutesPerHour  = 60
	minutesPerDay   = 24 * minutesPerHour
	minutesPerWeek  = 7 * minutesPerDay
	minutesPerMonth = 31 * minutesPerDay
)

// periodMinutes returns the length in minutes of the named interval, or 0
// for codes the scheduler does not know.
func periodMinutes(interval string) int {
	switch interval {
	case "h":
		return minutesPerHour
	case "d":
		return minutesPerDay
	case "w":
		return minutesPerWeek
	case "m":
		return minutesPerMonth
	default:
		return 0
	}
}

// positionInPeriod returns how many minutes into the interval's period the
// given wall-clock time sits. Weeks start on Monday; months count from day
// one, matching the offset convention used in the configuration.
func positionInPeriod(interval string, t time.Time) int {
	switch interval {
	case "h":
		return t.Minute()
	case "d":
		return t.Hour()*minutesPerHour + t.Minute()
	case "w":
		weekday := (int(t.Weekday()) + 6) % 7
		return weekday*minutesPerDay + t.Hour()*minutesPerHour + t.Minute()
	case "m":
		return t.Day()*minutesPerDay + t.Hour()*minutesPerHour + t.Minute()
	default:
		return 0
	}
}

// isDue reports whether a target with the given interval and offset is due
// at time t. Unknown interval codes are never due.
func isDue(interval string, offset int, t time.Time) bool {
	period := periodMinutes(interval)
	if period == 0 {
		return false
	}
	return positionInPeriod(interval, t) == offset%period
}

// minutesToNextRun returns how many minutes remain until the target next
// comes due, 0 when it is due this very minute and -1 for unknown
// interval codes.
func minutesToNextRun(interval string, offset int, t time.Time) int {
	period := periodMinutes(interval)
	if period == 0 {
		return -1
	}
	delta := offset%period - positionInPeriod(interval, t)
	if delta < 0 {
		delta += period
	}
	return delta
}

// countdownText renders the time until the next run in the coarsest unit
// that still reads naturally. Unknown interval codes yield an empty
// string.
func countdownText(interval string, offset int, t time.Time) string {
	delta := minutesToNextRun(interval, offset, t)
	if delta < 0 {
		return ""
	}
	switch {
	case delta < minutesPerHour:
		return fmt.Sprintf("%d minutes.", delta)
	case delta < minutesPerDay:
		return fmt.Sprintf("%d hours.", delta/minutesPerHour)
	case delta < minutesPerWeek:
		return fmt.Sprintf("%d days.", delta/minutesPerDay)
	default:
		return fmt.Sprintf("%d weeks.", delta/minutesPerWeek)
	}
}
