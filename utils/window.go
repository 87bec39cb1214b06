package utils

import (
	"time"

	"offScreenAPI/internal/types/challenge"
)

const (
	DailyWindow  = 24 * time.Hour
	WeeklyWindow = 7 * 24 * time.Hour
)

// AttemptWindow stamps the validity window of a new attempt. Daily windows
// start at the actor's local midnight, weekly windows at local Monday 00:00
// of the ISO week containing now. The end is a fixed offset from the start,
// so a window spanning a DST change still lasts exactly 24h or 7*24h.
func AttemptWindow(t challenge.Type, now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	start, length := midnight, DailyWindow
	if t == challenge.TypeWeekly {
		sinceMonday := (int(local.Weekday()) + 6) % 7
		start = time.Date(local.Year(), local.Month(), local.Day()-sinceMonday, 0, 0, 0, 0, loc)
		length = WeeklyWindow
	}
	end := start.Add(length)
	// On a 25h fall-back day the last local hour lies past start+length.
	// Roll the window forward so it still contains now.
	if !now.Before(end) {
		start = end
		end = start.Add(length)
	}
	return start, end
}
