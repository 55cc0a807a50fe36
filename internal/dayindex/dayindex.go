// Package dayindex maps calendar dates to day indices and puzzle numbers.
//
// A date is always read from the calendar fields of the given instant in its own
// location, then pinned to UTC midnight. The caller picks the player's timezone by
// picking the location of the instant; wall-clock offsets never enter the
// arithmetic, so daylight-saving transitions cannot move a day boundary.
package dayindex

import "time"

const (
	secondsPerDay = 24 * 60 * 60

	// LaunchDayIndex is the day index of puzzle #1 (2026-02-22).
	LaunchDayIndex = 417

	dateLayout      = "2006-01-02"
	shortDateLayout = "Jan 2"
)

// Epoch is day index 0.
var Epoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// Midnight returns UTC midnight of t's calendar date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Index returns the number of calendar days between Epoch and now.
// Dates before Epoch yield negative indices.
func Index(now time.Time) int {
	return int(floorDiv(Midnight(now).Unix()-Epoch.Unix(), secondsPerDay))
}

// PuzzleNumber returns the 1-based display number of the puzzle offset days away
// from dayIndex. It is not clamped and is negative before launch.
func PuzzleNumber(dayIndex, offset int) int {
	return dayIndex + offset - LaunchDayIndex + 1
}

// DateForOffset returns UTC midnight of the calendar date offset days from now.
func DateForOffset(now time.Time, offset int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+offset, 0, 0, 0, 0, time.UTC)
}

// DateString formats t's calendar date as YYYY-MM-DD.
func DateString(t time.Time) string {
	return Midnight(t).Format(dateLayout)
}

// ShortDate formats t's calendar date as e.g. "Feb 22".
func ShortDate(t time.Time) string {
	return Midnight(t).Format(shortDateLayout)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
