package repository

import "time"

// DayStart returns 00:00 UTC of the day containing ts. Daily limits reset
// at that boundary.
func DayStart(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayStartNow returns the boundary for the current moment.
func DayStartNow() time.Time {
	return DayStart(time.Now())
}
