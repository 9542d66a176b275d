package domain

import "time"

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC of its calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC date
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DaysBefore counts calendar days from now until eventDate in UTC.
// Past dates yield negative values.
func DaysBefore(eventDate, now time.Time) int {
	return int(DateOnly(eventDate).Sub(DateOnly(now)).Hours() / 24)
}
