package booking

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	DateTimeLayout = DateLayout + " " + TimeLayout
	DisplayLayout  = "02/01/2006 15:04"
)

// Conversion is a local wall-clock choice resolved to a UTC instant. The
// local strings are the choice in canonical form and never recomputed from UTC.
type Conversion struct {
	UTC       time.Time `json:"utcDateTime"`
	Timezone  string    `json:"userTimezone"`
	LocalDate string    `json:"originalDate"`
	LocalTime string    `json:"originalTime"`
}

// LocalTime is a UTC instant rendered in a country's zone.
type LocalTime struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Timezone  string `json:"timezone"`
	DateTime  string `json:"dateTime"`
	Formatted string `json:"formatted"`
}

// ToUTC interprets date (YYYY-MM-DD) and clock (HH:MM) in the zone of
// country. Wall-clock times skipped by a DST transition are rejected.
func ToUTC(date, clock, country string) (Conversion, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	wall, err := time.Parse(DateTimeLayout, date+" "+clock)
	if err != nil {
		return Conversion{}, fmt.Errorf("%w: %q %q", ErrInvalidDateTime, date, clock)
	}
	loc, tz := location(country)
	t := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), 0, 0, loc)
	if t.Day() != wall.Day() || t.Hour() != wall.Hour() || t.Minute() != wall.Minute() {
		return Conversion{}, fmt.Errorf("%w: %s %s does not exist in %s", ErrInvalidDateTime, date, clock, tz)
	}
	return Conversion{
		UTC:       t.UTC(),
		Timezone:  tz,
		LocalDate: wall.Format(DateLayout),
		LocalTime: wall.Format(TimeLayout),
	}, nil
}

// FromUTC renders instant in the zone of country.
func FromUTC(instant time.Time, country string) LocalTime {
	loc, tz := location(country)
	l := instant.In(loc)
	return LocalTime{
		Date:      l.Format(DateLayout),
		Time:      l.Format(TimeLayout),
		Timezone:  tz,
		DateTime:  l.Format(DateTimeLayout),
		Formatted: l.Format(DisplayLayout),
	}
}

// DisplayStyle selects a FormatForDisplay layout.
type DisplayStyle string

const (
	StyleShort    DisplayStyle = "short"
	StyleLong     DisplayStyle = "long"
	StyleTimeOnly DisplayStyle = "time-only"
	StyleDateOnly DisplayStyle = "date-only"
)

// FormatForDisplay renders instant in the zone of country. Unknown styles
// fall back to short.
func FormatForDisplay(instant time.Time, country string, style DisplayStyle) string {
	loc, _ := location(country)
	l := instant.In(loc)
	switch style {
	case StyleLong:
		return l.Format("Monday, 02 January 2006 at 15:04")
	case StyleTimeOnly:
		return l.Format(TimeLayout)
	case StyleDateOnly:
		return l.Format("02/01/2006")
	default:
		return l.Format(DisplayLayout)
	}
}

// ParseDate reads a calendar date as midnight in the zone of country.
func ParseDate(date, country string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, date)
	}
	loc, _ := location(country)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc), nil
}

// ValidateBookingTime checks a single local choice: it must resolve, lie in
// the future and, when hours is set, fall inside business hours. The first
// failed check is returned as a *ValidationError for slot 0.
func ValidateBookingTime(date, clock, country string, now time.Time, hours *BusinessHours) (Conversion, error) {
	c, err := ToUTC(date, clock, country)
	if err != nil {
		return Conversion{}, Reject(CodeInvalidInput, 0, "date", "invalid date/time format (%s %s)", date, clock)
	}
	if !c.UTC.After(now) {
		return c, Reject(CodePastTime, 0, "time", "cannot book appointments in the past (%s %s)", date, clock)
	}
	if hours != nil && !hours.Contains(c.LocalTime) {
		return c, Reject(CodeOutOfWindow, 0, "time", "booking hours are %s to %s", hours.OpenClock(), hours.CloseClock())
	}
	return c, nil
}
