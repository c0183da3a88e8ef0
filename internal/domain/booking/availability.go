package booking

import (
	"fmt"
	"time"

	"appointment-booking/internal/domain"
)

const (
	DefaultBuffer          = 30 * time.Minute
	DefaultSessionDuration = 30 * time.Minute
	SlotStep               = 30 * time.Minute

	// MaxAvailabilityDays bounds one AvailableSlots query.
	MaxAvailabilityDays = 62
)

// BusinessHours is the local bookable range [Open, Close) in whole hours.
type BusinessHours struct {
	Open  int `yaml:"open"`
	Close int `yaml:"close"`
}

func DefaultBusinessHours() BusinessHours { return BusinessHours{Open: 7, Close: 19} }

// Contains reports whether a local HH:MM clock falls inside the hours.
func (h BusinessHours) Contains(clock string) bool {
	t, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return false
	}
	return t.Hour() >= h.Open && t.Hour() < h.Close
}

func (h BusinessHours) OpenClock() string  { return fmt.Sprintf("%02d:00", h.Open) }
func (h BusinessHours) CloseClock() string { return fmt.Sprintf("%02d:00", h.Close) }

// IsAvailable is false iff some booked instant lies strictly closer than
// buffer to candidate.
func IsAvailable(candidate time.Time, booked []time.Time, buffer time.Duration) bool {
	for _, b := range booked {
		d := candidate.Sub(b)
		if d < 0 {
			d = -d
		}
		if d < buffer {
			return false
		}
	}
	return true
}

// OpenSlot is a free grid position rendered for one country.
type OpenSlot struct {
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	UTC       time.Time `json:"utcDateTime"`
	Timezone  string    `json:"timezone"`
	Formatted string    `json:"formatted"`
}

// AvailableSlots walks the SlotStep grid inside business hours for every
// local day in [startDate, endDate] and keeps the future positions that are
// available against booked.
func AvailableSlots(startDate, endDate, country string, booked []time.Time, buffer time.Duration, hours BusinessHours, now time.Time) ([]OpenSlot, error) {
	if endDate == "" {
		endDate = startDate
	}
	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q", ErrInvalidDateTime, startDate)
	}
	end, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end date %q", ErrInvalidDateTime, endDate)
	}
	if end.Before(start) || end.Sub(start) > MaxAvailabilityDays*24*time.Hour {
		return nil, domain.ErrInvalidArgument
	}

	_, tz := location(country)
	var out []OpenSlot
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(DateLayout)
		for m := hours.Open * 60; m < hours.Close*60; m += int(SlotStep / time.Minute) {
			clock := fmt.Sprintf("%02d:%02d", m/60, m%60)
			c, err := ToUTC(date, clock, country)
			if err != nil {
				continue
			}
			if !c.UTC.After(now) || !IsAvailable(c.UTC, booked, buffer) {
				continue
			}
			out = append(out, OpenSlot{
				Date:      date,
				Time:      clock,
				UTC:       c.UTC,
				Timezone:  tz,
				Formatted: d.Format("02/01/2006") + " " + clock,
			})
		}
	}
	return out, nil
}
