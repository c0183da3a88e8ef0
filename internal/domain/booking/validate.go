package booking

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// SessionRequest is one slot as chosen by the user in local time.
type SessionRequest struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Notes string `json:"notes,omitempty"`
}

// Rules are the plan limits a batch is checked against.
type Rules struct {
	SessionsPerMonth int
	SessionsPerWeek  int
	Buffer           time.Duration
	// Hours, when set, restricts slots to local business hours.
	Hours *BusinessHours
}

// Window is the inclusive range a subscription's slots must fall in.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// WindowFor opens the window at local midnight of startDate and closes it
// durationDays later.
func WindowFor(startDate, country string, durationDays int) (Window, error) {
	start, err := ParseDate(startDate, country)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: start.AddDate(0, 0, durationDays)}, nil
}

// Slot is an accepted request resolved to UTC.
type Slot struct {
	Index     int
	UTC       time.Time
	Timezone  string
	LocalDate string
	LocalTime string
	Notes     string
}

// ValidateBatch checks a whole booking at once and returns the resolved
// slots, or a *ValidationError listing every violation. Nothing is accepted
// unless everything is. existing holds the user's scheduled and completed
// instants from live subscriptions.
func ValidateBatch(reqs []SessionRequest, country string, rules Rules, window Window, existing []time.Time, now time.Time) ([]Slot, error) {
	if len(reqs) != rules.SessionsPerMonth {
		return nil, Reject(CodePlanMismatch, BatchIndex, "sessions",
			"you must schedule exactly %d sessions for this plan, got %d", rules.SessionsPerMonth, len(reqs))
	}

	var vs []Violation
	add := func(code Code, idx int, field, format string, args ...any) {
		vs = append(vs, Violation{Code: code, Index: idx, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	slots := make([]Slot, 0, len(reqs))
	for i, r := range reqs {
		c, err := ValidateBookingTime(r.Date, r.Time, country, now, rules.Hours)
		var ve *ValidationError
		if errors.As(err, &ve) {
			for _, v := range ve.Violations {
				add(v.Code, i, v.Field, "session %d: %s", i+1, v.Message)
			}
			if ve.Has(CodeInvalidInput) {
				continue
			}
		}
		ok := err == nil
		if !window.Contains(c.UTC) {
			add(CodeOutOfWindow, i, "date", "session %d: %s %s is outside the subscription period", i+1, c.LocalDate, c.LocalTime)
			ok = false
		}
		if ok {
			slots = append(slots, Slot{
				Index:     i,
				UTC:       c.UTC,
				Timezone:  c.Timezone,
				LocalDate: c.LocalDate,
				LocalTime: c.LocalTime,
				Notes:     r.Notes,
			})
		}
	}

	for j := 1; j < len(slots); j++ {
		for i := 0; i < j; i++ {
			if !IsAvailable(slots[j].UTC, []time.Time{slots[i].UTC}, rules.Buffer) {
				add(CodeDuplicateInBatch, slots[j].Index, "time",
					"session %d: too close to session %d", slots[j].Index+1, slots[i].Index+1)
				break
			}
		}
	}

	for _, s := range slots {
		if !IsAvailable(s.UTC, existing, rules.Buffer) {
			add(CodeSlotConflict, s.Index, "time",
				"session %d: you already have a session near %s %s", s.Index+1, s.LocalDate, s.LocalTime)
		}
	}

	loc, _ := location(country)
	batch := make([]time.Time, len(slots))
	for i, s := range slots {
		batch[i] = s.UTC
	}
	for _, wk := range overfilledWeeks(batch, existing, loc, rules.SessionsPerWeek) {
		add(CodeWeeklyCapExceeded, BatchIndex, "sessions",
			"cannot schedule more than %d sessions in the week of %s", rules.SessionsPerWeek, wk)
	}

	if len(vs) > 0 {
		sort.SliceStable(vs, func(i, j int) bool { return vs[i].Index < vs[j].Index })
		return nil, &ValidationError{Violations: vs}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].UTC.Before(slots[j].UTC) })
	return slots, nil
}

// ValidateHeld re-checks instants a subscription already owns against the
// user's other held instants, as when a cancelled subscription is revived.
func ValidateHeld(held []time.Time, country string, perWeek int, buffer time.Duration, existing []time.Time) error {
	var vs []Violation
	for i, t := range held {
		if !IsAvailable(t, existing, buffer) {
			l := FromUTC(t, country)
			vs = append(vs, Violation{Code: CodeSlotConflict, Index: i, Field: "status",
				Message: fmt.Sprintf("session %d: you already have a session near %s %s", i+1, l.Date, l.Time)})
		}
	}
	loc, _ := location(country)
	for _, wk := range overfilledWeeks(held, existing, loc, perWeek) {
		vs = append(vs, Violation{Code: CodeWeeklyCapExceeded, Index: BatchIndex, Field: "status",
			Message: fmt.Sprintf("cannot schedule more than %d sessions in the week of %s", perWeek, wk)})
	}
	if len(vs) > 0 {
		return &ValidationError{Violations: vs}
	}
	return nil
}

// overfilledWeeks lists, in order, the local weeks where batch plus existing
// exceeds limit. Weeks the batch doesn't touch are never reported.
func overfilledWeeks(batch, existing []time.Time, loc *time.Location, limit int) []string {
	perWeek := map[string]int{}
	for _, t := range batch {
		perWeek[weekKey(t, loc)]++
	}
	for _, t := range existing {
		if wk := weekKey(t, loc); perWeek[wk] > 0 {
			perWeek[wk]++
		}
	}
	weeks := make([]string, 0, len(perWeek))
	for wk, n := range perWeek {
		if n > limit {
			weeks = append(weeks, wk)
		}
	}
	sort.Strings(weeks)
	return weeks
}

// weekKey names the ISO week of t by its local Monday.
func weekKey(t time.Time, loc *time.Location) string {
	l := t.In(loc)
	back := (int(l.Weekday()) + 6) % 7
	monday := time.Date(l.Year(), l.Month(), l.Day()-back, 0, 0, 0, 0, loc)
	return monday.Format(DateLayout)
}
