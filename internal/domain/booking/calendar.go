package booking

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

const (
	CalendarProductID   = "-//Appointment Booking System//EN"
	CalendarFileName    = "sessions.ics"
	CalendarContentType = "text/calendar; method=PUBLISH"
)

// CalendarEvent is one session to export.
type CalendarEvent struct {
	StartsAt  time.Time
	Duration  time.Duration
	Notes     string
	Cancelled bool
}

// CalendarRequest describes an ICS export for one subscription.
type CalendarRequest struct {
	SubscriptionID string
	OrganizerEmail string
	AttendeeEmail  string
	AttendeeName   string
	PlanName       string
	Events         []CalendarEvent
	// Stamp is written as DTSTAMP; zero means now.
	Stamp time.Time
}

// EventUID is stable for a given subscription, instant and position so that
// calendar clients update rather than duplicate on re-import.
func EventUID(subscriptionID string, startsAt time.Time, index int) string {
	return fmt.Sprintf("%s-%d-%d@appointments", subscriptionID, startsAt.UnixMilli(), index)
}

// BuildCalendar renders a VCALENDAR with one VEVENT per session, all times
// in UTC. Text fields are escaped by the encoder.
func BuildCalendar(req CalendarRequest) string {
	stamp := req.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ics.NewCalendar()
	cal.SetProductId(CalendarProductID)
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)

	for i, e := range req.Events {
		d := e.Duration
		if d <= 0 {
			d = DefaultSessionDuration
		}
		ev := cal.AddEvent(EventUID(req.SubscriptionID, e.StartsAt, i))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(e.StartsAt.UTC())
		ev.SetEndAt(e.StartsAt.Add(d).UTC())
		ev.SetSummary(fmt.Sprintf("Session %d - %s", i+1, req.PlanName))
		desc := e.Notes
		if desc == "" {
			desc = fmt.Sprintf("Session %d of %d", i+1, len(req.Events))
		}
		ev.SetDescription(desc)
		if req.OrganizerEmail != "" {
			ev.SetOrganizer("mailto:" + req.OrganizerEmail)
		}
		if req.AttendeeEmail != "" {
			params := []ics.PropertyParameter{ics.ParticipationRoleReqParticipant}
			if req.AttendeeName != "" {
				params = append(params, ics.WithCN(req.AttendeeName))
			}
			ev.AddAttendee("mailto:"+req.AttendeeEmail, params...)
		}
		if e.Cancelled {
			ev.SetStatus(ics.ObjectStatusCancelled)
		} else {
			ev.SetStatus(ics.ObjectStatusConfirmed)
		}
	}
	return cal.Serialize()
}
