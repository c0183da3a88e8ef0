package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"appointment-booking/internal/domain"
)

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusMissed    SessionStatus = "missed"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusScheduled, SessionStatusCompleted, SessionStatusCancelled, SessionStatusMissed:
		return true
	}
	return false
}

// Session is one booked slot. StartsAtUTC is the only instant stored; the
// local strings are what the user picked and are shown back verbatim.
type Session struct {
	ID             string        `json:"id"`
	SubscriptionID string        `json:"subscriptionId"`
	UserID         string        `json:"userId"`
	StartsAtUTC    time.Time     `json:"startsAtUTC"`
	LocalDate      string        `json:"userLocalDate"`
	LocalTime      string        `json:"userLocalTime"`
	Country        string        `json:"userCountry"`
	Timezone       string        `json:"userTimezone"`
	Status         SessionStatus `json:"status"`
	Notes          string        `json:"notes"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// NewSessionID returns a lexicographically sortable slot id.
func NewSessionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Holds reports whether the slot still occupies its time.
func (s *Session) Holds() bool {
	return s.Status == SessionStatusScheduled || s.Status == SessionStatusCompleted
}

// Remaining reports whether the slot still counts towards the sessions left.
func (s *Session) Remaining() bool {
	return s.Status == SessionStatusScheduled || s.Status == SessionStatusMissed
}

// Transition moves a scheduled slot to a final status. Only scheduled slots
// may change; setting the current status again is a no-op.
func (s *Session) Transition(to SessionStatus) error {
	if !to.Valid() {
		return domain.ErrInvalidArgument
	}
	if s.Status == to {
		return nil
	}
	if s.Status != SessionStatusScheduled {
		return domain.ErrInvalidTransition
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	return nil
}
