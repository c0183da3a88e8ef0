package model

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"appointment-booking/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusConfirmed SubscriptionStatus = "confirmed"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCompleted SubscriptionStatus = "completed"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusPending, SubscriptionStatusConfirmed, SubscriptionStatusActive,
		SubscriptionStatusCompleted, SubscriptionStatusCancelled, SubscriptionStatusExpired:
		return true
	}
	return false
}

// Live reports whether a subscription in this status still holds its slots.
func (s SubscriptionStatus) Live() bool {
	return s == SubscriptionStatusConfirmed || s == SubscriptionStatusActive
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Subscription is a user's purchase of a plan together with every slot
// booked for it. Plan fields are snapshotted at creation time.
type Subscription struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"userId"`
	UserEmail          string             `json:"userEmail"`
	UserCountry        string             `json:"userCountry"`
	PlanID             string             `json:"subscriptionPlanId"`
	PlanName           string             `json:"planName"`
	PlanPrice          float64            `json:"planPrice"`
	PlanCurrency       Currency           `json:"planCurrency"`
	StartDate          time.Time          `json:"startDate"`
	EndDate            time.Time          `json:"endDate"`
	TotalSessions      int                `json:"totalSessions"`
	SessionsPerWeek    int                `json:"sessionsPerWeek"`
	Sessions           []*Session         `json:"sessions"`
	Status             SubscriptionStatus `json:"status"`
	PaymentStatus      PaymentStatus      `json:"paymentStatus"`
	PaymentConfirmedAt *time.Time         `json:"paymentConfirmedAt,omitempty"`
	PaymentReference   string             `json:"paymentReference,omitempty"`
	Notes              string             `json:"notes,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// NewSubscription snapshots the plan and derives the booking window.
func NewSubscription(userID, userEmail, country string, plan *SubscriptionPlan, startDate time.Time) (*Subscription, error) {
	if userID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &Subscription{
		ID:              uuid.NewString(),
		UserID:          userID,
		UserEmail:       userEmail,
		UserCountry:     country,
		PlanID:          plan.ID,
		PlanName:        plan.Name,
		PlanPrice:       plan.Price,
		PlanCurrency:    plan.Currency,
		StartDate:       startDate,
		EndDate:         startDate.AddDate(0, 0, plan.DurationDays),
		TotalSessions:   plan.SessionsPerMonth,
		SessionsPerWeek: plan.SessionsPerWeek,
		Status:          SubscriptionStatusConfirmed,
		PaymentStatus:   PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// SessionsCompleted counts slots marked completed.
func (s *Subscription) SessionsCompleted() int {
	n := 0
	for _, ss := range s.Sessions {
		if ss.Status == SessionStatusCompleted {
			n++
		}
	}
	return n
}

// SessionsRemaining counts scheduled and missed slots.
func (s *Subscription) SessionsRemaining() int {
	n := 0
	for _, ss := range s.Sessions {
		if ss.Remaining() {
			n++
		}
	}
	return n
}

// NextSession returns the earliest scheduled slot after now, or nil.
func (s *Subscription) NextSession(now time.Time) *Session {
	var next *Session
	for _, ss := range s.Sessions {
		if ss.Status != SessionStatusScheduled || !ss.StartsAtUTC.After(now) {
			continue
		}
		if next == nil || ss.StartsAtUTC.Before(next.StartsAtUTC) {
			next = ss
		}
	}
	return next
}

// SortSessions orders slots by their UTC instant.
func (s *Subscription) SortSessions() {
	sort.SliceStable(s.Sessions, func(i, j int) bool {
		return s.Sessions[i].StartsAtUTC.Before(s.Sessions[j].StartsAtUTC)
	})
}

// FindSession returns the slot with the given id.
func (s *Subscription) FindSession(id string) (*Session, error) {
	for _, ss := range s.Sessions {
		if ss.ID == id {
			return ss, nil
		}
	}
	return nil, domain.ErrNotFound
}

// SetPaymentStatus records a payment status change; paid stamps the confirmation time.
func (s *Subscription) SetPaymentStatus(ps PaymentStatus, at time.Time) error {
	if !ps.Valid() {
		return domain.ErrInvalidArgument
	}
	s.PaymentStatus = ps
	if ps == PaymentStatusPaid && s.PaymentConfirmedAt == nil {
		t := at.UTC()
		s.PaymentConfirmedAt = &t
	}
	return nil
}

// Expired reports whether a live subscription has run past its end date.
func (s *Subscription) Expired(now time.Time) bool {
	return s.Status.Live() && now.After(s.EndDate)
}
