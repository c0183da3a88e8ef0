package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"appointment-booking/internal/domain"
)

type Currency string

const (
	CurrencyEGP Currency = "EGP"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyEGP, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

const (
	DefaultPlanDurationDays = 30
	MaxPlanPrice            = 100000
)

// SubscriptionPlan is a bookable package of sessions over a fixed number of days.
type SubscriptionPlan struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	SessionsPerMonth int       `json:"sessionsPerMonth"`
	SessionsPerWeek  int       `json:"sessionsPerWeek"`
	Price            float64   `json:"price"`
	Currency         Currency  `json:"currency"`
	DurationDays     int       `json:"duration"`
	Features         []string  `json:"features"`
	IsActive         bool      `json:"isActive"`
	CreatedBy        string    `json:"createdBy,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (p *SubscriptionPlan) IsZero() bool { return p == nil || p.ID == "" }

// PricePerSession is the plan price spread over its monthly sessions.
func (p *SubscriptionPlan) PricePerSession() float64 {
	if p.SessionsPerMonth <= 0 {
		return 0
	}
	return p.Price / float64(p.SessionsPerMonth)
}

// Validate checks field ranges and fills in defaults.
func (p *SubscriptionPlan) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.Currency == "" {
		p.Currency = CurrencyEGP
	}
	if p.DurationDays == 0 {
		p.DurationDays = DefaultPlanDurationDays
	}
	switch {
	case len(p.Name) < 2 || len(p.Name) > 100:
		return domain.ErrInvalidArgument
	case len(p.Description) > 500:
		return domain.ErrInvalidArgument
	case p.SessionsPerMonth < 1 || p.SessionsPerMonth > 100:
		return domain.ErrInvalidArgument
	case p.SessionsPerWeek < 1 || p.SessionsPerWeek > 7:
		return domain.ErrInvalidArgument
	case p.Price < 0 || p.Price > MaxPlanPrice:
		return domain.ErrInvalidArgument
	case !p.Currency.Valid():
		return domain.ErrInvalidArgument
	case p.DurationDays < 1 || p.DurationDays > 365:
		return domain.ErrInvalidArgument
	}
	for i, f := range p.Features {
		f = strings.TrimSpace(f)
		if len(f) < 1 || len(f) > 100 {
			return domain.ErrInvalidArgument
		}
		p.Features[i] = f
	}
	return nil
}

// NewSubscriptionPlan validates and constructs an active plan.
func NewSubscriptionPlan(name, description string, sessionsPerMonth, sessionsPerWeek int, price float64, currency Currency, durationDays int, features []string, createdBy string) (*SubscriptionPlan, error) {
	now := time.Now().UTC()
	p := &SubscriptionPlan{
		ID:               uuid.NewString(),
		Name:             name,
		Description:      description,
		SessionsPerMonth: sessionsPerMonth,
		SessionsPerWeek:  sessionsPerWeek,
		Price:            price,
		Currency:         currency,
		DurationDays:     durationDays,
		Features:         features,
		IsActive:         true,
		CreatedBy:        createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
