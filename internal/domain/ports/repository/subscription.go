package repository

import (
	"context"
	"time"

	"appointment-booking/internal/domain/model"
)

// SubscriptionFilter narrows admin subscription listings. Empty fields match all.
type SubscriptionFilter struct {
	Status    model.SubscriptionStatus
	UserEmail string
	PlanName  string
	Offset    int
	Limit     int
}

// SubscriptionRepository is the port for subscriptions and their session slots.
type SubscriptionRepository interface {
	// Create inserts the subscription and all its sessions. A slot that
	// collides with the user's existing slot yields domain.ErrSlotTaken.
	Create(ctx context.Context, tx Tx, sub *model.Subscription) error
	// Update persists status, payment and notes fields.
	Update(ctx context.Context, tx Tx, sub *model.Subscription) error
	UpdateSession(ctx context.Context, tx Tx, s *model.Session) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindLiveByUserAndPlan returns a confirmed or active subscription, or domain.ErrNotFound.
	FindLiveByUserAndPlan(ctx context.Context, tx Tx, userID, planID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)
	List(ctx context.Context, tx Tx, f SubscriptionFilter) ([]*model.Subscription, int, error)
	Delete(ctx context.Context, tx Tx, id string) error

	// HeldInstantsByUser lists the UTC instants of the user's scheduled and
	// completed sessions in live subscriptions.
	HeldInstantsByUser(ctx context.Context, tx Tx, userID string) ([]time.Time, error)
	// BookedSessions lists non-cancelled sessions of live subscriptions starting at or after from.
	BookedSessions(ctx context.Context, tx Tx, from time.Time) ([]*model.Session, error)
	// ExpireEnded moves live subscriptions whose end date is before now to expired.
	ExpireEnded(ctx context.Context, tx Tx, now time.Time) (int, error)

	// --- Statistics read-only methods ---
	Stats(ctx context.Context, tx Tx, months int) (*model.SubscriptionStats, error)
}
