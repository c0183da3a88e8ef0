package usecase

import (
	"context"
	"time"
)

// SubscriptionExpirer is what background jobs need from the subscription use case.
type SubscriptionExpirer interface {
	ExpireEnded(ctx context.Context, now time.Time) (int, error)
}
