package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/ports/usecase"
	"appointment-booking/internal/infra/metrics"
	red "appointment-booking/internal/infra/redis"
)

const (
	ExpiryJobName = "subscription_expiry"
	expiryLockKey = "lock:sched:subscription_expiry"
)

// ExpiryJob marks live subscriptions past their end date as expired. A redis
// lock keeps concurrent instances from sweeping at the same time.
type ExpiryJob struct {
	expirer usecase.SubscriptionExpirer
	locker  red.Locker
	lockTTL time.Duration
	now     func() time.Time
	log     *zerolog.Logger
}

func NewExpiryJob(expirer usecase.SubscriptionExpirer, locker red.Locker, logger *zerolog.Logger) *ExpiryJob {
	l := logger.With().Str("component", "ExpiryJob").Logger()
	return &ExpiryJob{
		expirer: expirer,
		locker:  locker,
		lockTTL: 10 * time.Minute,
		now:     time.Now,
		log:     &l,
	}
}

// Run performs one sweep and reports how many subscriptions expired.
func (j *ExpiryJob) Run(ctx context.Context) (int, error) {
	token, err := j.locker.TryLock(ctx, expiryLockKey, j.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotAcquired) {
			metrics.IncCronRun(ExpiryJobName, "skipped")
			j.log.Debug().Msg("another instance holds the expiry lock")
			return 0, nil
		}
		metrics.IncCronRun(ExpiryJobName, "error")
		return 0, err
	}
	defer func() {
		if uerr := j.locker.Unlock(context.WithoutCancel(ctx), expiryLockKey, token); uerr != nil {
			j.log.Warn().Err(uerr).Msg("failed to release expiry lock")
		}
	}()

	n, err := j.expirer.ExpireEnded(ctx, j.now().UTC())
	if err != nil {
		metrics.IncCronRun(ExpiryJobName, "error")
		j.log.Error().Err(err).Msg("expiry sweep failed")
		return 0, err
	}
	metrics.IncCronRun(ExpiryJobName, "ok")
	if n > 0 {
		metrics.IncSubscriptionsExpired(n)
		j.log.Info().Int("count", n).Msg("subscriptions expired")
	}
	return n, nil
}

// Func adapts Run for Scheduler.Add.
func (j *ExpiryJob) Func() func(ctx context.Context) {
	return func(ctx context.Context) { _, _ = j.Run(ctx) }
}
