package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/repository"
	"appointment-booking/internal/infra/metrics"
	red "appointment-booking/internal/infra/redis"

	"github.com/rs/zerolog"
)

var _ repository.SubscriptionPlanRepository = (*planRepoCacheDecorator)(nil)

const activePlansKey = "plans:active"

func planKey(id string) string { return fmt.Sprintf("plan:%s", id) }

// planRepoCacheDecorator serves FindByID and ListActive from Redis and
// invalidates both on every write. Redis failures fall through to the inner repo.
type planRepoCacheDecorator struct {
	inner repository.SubscriptionPlanRepository
	cache red.RedisClient
	ttl   time.Duration
	log   zerolog.Logger
}

func NewPlanRepoCacheDecorator(inner repository.SubscriptionPlanRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.SubscriptionPlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &planRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   logger.With().Str("component", "plan_cache").Logger(),
	}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	// reads inside a transaction must see uncommitted writes
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := planKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var plan model.SubscriptionPlan
		if json.Unmarshal([]byte(val), &plan) == nil {
			metrics.IncCacheRequest("plan", "hit")
			return &plan, nil
		}
	} else if !red.IsNil(err) {
		d.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	metrics.IncCacheRequest("plan", "miss")
	plan, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if bytes, err := json.Marshal(plan); err == nil {
		if err := d.cache.Set(ctx, key, bytes, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return plan, nil
}

func (d *planRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	if tx != nil {
		return d.inner.ListActive(ctx, tx)
	}
	val, err := d.cache.Get(ctx, activePlansKey)
	if err == nil {
		var plans []*model.SubscriptionPlan
		if json.Unmarshal([]byte(val), &plans) == nil {
			metrics.IncCacheRequest("plan_list", "hit")
			return plans, nil
		}
	} else if !red.IsNil(err) {
		d.log.Warn().Err(err).Str("key", activePlansKey).Msg("cache read failed")
	}

	metrics.IncCacheRequest("plan_list", "miss")
	plans, err := d.inner.ListActive(ctx, tx)
	if err != nil {
		return nil, err
	}
	if bytes, err := json.Marshal(plans); err == nil {
		if err := d.cache.Set(ctx, activePlansKey, bytes, d.ttl); err != nil {
			d.log.Warn().Err(err).Msg("cache write failed")
		}
	}
	return plans, nil
}

func (d *planRepoCacheDecorator) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.SubscriptionPlan, error) {
	return d.inner.FindByName(ctx, tx, name)
}

func (d *planRepoCacheDecorator) List(ctx context.Context, tx repository.Tx, f repository.PlanFilter) ([]*model.SubscriptionPlan, int, error) {
	return d.inner.List(ctx, tx, f)
}

// For write operations, we must invalidate the cache.
func (d *planRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	if err := d.inner.Save(ctx, tx, plan); err != nil {
		return err
	}
	d.invalidate(ctx, plan.ID)
	return nil
}

func (d *planRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if err := d.inner.Delete(ctx, tx, id); err != nil {
		return err
	}
	d.invalidate(ctx, id)
	return nil
}

func (d *planRepoCacheDecorator) invalidate(ctx context.Context, id string) {
	if err := d.cache.Del(ctx, planKey(id), activePlansKey); err != nil {
		d.log.Warn().Err(err).Str("plan_id", id).Msg("cache invalidation failed")
	}
}
