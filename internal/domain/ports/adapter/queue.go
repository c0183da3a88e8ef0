package adapter

import (
	"context"
	"time"
)

// Task is a unit of background work.
type Task func(ctx context.Context) error

// TaskQueue accepts fire-and-forget work. Submit never blocks; it returns
// domain.ErrQueueFull when the queue is saturated.
type TaskQueue interface {
	Submit(name string, task Task) error
}

// RateLimiter counts hits per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
