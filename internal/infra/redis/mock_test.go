//go:build !integration

package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// memRedis is an in-memory RedisClient. Expiry is driven by now.
type memRedis struct {
	mu   sync.Mutex
	now  time.Time
	vals map[string]string
	exp  map[string]time.Time
}

func newMemRedis() *memRedis {
	return &memRedis{now: time.Now(), vals: map[string]string{}, exp: map[string]time.Time{}}
}

func (m *memRedis) advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func (m *memRedis) live(key string) bool {
	if _, ok := m.vals[key]; !ok {
		return false
	}
	if e, ok := m.exp[key]; ok && !m.now.Before(e) {
		delete(m.vals, key)
		delete(m.exp, key)
		return false
	}
	return true
}

func (m *memRedis) setLocked(key string, value interface{}, ttl time.Duration) {
	switch v := value.(type) {
	case []byte:
		m.vals[key] = string(v)
	default:
		m.vals[key] = fmt.Sprint(v)
	}
	switch {
	case ttl == KeepTTL:
	case ttl > 0:
		m.exp[key] = m.now.Add(ttl)
	default:
		delete(m.exp, key)
	}
}

func (m *memRedis) Ping(ctx context.Context) error { return nil }

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live(key)
	m.setLocked(key, value, expiration)
	return nil
}

func (m *memRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live(key) {
		return false, nil
	}
	m.setLocked(key, value, expiration)
	return true, nil
}

func (m *memRedis) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.live(key) {
		return "", redis.Nil
	}
	return m.vals[key], nil
}

func (m *memRedis) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if m.live(key) {
		if _, err := fmt.Sscan(m.vals[key], &n); err != nil {
			return 0, err
		}
	}
	n++
	m.vals[key] = fmt.Sprint(n)
	return n, nil
}

func (m *memRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live(key) {
		m.exp[key] = m.now.Add(expiration)
	}
	return nil
}

func (m *memRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.vals, k)
		delete(m.exp, k)
	}
	return nil
}

func (m *memRedis) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.live(key) || m.vals[key] != value {
		return false, nil
	}
	delete(m.vals, key)
	delete(m.exp, key)
	return true, nil
}

func (m *memRedis) Close() error { return nil }
